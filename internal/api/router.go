package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/pageguard/visitauth/internal/api/handler"
	"github.com/pageguard/visitauth/internal/api/middleware"
	"github.com/pageguard/visitauth/internal/core/ports"
	"github.com/pageguard/visitauth/internal/core/service"
	"github.com/pageguard/visitauth/internal/infrastructure/config"
	mongostore "github.com/pageguard/visitauth/internal/infrastructure/db/mongo"
	redisstore "github.com/pageguard/visitauth/internal/infrastructure/db/redis"
	"github.com/pageguard/visitauth/internal/pkg/confirmcode"
	"github.com/pageguard/visitauth/internal/pkg/kdf"
	"github.com/pageguard/visitauth/internal/pkg/randsource"
)

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(db *mongo.Database, rdb *redis.Client, cfg *config.Config, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echoprometheus.NewMiddleware("visitauth"))

	sessions := redisstore.NewSessionStore(rdb, cfg.Session.TTL)
	e.Use(middleware.Session(func(id string) ports.Session { return sessions.Session(id) }))
	e.Use(middleware.Identity(log))

	// --- Dependencies ---
	credRepo := mongostore.NewCredentialRepository(db)
	visitRepo := mongostore.NewVisitRepository(db)

	kdfService := kdf.New(kdf.Params{
		Time:      cfg.KDF.Time,
		MemoryKiB: cfg.KDF.MemoryKiB,
		Threads:   cfg.KDF.Threads,
		KeyLen:    cfg.KDF.KeyLen,
	})
	codes := confirmcode.New(randsource.New())

	authService := service.NewAuthService(credRepo, kdfService, log)
	visitService := service.NewVisitService(visitRepo, codes, log)

	authHandler := handler.NewAuthHandler(authService, log)
	visitHandler := handler.NewVisitHandler(visitService, log)

	// --- Auth routes ---
	e.GET("/auth/signin", authHandler.SignIn)
	e.POST("/auth/signin", authHandler.SignIn)
	e.POST("/auth/signup", authHandler.SignUp)

	// --- Tracked pages and visit confirmation ---
	e.GET("/", visitHandler.Page)
	e.GET("/privacy", visitHandler.Page)
	e.POST("/visits/confirm", visitHandler.Confirm)
	e.GET("/visits/stats", visitHandler.Stats)

	// --- Health probes and metrics (no session semantics) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(db, rdb)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthDepsHandler.Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())

	return e
}
