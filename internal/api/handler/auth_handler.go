package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/pageguard/visitauth/internal/api/metrics"
	"github.com/pageguard/visitauth/internal/api/middleware"
	"github.com/pageguard/visitauth/internal/core/domain"
	"github.com/pageguard/visitauth/internal/core/ports"
)

// AuthHandler handles sign-in and sign-up.
type AuthHandler struct {
	authService ports.AuthService
	log         zerolog.Logger
}

func NewAuthHandler(authService ports.AuthService, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, log: log}
}

// signInResponse mirrors the wire contract of the sign-in endpoint: the JSON
// keys are part of the API, not Go style.
type signInResponse struct {
	Status   int    `json:"Status"`
	Data     string `json:"Data"`
	UserName string `json:"UserName,omitempty"`
}

type signUpRequest struct {
	Name      string `json:"name"      validate:"required,personname"`
	Email     string `json:"email"     validate:"required,email"`
	Login     string `json:"login"     validate:"required,excludesall=0x3A"`
	Password  string `json:"password"  validate:"required,min=8,passwordstrength"`
	Repeat    string `json:"repeat"    validate:"required,eqfield=Password"`
	Birthdate string `json:"birthdate,omitempty"`
}

type signUpResponse struct {
	Login        string `json:"login"`
	Name         string `json:"name"`
	RegisteredAt string `json:"registered_at"`
}

// SignIn authenticates a Basic Authorization header and stores the resulting
// principal in the session.
//
// @Summary      Sign in with HTTP Basic credentials
// @Tags         auth
// @Produce      json
// @Success      200  {object}  signInResponse
// @Failure      401  {object}  signInResponse
// @Router       /auth/signin [post]
func (h *AuthHandler) SignIn(c echo.Context) error {
	start := time.Now()
	ctx := c.Request().Context()

	result, err := h.authService.Verify(ctx, c.Request().Header.Get(echo.HeaderAuthorization))
	if err != nil {
		reason, known := rejectionReason(err)
		outcome := "rejected"
		if !known {
			outcome = "error"
			h.log.Error().Err(err).Msg("sign-in failed")
		}
		metrics.SignInAttemptsTotal.WithLabelValues(outcome).Inc()
		metrics.SignInDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
		return c.JSON(http.StatusUnauthorized, signInResponse{Status: http.StatusUnauthorized, Data: reason})
	}

	blob, err := json.Marshal(result.Principal)
	if err != nil {
		return err
	}
	sess := middleware.SessionFrom(c)
	if err := sess.SetString(ctx, ports.SessionKeySignIn, string(blob)); err != nil {
		h.log.Error().Err(err).Msg("failed to persist sign-in state")
		metrics.SignInAttemptsTotal.WithLabelValues("error").Inc()
		return c.JSON(http.StatusUnauthorized, signInResponse{Status: http.StatusUnauthorized, Data: "authentication failed"})
	}

	metrics.SignInAttemptsTotal.WithLabelValues("authorized").Inc()
	metrics.SignInDuration.WithLabelValues("authorized").Observe(time.Since(start).Seconds())

	return c.JSON(http.StatusOK, signInResponse{
		Status:   http.StatusOK,
		Data:     "Authorized",
		UserName: result.UserName,
	})
}

// SignUp enrols a new credential.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signUpRequest  true  "Registration form"
// @Success      201   {object}  signUpResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /auth/signup [post]
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req signUpRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var birthdate *time.Time
	if req.Birthdate != "" {
		parsed, err := time.Parse("2006-01-02", req.Birthdate)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "birthdate must be formatted as YYYY-MM-DD")
		}
		birthdate = &parsed
	}

	cred, err := h.authService.SignUp(c.Request().Context(), ports.SignUpInput{
		Name:      req.Name,
		Email:     req.Email,
		Login:     req.Login,
		Password:  req.Password,
		Birthdate: birthdate,
	})
	if err != nil {
		if errors.Is(err, domain.ErrLoginTaken) {
			return echo.NewHTTPError(http.StatusConflict, "login already taken")
		}
		if errors.Is(err, domain.ErrEmptyLoginOrPassword) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return err
	}

	metrics.SignUpsTotal.Inc()

	return c.JSON(http.StatusCreated, signUpResponse{
		Login:        cred.Login,
		Name:         cred.User.Name,
		RegisteredAt: cred.User.RegisteredAt.UTC().Format(time.RFC3339),
	})
}

// rejectionReason maps a verification error onto the reason string exposed to
// the client, and reports whether the error is a known rejection. Unknown
// errors (infrastructure failures) collapse into a generic message so no
// internal detail leaks.
func rejectionReason(err error) (string, bool) {
	for _, known := range []error{
		domain.ErrMissingAuthHeader,
		domain.ErrInvalidAuthScheme,
		domain.ErrEmptyCredentials,
		domain.ErrInvalidEncoding,
		domain.ErrMalformedCredentials,
		domain.ErrEmptyLoginOrPassword,
		domain.ErrCredentialsRejected,
	} {
		if errors.Is(err, known) {
			return known.Error(), true
		}
	}
	return "authentication failed", false
}
