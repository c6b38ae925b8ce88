package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	Mongo   MongoConfig
	Redis   RedisConfig
	Session SessionConfig
	KDF     KDFConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=visitauth"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

type SessionConfig struct {
	TTL time.Duration `env:"SESSION_TTL, default=30m"`
}

// KDFConfig tunes the argon2id derivation. Changing these invalidates every
// stored derived key, so treat them as enrolment-time constants.
type KDFConfig struct {
	Time      uint32 `env:"KDF_TIME,       default=1"`
	MemoryKiB uint32 `env:"KDF_MEMORY_KIB, default=65536"`
	Threads   uint8  `env:"KDF_THREADS,    default=4"`
	KeyLen    uint32 `env:"KDF_KEY_LEN,    default=32"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return &cfg
}
