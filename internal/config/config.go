// Package config loads the application configuration from the
// environment, with an optional .env file for local development.
package config

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/plumehq/plume/internal/database"
	"github.com/plumehq/plume/pkg/logger"
)

// ErrParse reports that the environment could not be parsed into Config.
var ErrParse = errors.New("config: failed to parse environment")

// Config is the full application configuration.
type Config struct {
	HTTP     HTTP
	Database database.Config
	Logger   logger.Config

	// JWTSecret verifies bearer tokens issued by the identity service.
	JWTSecret string `env:"JWT_SECRET,required"`

	// RedisURL enables the resolver cache when set. Empty runs without a
	// cache, which is fine for development.
	RedisURL string `env:"REDIS_URL"`

	// PostCacheTTL bounds staleness of cached live-post lookups.
	PostCacheTTL time.Duration `env:"POST_CACHE_TTL" envDefault:"5m"`
}

// HTTP holds the listener settings.
type HTTP struct {
	Addr            string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

// Load reads .env when present, then parses the environment. Real
// environment variables win over .env values.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Join(ErrParse, err)
	}
	return cfg, nil
}
