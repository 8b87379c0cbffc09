// Package config loads process configuration from environment variables
// using github.com/caarlos0/env. A local .env file is honored in
// development. All values are immutable after Load.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the full service configuration.
type Config struct {
	Auth      AuthConfig      `envPrefix:"AUTH_"`
	Directory DirectoryConfig `envPrefix:"DIRECTORY_"`
	HTTP      HTTPConfig      `envPrefix:"HTTP_"`
}

// AuthConfig carries the signing secret and token expiry window. Both
// are loaded once at startup and never mutated.
type AuthConfig struct {
	// Secret signs every issued token. Required; never logged.
	Secret string `env:"SECRET,required"`

	// TokenTTL is the expiry window applied to every issued token.
	TokenTTL time.Duration `env:"TOKEN_TTL" envDefault:"15m"`

	// Issuer is the iss claim on issued tokens.
	Issuer string `env:"ISSUER" envDefault:"authentication-api"`
}

// DirectoryConfig points at the external user directory.
type DirectoryConfig struct {
	// BaseURL is the root of the directory's HTTP API.
	BaseURL string `env:"BASE_URL,required"`

	// Timeout bounds each directory round-trip.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"10s"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr            string        `env:"ADDR" envDefault:":8080"`
	MaxBodyBytes    int64         `env:"MAX_BODY_BYTES" envDefault:"65536"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load reads configuration from the environment, preferring an optional
// .env file for local development.
func Load() (*Config, error) {
	// Missing .env is the normal production case.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate applies guardrails beyond required-field checks.
func (c *Config) Validate() error {
	if c.Auth.TokenTTL <= 0 {
		return errors.New("config: AUTH_TOKEN_TTL must be positive")
	}
	if c.Directory.Timeout <= 0 {
		return errors.New("config: DIRECTORY_TIMEOUT must be positive")
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		return errors.New("config: HTTP_MAX_BODY_BYTES must be positive")
	}
	return nil
}
