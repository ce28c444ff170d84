// Package config loads server settings from the environment, with an
// optional .env file for local runs.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds the server settings read from the environment.
type Config struct {
	Port               int           `env:"PORT" envDefault:"8080" validate:"min=1,max=65535"`
	StoreDriver        string        `env:"STORE_DRIVER" envDefault:"sqlite" validate:"oneof=sqlite postgres"`
	DBPath             string        `env:"DB_PATH" envDefault:"./data/santa.db" validate:"required_if=StoreDriver sqlite"`
	PostgresDSN        string        `env:"POSTGRES_DSN" validate:"required_if=StoreDriver postgres"`
	JWTSecret          string        `env:"JWT_SECRET" validate:"required,min=16"`
	TokenTTL           time.Duration `env:"TOKEN_TTL" envDefault:"24h" validate:"gt=0"`
	DrawStrategy       string        `env:"DRAW_STRATEGY" envDefault:"cycle" validate:"oneof=cycle uniform"`
	AllowClosedInvites bool          `env:"ALLOW_CLOSED_INVITES" envDefault:"false"`
	LogLevel           string        `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
}

// New reads .env when present, then the process environment.
func New() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Unable to load .env file", "error", err)
	}
	return parse(env.Options{})
}

// FromMap builds a Config from vars alone, ignoring the process environment.
func FromMap(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Addr is the listen address for Port.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
