package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	Env      string `env:"ENV" envDefault:"local" validate:"required,oneof=local staging production"`
	Port     string `env:"PORT" envDefault:"8080" validate:"required"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`

	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`

	DatabaseURL  string        `env:"DATABASE_URL,required" validate:"required"`
	StoreTimeout time.Duration `env:"STORE_TIMEOUT" envDefault:"3s" validate:"gt=0"`

	TokenTTL      time.Duration `env:"TOKEN_TTL" envDefault:"15m" validate:"gt=0"`
	MagicLinkBase string        `env:"MAGIC_LINK_BASE_URL" envDefault:"http://localhost:8080/auth/verify" validate:"required,url"`

	JWTSecret  string        `env:"JWT_SECRET,required" validate:"required,min=32"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"24h" validate:"gt=0"`

	ResendAPIKey string `env:"RESEND_API_KEY" validate:"required_if=Env production,required_if=Env staging"`
	ResendFrom   string `env:"RESEND_FROM"    validate:"required_if=Env production,required_if=Env staging"`

	// Empty selects the in-process limiter.
	RedisURL        string        `env:"REDIS_URL"`
	IssueRateLimit  int           `env:"ISSUE_RATE_LIMIT" envDefault:"5" validate:"min=0,max=1000"`
	IssueRateWindow time.Duration `env:"ISSUE_RATE_WINDOW" envDefault:"15m" validate:"gt=0"`

	JanitorCron string        `env:"JANITOR_CRON" envDefault:"@hourly" validate:"required"`
	Retention   time.Duration `env:"RETENTION" envDefault:"168h" validate:"gt=0"`
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
