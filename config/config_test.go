package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/auth")
	t.Setenv("JWT_SECRET", secret)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Env != "local" || cfg.Port != "8080" || cfg.MetricsPort != "9090" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.TokenTTL != 15*time.Minute {
		t.Errorf("TokenTTL = %v, want 15m", cfg.TokenTTL)
	}
	if cfg.StoreTimeout != 3*time.Second {
		t.Errorf("StoreTimeout = %v, want 3s", cfg.StoreTimeout)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Errorf("SessionTTL = %v, want 24h", cfg.SessionTTL)
	}
	if cfg.IssueRateLimit != 5 || cfg.IssueRateWindow != 15*time.Minute {
		t.Errorf("rate limit = %d per %v", cfg.IssueRateLimit, cfg.IssueRateWindow)
	}
	if cfg.JanitorCron != "@hourly" || cfg.Retention != 168*time.Hour {
		t.Errorf("janitor = %q / %v", cfg.JanitorCron, cfg.Retention)
	}
	if cfg.MagicLinkBase != "http://localhost:8080/auth/verify" {
		t.Errorf("MagicLinkBase = %q", cfg.MagicLinkBase)
	}
	if cfg.SlogLevel() != slog.LevelInfo {
		t.Errorf("SlogLevel = %v", cfg.SlogLevel())
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/auth")
	t.Setenv("JWT_SECRET", secret)
	t.Setenv("TOKEN_TTL", "5m")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TokenTTL != 5*time.Minute {
		t.Errorf("TokenTTL = %v, want 5m", cfg.TokenTTL)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("SlogLevel = %v, want debug", cfg.SlogLevel())
	}
	if cfg.RedisURL == "" {
		t.Error("RedisURL not read")
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"missing database": {"JWT_SECRET": secret},
		"short secret":     {"DATABASE_URL": "postgres://x", "JWT_SECRET": "short"},
		"bad env":          {"DATABASE_URL": "postgres://x", "JWT_SECRET": secret, "ENV": "dev"},
		"production needs resend": {
			"DATABASE_URL": "postgres://x", "JWT_SECRET": secret, "ENV": "production",
		},
		"bad duration": {"DATABASE_URL": "postgres://x", "JWT_SECRET": secret, "TOKEN_TTL": "soon"},
	}

	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "")
			t.Setenv("JWT_SECRET", "")
			for k, v := range vars {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), "env") && !strings.Contains(err.Error(), "config") {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
