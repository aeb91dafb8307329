package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ErlanBelekov/magic-link-auth/config"
	"github.com/ErlanBelekov/magic-link-auth/internal/email"
	"github.com/ErlanBelekov/magic-link-auth/internal/health"
	"github.com/ErlanBelekov/magic-link-auth/internal/infrastructure/postgres"
	ctxlog "github.com/ErlanBelekov/magic-link-auth/internal/log"
	"github.com/ErlanBelekov/magic-link-auth/internal/metrics"
	"github.com/ErlanBelekov/magic-link-auth/internal/ratelimit"
	"github.com/ErlanBelekov/magic-link-auth/internal/session"
	httptransport "github.com/ErlanBelekov/magic-link-auth/internal/transport/http"
	"github.com/ErlanBelekov/magic-link-auth/internal/transport/http/handler"
	"github.com/ErlanBelekov/magic-link-auth/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		stop()
		log.Fatalf("migrate: %v", err)
	}
	logger.Info("db connected and migrated")

	deps := map[string]health.Pinger{"postgres": pool}

	var limiter ratelimit.Limiter = ratelimit.NewMemoryLimiter()
	if cfg.RedisURL != "" {
		client, err := ratelimit.NewRedisClient(cfg.RedisURL)
		if err != nil {
			stop()
			log.Fatalf("redis: %v", err)
		}
		defer client.Close()
		redisLimiter := ratelimit.NewRedisLimiter(client, "")
		limiter = redisLimiter
		deps["redis"] = redisLimiter
		logger.Info("using redis rate limiter")
	}

	userRepo := postgres.NewUserRepository(pool)
	linkRepo := postgres.NewMagicLinkRepository(pool)
	deliverer := email.NewDeliverer(cfg.Env, cfg.ResendAPIKey, cfg.ResendFrom, cfg.TokenTTL.String(), logger)
	signer := session.NewSigner([]byte(cfg.JWTSecret), cfg.SessionTTL)

	authUsecase := usecase.NewAuthUsecase(userRepo, linkRepo, deliverer, limiter, signer, usecase.AuthConfig{
		TokenTTL:      cfg.TokenTTL,
		StoreTimeout:  cfg.StoreTimeout,
		MagicLinkBase: cfg.MagicLinkBase,
		IssueLimit:    cfg.IssueRateLimit,
		IssueWindow:   cfg.IssueRateWindow,
	}, logger)
	authHandler := handler.NewAuthHandler(authUsecase, logger)

	metrics.Register(prometheus.DefaultRegisterer)
	checker := health.NewChecker(deps, logger, prometheus.DefaultRegisterer)

	srv := http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httptransport.NewRouter(logger, authHandler, signer),
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	go func() {
		logger.Info("server started", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
}

func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
