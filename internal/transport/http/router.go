package httptransport

import (
	"log/slog"

	"github.com/ErlanBelekov/magic-link-auth/internal/session"
	"github.com/ErlanBelekov/magic-link-auth/internal/transport/http/handler"
	"github.com/ErlanBelekov/magic-link-auth/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"

	sloggin "github.com/samber/slog-gin"
)

func NewRouter(logger *slog.Logger, authHandler *handler.AuthHandler, signer *session.Signer) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security())
	// The access log records the raw query, which on /auth/verify is a live
	// token. That route is accounted for by metrics and usecase logs instead.
	r.Use(sloggin.NewWithConfig(logger, sloggin.Config{
		DefaultLevel:     slog.LevelInfo,
		ClientErrorLevel: slog.LevelWarn,
		ServerErrorLevel: slog.LevelError,
		Filters:          []sloggin.Filter{sloggin.IgnorePath("/auth/verify")},
	}))
	r.Use(middleware.Metrics())

	auth := r.Group("/auth")
	auth.POST("/magic-link", authHandler.RequestMagicLink)
	auth.GET("/verify", authHandler.Verify)

	r.GET("/me", middleware.Auth(signer), authHandler.Me)

	return r
}
