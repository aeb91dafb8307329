package handler

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/ErlanBelekov/magic-link-auth/internal/domain"
	"github.com/ErlanBelekov/magic-link-auth/internal/usecase"
	"github.com/gin-gonic/gin"
)

// authUsecaser is the subset of AuthUsecase the handler needs.
// Defined here (point of use) so tests can inject a fake.
type authUsecaser interface {
	RequestMagicLink(ctx context.Context, email string) error
	VerifyMagicLink(ctx context.Context, rawToken string) (*usecase.VerifiedSession, error)
}

type AuthHandler struct {
	authUsecase authUsecaser
	logger      *slog.Logger
}

func NewAuthHandler(authUsecase authUsecaser, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authUsecase: authUsecase,
		logger:      logger.With("component", "auth_handler"),
	}
}

type magicLinkRequest struct {
	Email string `json:"email" binding:"required,email,max=254"`
}

type verifyResponse struct {
	Authenticated bool   `json:"authenticated"`
	UserID        string `json:"user_id"`
	Email         string `json:"email"`
	Token         string `json:"token"`
}

type meResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// POST /auth/magic-link
// Returns 202 whether or not a link went out, so callers learn nothing about
// the address or the backend. Only bad input and rate limiting are surfaced.
func (h *AuthHandler) RequestMagicLink(c *gin.Context) {
	var req magicLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidEmail})
		return
	}

	err := h.authUsecase.RequestMagicLink(c.Request.Context(), req.Email)

	var rl *domain.RateLimitError
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInvalidEmail):
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidEmail})
		return
	case errors.As(err, &rl):
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(rl.RetryAfter.Seconds()))))
		c.JSON(http.StatusTooManyRequests, gin.H{"error": errRateLimited})
		return
	default:
		h.logger.ErrorContext(c.Request.Context(), "request magic link", "error", err)
	}

	c.Status(http.StatusAccepted)
}

// GET /auth/verify?token=<raw>
func (h *AuthHandler) Verify(c *gin.Context) {
	rawToken := c.Query("token")
	if rawToken == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": errTokenInvalid})
		return
	}

	sess, err := h.authUsecase.VerifyMagicLink(c.Request.Context(), rawToken)
	if err != nil {
		status, msg := verifyStatus(err)
		if status >= http.StatusInternalServerError {
			h.logger.ErrorContext(c.Request.Context(), "verify magic link", "error", err)
		}
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, verifyResponse{
		Authenticated: true,
		UserID:        sess.Identity.UserID,
		Email:         sess.Identity.Email,
		Token:         sess.Token,
	})
}

// GET /me, behind middleware.Auth.
func (h *AuthHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, meResponse{
		UserID: c.GetString("userID"),
		Email:  c.GetString("email"),
	})
}
