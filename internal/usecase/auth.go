package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ErlanBelekov/magic-link-auth/internal/domain"
	"github.com/ErlanBelekov/magic-link-auth/internal/email"
	"github.com/ErlanBelekov/magic-link-auth/internal/metrics"
	"github.com/ErlanBelekov/magic-link-auth/internal/ratelimit"
	"github.com/ErlanBelekov/magic-link-auth/internal/repository"
	"github.com/ErlanBelekov/magic-link-auth/internal/session"
	"github.com/go-playground/validator/v10"
)

const (
	defaultTokenTTL     = 15 * time.Minute
	defaultStoreTimeout = 3 * time.Second
)

type AuthConfig struct {
	TokenTTL      time.Duration
	StoreTimeout  time.Duration
	MagicLinkBase string

	// IssueLimit links per IssueWindow per address. Zero disables the limit.
	IssueLimit  int
	IssueWindow time.Duration
}

type AuthUsecase struct {
	users     repository.UserRepository
	links     repository.MagicLinkRepository
	deliverer email.Deliverer
	limiter   ratelimit.Limiter
	sessions  *session.Signer
	cfg       AuthConfig
	logger    *slog.Logger
	validate  *validator.Validate
	now       func() time.Time
}

// VerifiedSession is the result of redeeming a link over the presentation
// surface: who the holder is plus a bearer token asserting it.
type VerifiedSession struct {
	Identity domain.Identity
	Token    string
}

// NewAuthUsecase wires the core. deliverer, limiter and sessions may be nil
// when only Issue and Verify are used.
func NewAuthUsecase(
	users repository.UserRepository,
	links repository.MagicLinkRepository,
	deliverer email.Deliverer,
	limiter ratelimit.Limiter,
	sessions *session.Signer,
	cfg AuthConfig,
	logger *slog.Logger,
) *AuthUsecase {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTokenTTL
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = defaultStoreTimeout
	}
	return &AuthUsecase{
		users:     users,
		links:     links,
		deliverer: deliverer,
		limiter:   limiter,
		sessions:  sessions,
		cfg:       cfg,
		logger:    logger.With("component", "auth"),
		validate:  validator.New(),
		now:       time.Now,
	}
}

// SetClock replaces the time source used for expiry and consumption.
func (u *AuthUsecase) SetClock(now func() time.Time) {
	u.now = now
}

// Issue resolves the user behind emailAddr and mints a new single-use token
// for them. The raw token is only ever returned, never stored.
func (u *AuthUsecase) Issue(ctx context.Context, emailAddr string) (*domain.IssuedLink, error) {
	addr, err := u.normalizeEmail(emailAddr)
	if err != nil {
		return nil, err
	}

	user, err := u.resolveUser(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("resolve user: %w", err)
	}

	raw, hash, err := newToken()
	if err != nil {
		return nil, err
	}

	expiresAt := u.now().Add(u.cfg.TokenTTL)
	err = u.withStore(ctx, "create_link", func(ctx context.Context) error {
		_, err := u.links.Create(ctx, user.ID, hash, expiresAt)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("store magic link: %w", err)
	}

	metrics.LinksIssuedTotal.Inc()
	return &domain.IssuedLink{Token: raw, UserID: user.ID, ExpiresAt: expiresAt}, nil
}

// Verify redeems rawToken. Exactly one call per token can succeed; the store
// decides the winner atomically and reports why the others lost.
func (u *AuthUsecase) Verify(ctx context.Context, rawToken string) (*domain.Identity, error) {
	if !wellFormedToken(rawToken) {
		metrics.VerificationsTotal.WithLabelValues(outcome(domain.ErrInvalidToken)).Inc()
		return nil, domain.ErrInvalidToken
	}

	var id *domain.Identity
	err := u.withStore(ctx, "consume_link", func(ctx context.Context) error {
		var err error
		id, err = u.links.Consume(ctx, hashToken(rawToken), u.now())
		return err
	})
	metrics.VerificationsTotal.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		return nil, err
	}
	return id, nil
}

// RequestMagicLink is the login entry point: rate limit, issue, build the URL
// and hand it to the deliverer. A delivery failure leaves a valid link behind;
// the caller may simply ask again.
func (u *AuthUsecase) RequestMagicLink(ctx context.Context, emailAddr string) error {
	addr, err := u.normalizeEmail(emailAddr)
	if err != nil {
		return err
	}

	if err := u.checkRateLimit(ctx, addr); err != nil {
		return err
	}

	issued, err := u.Issue(ctx, addr)
	if err != nil {
		return err
	}

	link, err := BuildLink(u.cfg.MagicLinkBase, issued.Token)
	if err != nil {
		return fmt.Errorf("build link: %w", err)
	}

	if err := u.deliverer.Deliver(ctx, addr, link); err != nil {
		metrics.DeliveriesTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("deliver magic link: %w: %w", domain.ErrDeliveryFailed, err)
	}
	metrics.DeliveriesTotal.WithLabelValues("delivered").Inc()

	u.logger.InfoContext(ctx, "magic link sent", "user_id", issued.UserID, "expires_at", issued.ExpiresAt)
	return nil
}

// VerifyMagicLink redeems rawToken and signs a session for the holder.
func (u *AuthUsecase) VerifyMagicLink(ctx context.Context, rawToken string) (*VerifiedSession, error) {
	id, err := u.Verify(ctx, rawToken)
	if err != nil {
		return nil, err
	}

	signed, err := u.sessions.Sign(*id)
	if err != nil {
		return nil, err
	}

	u.logger.InfoContext(ctx, "magic link redeemed", "user_id", id.UserID)
	return &VerifiedSession{Identity: *id, Token: signed}, nil
}

// resolveUser retries once on a constraint violation: the competing insert
// has committed by then and the re-read finds it.
func (u *AuthUsecase) resolveUser(ctx context.Context, addr string) (*domain.User, error) {
	var user *domain.User
	resolve := func(ctx context.Context) error {
		var err error
		user, err = u.users.ResolveOrCreate(ctx, addr)
		return err
	}

	err := u.withStore(ctx, "resolve_user", resolve)
	if errors.Is(err, domain.ErrConstraintViolation) {
		u.logger.WarnContext(ctx, "user upsert raced, re-resolving", "error", err)
		err = u.withStore(ctx, "resolve_user", resolve)
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (u *AuthUsecase) checkRateLimit(ctx context.Context, addr string) error {
	if u.limiter == nil || u.cfg.IssueLimit <= 0 {
		return nil
	}

	allowed, _, err := u.limiter.Allow(ctx, addr, u.cfg.IssueLimit, u.cfg.IssueWindow)
	if err != nil {
		// Fail open: a limiter outage must not block sign-in.
		u.logger.WarnContext(ctx, "rate limiter unavailable", "error", err)
		return nil
	}
	if !allowed {
		metrics.RateLimitedTotal.Inc()
		return &domain.RateLimitError{RetryAfter: u.cfg.IssueWindow}
	}
	return nil
}

// withStore bounds a store call by StoreTimeout and records its latency. A
// deadline hit is reported as ErrStoreUnavailable whatever the store said.
func (u *AuthUsecase) withStore(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, u.cfg.StoreTimeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	metrics.StoreLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, domain.ErrStoreUnavailable) {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
	}
	return err
}

func (u *AuthUsecase) normalizeEmail(raw string) (string, error) {
	addr := strings.ToLower(strings.TrimSpace(raw))
	if err := u.validate.Var(addr, "required,email,max=254"); err != nil {
		return "", domain.ErrInvalidEmail
	}
	return addr, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrInvalidToken):
		return "invalid"
	case errors.Is(err, domain.ErrTokenExpired):
		return "expired"
	case errors.Is(err, domain.ErrTokenAlreadyUsed):
		return "already_used"
	default:
		return "error"
	}
}
