package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrInvalidEmail        = errors.New("email address is invalid")
	ErrInvalidToken        = errors.New("token is invalid")
	ErrTokenExpired        = errors.New("token has expired")
	ErrTokenAlreadyUsed    = errors.New("token has already been used")
	ErrStoreUnavailable    = errors.New("store unavailable")
	ErrConstraintViolation = errors.New("store constraint violation")
	ErrDeliveryFailed      = errors.New("link delivery failed")
	ErrRateLimited         = errors.New("too many link requests")
	ErrUnauthorized        = errors.New("unauthorized")
)

type User struct {
	ID        string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MagicLink is the persisted form of an issued token. Only the SHA-256 of the
// token is stored; the raw value lives in the delivered URL.
type MagicLink struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	UsedAt    *time.Time // nil until consumed
	CreatedAt time.Time
}

// Usable reports whether the link can still be redeemed at now.
func (m *MagicLink) Usable(now time.Time) bool {
	return m.UsedAt == nil && !now.After(m.ExpiresAt)
}

// IssuedLink is handed back to the caller of Issue. Token is the raw value to
// embed in the link; it is never persisted.
type IssuedLink struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
}

// Identity is what a successful verification resolves to.
type Identity struct {
	UserID string
	Email  string
}

// RateLimitError is returned when an address has requested too many links.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s, retry after %s", ErrRateLimited, e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }
