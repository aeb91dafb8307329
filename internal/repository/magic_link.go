package repository

import (
	"context"
	"time"

	"github.com/ErlanBelekov/magic-link-auth/internal/domain"
)

// MagicLinkRepository persists issued links. Consume must claim the link with a
// single conditional write so that only one caller can ever succeed.
type MagicLinkRepository interface {
	Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) (*domain.MagicLink, error)
	Consume(ctx context.Context, tokenHash string, now time.Time) (*domain.Identity, error)
	PurgeBefore(ctx context.Context, cutoff time.Time, limit int) (int, error)
}
