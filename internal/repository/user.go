package repository

import (
	"context"

	"github.com/ErlanBelekov/magic-link-auth/internal/domain"
)

// UserRepository is the identity store. ResolveOrCreate must rely on a
// storage-level unique constraint on email, not a check-then-insert.
type UserRepository interface {
	ResolveOrCreate(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
}
