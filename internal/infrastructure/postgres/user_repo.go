package postgres

import (
	"context"
	"errors"

	"github.com/ErlanBelekov/magic-link-auth/internal/domain"
	"github.com/ErlanBelekov/magic-link-auth/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ repository.UserRepository = (*UserRepository)(nil)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// ResolveOrCreate inserts the user unless the email is already taken, then
// falls back to reading the existing row. The unique index on email makes
// concurrent callers converge on a single id.
func (r *UserRepository) ResolveOrCreate(ctx context.Context, email string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (id, email) VALUES ($1, $2)
		ON CONFLICT (email) DO NOTHING
		RETURNING id, email, created_at, updated_at`,
		uuid.NewString(), email,
	)
	u, err := scanUser(row)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	u, err = r.findByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		// Conflict reported but the row is not visible yet.
		return nil, domain.ErrConstraintViolation
	}
	return u, err
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, email, created_at, updated_at FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *UserRepository) findByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, email, created_at, updated_at FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, storeErr("scan user", err)
	}
	return &u, nil
}
