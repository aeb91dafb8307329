package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/ErlanBelekov/magic-link-auth/internal/domain"
	"github.com/ErlanBelekov/magic-link-auth/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ repository.MagicLinkRepository = (*MagicLinkRepository)(nil)

type MagicLinkRepository struct {
	pool *pgxpool.Pool
}

func NewMagicLinkRepository(pool *pgxpool.Pool) *MagicLinkRepository {
	return &MagicLinkRepository{pool: pool}
}

func (r *MagicLinkRepository) Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) (*domain.MagicLink, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO magic_links (id, user_id, token_hash, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, token_hash, expires_at, used_at, created_at`,
		uuid.NewString(), userID, tokenHash, expiresAt,
	)

	var ml domain.MagicLink
	if err := row.Scan(&ml.ID, &ml.UserID, &ml.TokenHash, &ml.ExpiresAt, &ml.UsedAt, &ml.CreatedAt); err != nil {
		return nil, storeErr("create magic link", err)
	}
	return &ml, nil
}

// Consume claims the link in one conditional UPDATE: only a row that is still
// unused and unexpired at now can flip used_at, so concurrent callers cannot
// both win. When nothing was claimed a follow-up read explains why, checking
// used before expired.
func (r *MagicLinkRepository) Consume(ctx context.Context, tokenHash string, now time.Time) (*domain.Identity, error) {
	var id domain.Identity
	err := r.pool.QueryRow(ctx, `
		WITH claimed AS (
			UPDATE magic_links
			SET    used_at = $2
			WHERE  token_hash = $1
			  AND  used_at IS NULL
			  AND  expires_at >= $2
			RETURNING user_id
		)
		SELECT u.id, u.email
		FROM   claimed c
		JOIN   users u ON u.id = c.user_id`,
		tokenHash, now,
	).Scan(&id.UserID, &id.Email)
	if err == nil {
		return &id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, storeErr("consume magic link", err)
	}

	var (
		usedAt    *time.Time
		expiresAt time.Time
	)
	err = r.pool.QueryRow(ctx,
		`SELECT used_at, expires_at FROM magic_links WHERE token_hash = $1`, tokenHash,
	).Scan(&usedAt, &expiresAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, domain.ErrInvalidToken
	case err != nil:
		return nil, storeErr("classify magic link", err)
	case usedAt != nil:
		return nil, domain.ErrTokenAlreadyUsed
	default:
		return nil, domain.ErrTokenExpired
	}
}

// PurgeBefore deletes up to limit links that expired before cutoff.
func (r *MagicLinkRepository) PurgeBefore(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM magic_links
		WHERE id IN (
			SELECT id FROM magic_links
			WHERE  expires_at < $1
			ORDER BY expires_at ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)`, cutoff, limit)
	if err != nil {
		return 0, storeErr("purge magic links", err)
	}
	return int(tag.RowsAffected()), nil
}
