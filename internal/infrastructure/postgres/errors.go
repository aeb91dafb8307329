package postgres

import (
	"errors"
	"fmt"

	"github.com/ErlanBelekov/magic-link-auth/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// storeErr tags a driver failure with the domain error kind callers branch on.
// Timeouts, refused connections and server errors all surface as
// ErrStoreUnavailable.
func storeErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return fmt.Errorf("%s: %w: %w", op, domain.ErrConstraintViolation, err)
		case foreignKeyViolation:
			return fmt.Errorf("%s: %w: %w", op, domain.ErrUserNotFound, err)
		}
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}
