package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/ErlanBelekov/magic-link-auth/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestStoreErr(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"unique", &pgconn.PgError{Code: "23505"}, domain.ErrConstraintViolation},
		{"foreign key", &pgconn.PgError{Code: "23503"}, domain.ErrUserNotFound},
		{"other server error", &pgconn.PgError{Code: "57P01"}, domain.ErrStoreUnavailable},
		{"timeout", context.DeadlineExceeded, domain.ErrStoreUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := storeErr("op", tc.err)
			if !errors.Is(got, tc.want) {
				t.Errorf("storeErr(%v) = %v, want %v", tc.err, got, tc.want)
			}
			if !errors.Is(got, tc.err) {
				t.Errorf("driver error not preserved in %v", got)
			}
		})
	}
}
