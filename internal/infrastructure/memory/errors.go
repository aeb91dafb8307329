package memory

import (
	"fmt"

	"github.com/ErlanBelekov/magic-link-auth/internal/domain"
)

func storeErr(err error) error {
	return fmt.Errorf("memory store: %w: %w", domain.ErrStoreUnavailable, err)
}
