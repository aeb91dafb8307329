package handler

import (
	"errors"
	"net/http"

	"github.com/ErlanBelekov/magic-link-auth/internal/domain"
)

const (
	errInternalServer   = "Internal server error"
	errInvalidEmail     = "Email address is invalid"
	errRateLimited      = "Too many sign-in requests, try again later"
	errTokenInvalid     = "Token is invalid"
	errTokenExpired     = "Token has expired"
	errTokenUsed        = "Token has already been used"
	errStoreUnavailable = "Service temporarily unavailable"
)

// verifyStatus maps a redemption failure to its HTTP status and message.
func verifyStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidToken):
		return http.StatusUnauthorized, errTokenInvalid
	case errors.Is(err, domain.ErrTokenExpired):
		return http.StatusGone, errTokenExpired
	case errors.Is(err, domain.ErrTokenAlreadyUsed):
		return http.StatusConflict, errTokenUsed
	case errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, errStoreUnavailable
	default:
		return http.StatusInternalServerError, errInternalServer
	}
}
