// Package session turns a verified identity into a bearer token that callers
// present as proof of being authenticated. It carries the user id and email
// and nothing else; there is no refresh or revocation.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/ErlanBelekov/magic-link-auth/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

type Signer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewSigner(key []byte, ttl time.Duration) *Signer {
	return &Signer{key: key, ttl: ttl, now: time.Now}
}

func (s *Signer) Sign(id domain.Identity) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":   id.UserID,
		"email": id.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(s.ttl).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

// Parse validates the signature and expiry and returns the embedded identity.
func (s *Signer) Parse(raw string) (domain.Identity, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.key, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return domain.Identity{}, domain.ErrUnauthorized
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return domain.Identity{}, domain.ErrUnauthorized
	}
	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	if sub == "" {
		return domain.Identity{}, domain.ErrUnauthorized
	}
	return domain.Identity{UserID: sub, Email: email}, nil
}
