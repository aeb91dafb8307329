package usecase

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

const (
	tokenBytes     = 32
	maxTokenLength = 128
)

// newToken returns a fresh random token and the hash that is persisted for it.
func newToken() (raw, hash string, err error) {
	b := make([]byte, tokenBytes)
	if _, err = io.ReadFull(rand.Reader, b); err != nil {
		return "", "", fmt.Errorf("generate token: %w", err)
	}
	raw = hex.EncodeToString(b)
	return raw, hashToken(raw), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// wellFormedToken rejects input that cannot be a token before it reaches the
// store: empty, oversized, or outside the lowercase hex alphabet.
func wellFormedToken(raw string) bool {
	if raw == "" || len(raw) > maxTokenLength {
		return false
	}
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f') {
			return false
		}
	}
	return true
}
