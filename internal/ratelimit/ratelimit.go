// Package ratelimit caps how often a key (a normalised email address) may
// request a new magic link.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter reports whether one more event for key fits in the last window.
// remaining is how many events are still allowed after this one.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (allowed bool, remaining int, err error)
	Reset(ctx context.Context, key string) error
}

// MemoryLimiter is a sliding-window log kept in process memory. It only limits
// requests served by this process.
type MemoryLimiter struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string][]time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		now:     time.Now,
		entries: make(map[string][]time.Time),
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-window)

	kept := l.entries[key][:0]
	for _, ts := range l.entries[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= limit {
		l.entries[key] = kept
		return false, 0, nil
	}

	kept = append(kept, now)
	l.entries[key] = kept
	return true, limit - len(kept), nil
}

func (l *MemoryLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
	return nil
}
