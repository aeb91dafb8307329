// Package memory is an in-process implementation of the user and magic link
// repositories. Every method runs under one mutex, which gives Consume the same
// compare-and-swap guarantee the Postgres store gets from its conditional
// UPDATE. It backs the unit, property and race tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ErlanBelekov/magic-link-auth/internal/domain"
	"github.com/ErlanBelekov/magic-link-auth/internal/repository"
	"github.com/google/uuid"
)

var (
	_ repository.UserRepository      = (*Store)(nil)
	_ repository.MagicLinkRepository = (*Store)(nil)
)

type Store struct {
	mu      sync.Mutex
	now     func() time.Time
	users   map[string]*domain.User // by id
	byEmail map[string]string       // email -> id
	links   map[string]*domain.MagicLink
}

func NewStore() *Store {
	return &Store{
		now:     time.Now,
		users:   make(map[string]*domain.User),
		byEmail: make(map[string]string),
		links:   make(map[string]*domain.MagicLink),
	}
}

func (s *Store) ResolveOrCreate(ctx context.Context, email string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, storeErr(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byEmail[email]; ok {
		u := *s.users[id]
		return &u, nil
	}

	now := s.now()
	u := &domain.User{ID: uuid.NewString(), Email: email, CreatedAt: now, UpdatedAt: now}
	s.users[u.ID] = u
	s.byEmail[email] = u.ID
	out := *u
	return &out, nil
}

func (s *Store) FindByID(ctx context.Context, id string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, storeErr(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	out := *u
	return &out, nil
}

func (s *Store) Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) (*domain.MagicLink, error) {
	if err := ctx.Err(); err != nil {
		return nil, storeErr(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return nil, domain.ErrUserNotFound
	}
	if _, dup := s.links[tokenHash]; dup {
		return nil, domain.ErrConstraintViolation
	}

	ml := &domain.MagicLink{
		ID:        uuid.NewString(),
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: s.now(),
	}
	s.links[tokenHash] = ml
	out := *ml
	return &out, nil
}

func (s *Store) Consume(ctx context.Context, tokenHash string, now time.Time) (*domain.Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, storeErr(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ml, ok := s.links[tokenHash]
	if !ok {
		return nil, domain.ErrInvalidToken
	}
	if !ml.Usable(now) {
		if ml.UsedAt != nil {
			return nil, domain.ErrTokenAlreadyUsed
		}
		return nil, domain.ErrTokenExpired
	}

	usedAt := now
	ml.UsedAt = &usedAt
	u := s.users[ml.UserID]
	return &domain.Identity{UserID: u.ID, Email: u.Email}, nil
}

func (s *Store) PurgeBefore(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, storeErr(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var stale []*domain.MagicLink
	for _, ml := range s.links {
		if ml.ExpiresAt.Before(cutoff) {
			stale = append(stale, ml)
		}
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i].ExpiresAt.Before(stale[j].ExpiresAt) })
	if len(stale) > limit {
		stale = stale[:limit]
	}
	for _, ml := range stale {
		delete(s.links, ml.TokenHash)
	}
	return len(stale), nil
}

// Link returns a copy of the stored link for tokenHash.
func (s *Store) Link(tokenHash string) (domain.MagicLink, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ml, ok := s.links[tokenHash]
	if !ok {
		return domain.MagicLink{}, false
	}
	return *ml, true
}

// UserCount returns the number of stored users.
func (s *Store) UserCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}
