package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ErlanBelekov/magic-link-auth/internal/domain"
	"github.com/ErlanBelekov/magic-link-auth/internal/infrastructure/memory"
	"github.com/ErlanBelekov/magic-link-auth/internal/usecase"
)

// clock is a settable time source shared by the usecase under test.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func newCore(t *testing.T) (*usecase.AuthUsecase, *memory.Store, *clock) {
	t.Helper()
	store := memory.NewStore()
	clk := &clock{now: testNow}
	uc := usecase.NewAuthUsecase(store, store, nil, nil, nil, testConfig(), discardLogger())
	uc.SetClock(clk.Now)
	return uc, store, clk
}

func TestLifecycle_ResolveIsIdempotent(t *testing.T) {
	uc, store, _ := newCore(t)
	ctx := context.Background()

	first, err := uc.Issue(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("first issue: %v", err)
	}
	second, err := uc.Issue(ctx, "A@X.com")
	if err != nil {
		t.Fatalf("second issue: %v", err)
	}

	if first.UserID != second.UserID {
		t.Errorf("user ids differ: %q vs %q", first.UserID, second.UserID)
	}
	if n := store.UserCount(); n != 1 {
		t.Errorf("user rows = %d, want 1", n)
	}
}

func TestLifecycle_RoundTrip(t *testing.T) {
	uc, _, _ := newCore(t)
	ctx := context.Background()

	t1, err := uc.Issue(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if want := testNow.Add(15 * time.Minute); !t1.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", t1.ExpiresAt, want)
	}

	id, err := uc.Verify(ctx, t1.Token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id.Email != "a@x.com" {
		t.Errorf("email = %q, want a@x.com", id.Email)
	}

	t2, err := uc.Issue(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("second issue: %v", err)
	}
	if t2.Token == t1.Token {
		t.Error("second issue returned the same token")
	}
	if t2.UserID != id.UserID {
		t.Errorf("second token bound to %q, want %q", t2.UserID, id.UserID)
	}
}

func TestLifecycle_SingleUse(t *testing.T) {
	uc, _, clk := newCore(t)
	ctx := context.Background()

	issued, err := uc.Issue(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := uc.Verify(ctx, issued.Token); err != nil {
		t.Fatalf("first verify: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := uc.Verify(ctx, issued.Token); !errors.Is(err, domain.ErrTokenAlreadyUsed) {
			t.Errorf("repeat verify %d: want ErrTokenAlreadyUsed, got %v", i+1, err)
		}
	}

	// Used then expired still reports used.
	clk.Set(testNow.Add(time.Hour))
	if _, err := uc.Verify(ctx, issued.Token); !errors.Is(err, domain.ErrTokenAlreadyUsed) {
		t.Errorf("verify after expiry: want ErrTokenAlreadyUsed, got %v", err)
	}
}

func TestLifecycle_ExpiryBoundary(t *testing.T) {
	cases := []struct {
		name    string
		elapsed time.Duration
		wantErr error
	}{
		{"just before expiry", 14*time.Minute + 59*time.Second, nil},
		{"exactly at expiry", 15 * time.Minute, nil},
		{"just after expiry", 15*time.Minute + time.Second, domain.ErrTokenExpired},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			uc, _, clk := newCore(t)
			ctx := context.Background()

			issued, err := uc.Issue(ctx, "a@x.com")
			if err != nil {
				t.Fatalf("issue: %v", err)
			}

			clk.Set(testNow.Add(tc.elapsed))
			_, err = uc.Verify(ctx, issued.Token)
			if tc.wantErr == nil && err != nil {
				t.Fatalf("want success, got %v", err)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("want %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestLifecycle_ExpiredTokenIsNotConsumed(t *testing.T) {
	uc, store, clk := newCore(t)
	ctx := context.Background()

	issued, err := uc.Issue(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	clk.Set(testNow.Add(time.Hour))
	if _, err := uc.Verify(ctx, issued.Token); !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("want ErrTokenExpired, got %v", err)
	}
	if _, err := uc.Verify(ctx, issued.Token); !errors.Is(err, domain.ErrTokenExpired) {
		t.Errorf("second attempt: want ErrTokenExpired, got %v", err)
	}

	ml, ok := store.Link(sha(issued.Token))
	if !ok {
		t.Fatal("link missing from store")
	}
	if ml.UsedAt != nil {
		t.Error("expired link was marked used")
	}
}

func TestLifecycle_UnknownToken(t *testing.T) {
	uc, _, _ := newCore(t)
	ctx := context.Background()

	for _, tok := range []string{"nonexistent-token-xyz", wellFormed} {
		if _, err := uc.Verify(ctx, tok); !errors.Is(err, domain.ErrInvalidToken) {
			t.Errorf("Verify(%q): want ErrInvalidToken, got %v", tok, err)
		}
	}
}

func TestLifecycle_ConcurrentRedemption(t *testing.T) {
	const n = 64

	uc, _, _ := newCore(t)
	ctx := context.Background()

	issued, err := uc.Issue(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	var (
		wg        sync.WaitGroup
		start     = make(chan struct{})
		successes = make(chan *domain.Identity, n)
		failures  = make(chan error, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			id, err := uc.Verify(ctx, issued.Token)
			if err != nil {
				failures <- err
				return
			}
			successes <- id
		}()
	}
	close(start)
	wg.Wait()
	close(successes)
	close(failures)

	if got := len(successes); got != 1 {
		t.Fatalf("successes = %d, want exactly 1", got)
	}
	if id := <-successes; id.Email != "a@x.com" {
		t.Errorf("winner email = %q", id.Email)
	}
	count := 0
	for err := range failures {
		count++
		if !errors.Is(err, domain.ErrTokenAlreadyUsed) {
			t.Errorf("loser error = %v, want ErrTokenAlreadyUsed", err)
		}
	}
	if count != n-1 {
		t.Errorf("failures = %d, want %d", count, n-1)
	}
}

func TestLifecycle_ConcurrentIssueSameAddress(t *testing.T) {
	const n = 32

	uc, store, _ := newCore(t)
	ctx := context.Background()

	var (
		wg  sync.WaitGroup
		ids = make(chan string, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			issued, err := uc.Issue(ctx, "race@x.com")
			if err != nil {
				t.Errorf("issue: %v", err)
				return
			}
			ids <- issued.UserID
		}()
	}
	wg.Wait()
	close(ids)

	var first string
	for id := range ids {
		if first == "" {
			first = id
		}
		if id != first {
			t.Errorf("user id %q differs from %q", id, first)
		}
	}
	if got := store.UserCount(); got != 1 {
		t.Errorf("user rows = %d, want 1", got)
	}
}
