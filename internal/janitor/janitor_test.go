package janitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ErlanBelekov/magic-link-auth/internal/domain"
	"github.com/ErlanBelekov/magic-link-auth/internal/infrastructure/memory"
	"github.com/ErlanBelekov/magic-link-auth/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var now = time.Date(2026, 4, 8, 9, 0, 0, 0, time.UTC)

func newTestJanitor(store *memory.Store) *Janitor {
	j := New(store, slog.New(slog.NewTextHandler(io.Discard, nil)), 24*time.Hour)
	j.batch = 2
	j.now = func() time.Time { return now }
	return j
}

func seed(t *testing.T, store *memory.Store, expiries ...time.Time) {
	t.Helper()
	ctx := context.Background()
	u, err := store.ResolveOrCreate(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	for i, exp := range expiries {
		if _, err := store.Create(ctx, u.ID, fmt.Sprintf("hash-%d", i), exp); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
}

func TestSweep_DeletesOnlyPastRetention(t *testing.T) {
	store := memory.NewStore()
	seed(t, store,
		now.Add(-72*time.Hour),
		now.Add(-48*time.Hour),
		now.Add(-25*time.Hour),
		now.Add(-23*time.Hour), // inside retention
		now.Add(time.Minute),   // still live
	)

	before := testutil.ToFloat64(metrics.JanitorPurgedTotal)
	n, err := newTestJanitor(store).Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 3 {
		t.Errorf("purged = %d, want 3", n)
	}
	if got := testutil.ToFloat64(metrics.JanitorPurgedTotal) - before; got != 3 {
		t.Errorf("purged counter delta = %v, want 3", got)
	}

	for i, want := range []bool{false, false, false, true, true} {
		if _, ok := store.Link(fmt.Sprintf("hash-%d", i)); ok != want {
			t.Errorf("hash-%d present = %v, want %v", i, ok, want)
		}
	}
	if store.UserCount() != 1 {
		t.Error("users must never be purged")
	}
}

func TestSweep_Empty(t *testing.T) {
	n, err := newTestJanitor(memory.NewStore()).Sweep(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("sweep = %d, %v; want 0, nil", n, err)
	}
}

func TestSweep_StoreError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestJanitor(memory.NewStore()).Sweep(ctx)
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("want ErrStoreUnavailable, got %v", err)
	}
}

func TestRun_RejectsBadSchedule(t *testing.T) {
	err := newTestJanitor(memory.NewStore()).Run(context.Background(), "not a cron")
	if err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- newTestJanitor(memory.NewStore()).Run(ctx, "@every 1h") }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("janitor did not stop")
	}
}
