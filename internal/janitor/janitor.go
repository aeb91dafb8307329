// Package janitor deletes magic links that can no longer be redeemed once
// they are older than the retention period. Users are never touched.
package janitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ErlanBelekov/magic-link-auth/internal/metrics"
	"github.com/ErlanBelekov/magic-link-auth/internal/repository"
	"github.com/robfig/cron/v3"
)

const defaultBatch = 500

type Janitor struct {
	links     repository.MagicLinkRepository
	logger    *slog.Logger
	retention time.Duration
	batch     int
	now       func() time.Time
}

func New(links repository.MagicLinkRepository, logger *slog.Logger, retention time.Duration) *Janitor {
	return &Janitor{
		links:     links,
		logger:    logger.With("component", "janitor"),
		retention: retention,
		batch:     defaultBatch,
		now:       time.Now,
	}
}

// Run sweeps on the given cron schedule until ctx is cancelled, then waits for
// an in-flight sweep to finish.
func (j *Janitor) Run(ctx context.Context, spec string) error {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() { j.sweepAndRecord(ctx) }); err != nil {
		return fmt.Errorf("janitor schedule %q: %w", spec, err)
	}

	j.logger.Info("janitor started", "schedule", spec, "retention", j.retention)
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	j.logger.Info("janitor shut down")
	return nil
}

func (j *Janitor) sweepAndRecord(ctx context.Context) {
	start := time.Now()
	n, err := j.Sweep(ctx)
	metrics.JanitorCycleDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		j.logger.Error("janitor sweep", "error", err, "purged", n)
		return
	}
	if n > 0 {
		j.logger.Info("janitor purged links", "count", n)
	}
}

// Sweep deletes every link that expired more than retention ago, in batches,
// and returns how many went.
func (j *Janitor) Sweep(ctx context.Context) (int, error) {
	cutoff := j.now().Add(-j.retention)

	total := 0
	for {
		n, err := j.links.PurgeBefore(ctx, cutoff, j.batch)
		total += n
		metrics.JanitorPurgedTotal.Add(float64(n))
		if err != nil {
			return total, err
		}
		if n < j.batch {
			return total, nil
		}
	}
}
