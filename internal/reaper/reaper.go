// SPDX-License-Identifier: Apache-2.0

package reaper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/adiadia/idempotent-payments/internal/metrics"
)

// Reclaimer deletes Processing idempotency records older than olderThan
// and reports how many it removed.
type Reclaimer interface {
	ReclaimStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

type Deps struct {
	Reclaimer  Reclaimer
	Logger     *slog.Logger
	StaleAfter time.Duration
	Interval   time.Duration
}

// Reaper frees idempotency keys whose creating request never completed,
// so a client retry can be admitted again. Completed records are never touched.
type Reaper struct {
	reclaimer  Reclaimer
	logger     *slog.Logger
	staleAfter time.Duration
	interval   time.Duration
}

func New(deps Deps) *Reaper {
	if deps.Reclaimer == nil {
		panic("reaper: nil reclaimer")
	}

	l := deps.Logger
	if l == nil {
		l = slog.Default()
	}

	staleAfter := deps.StaleAfter
	if staleAfter <= 0 {
		staleAfter = 5 * time.Minute
	}

	interval := deps.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	metrics.Init()

	return &Reaper{
		reclaimer:  deps.Reclaimer,
		logger:     l,
		staleAfter: staleAfter,
		interval:   interval,
	}
}

func (r *Reaper) ProcessOnce(ctx context.Context) (int64, error) {
	n, err := r.reclaimer.ReclaimStale(ctx, r.staleAfter)
	if err != nil {
		r.logger.Error("reclaim stale idempotency records failed", "error", err)
		return 0, err
	}

	if n > 0 {
		metrics.AddRecordsReclaimed(n)
		r.logger.Info("stale idempotency records reclaimed",
			"count", n,
			"stale_after", r.staleAfter.String(),
		)
	}
	return n, nil
}

// Run calls ProcessOnce every interval until ctx is done. Errors from a
// single pass are logged and do not stop the loop.
func (r *Reaper) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("reaper started",
		"interval", r.interval.String(),
		"stale_after", r.staleAfter.String(),
	)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reaper stopped")
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			_, _ = r.ProcessOnce(ctx)
		}
	}
}
