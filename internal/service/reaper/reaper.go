package reaper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type staleDeactivator interface {
	DeactivateStale(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)
}

// Reaper periodically deactivates ACTIVE accounts whose last transfer (or
// creation, if they never transferred) is older than the threshold.
type Reaper struct {
	accounts  staleDeactivator
	logger    *slog.Logger
	interval  time.Duration
	threshold time.Duration
	now       func() time.Time
}

func New(accounts staleDeactivator, logger *slog.Logger, interval, threshold time.Duration) *Reaper {
	return &Reaper{
		accounts:  accounts,
		logger:    logger,
		interval:  interval,
		threshold: threshold,
		now:       time.Now,
	}
}

func (r *Reaper) Start(ctx context.Context) {
	r.logger.Info("stale account reaper started", "interval", r.interval, "threshold", r.threshold)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("stale account reaper stopped")
			return
		case <-ticker.C:
			if _, err := r.Sweep(ctx); err != nil {
				r.logger.Error("stale account sweep failed", "error", err)
			}
		}
	}
}

// Sweep runs one pass and returns the ids it deactivated. Running it again
// immediately is a no-op.
func (r *Reaper) Sweep(ctx context.Context) ([]uuid.UUID, error) {
	cutoff := r.now().UTC().Add(-r.threshold)

	ids, err := r.accounts.DeactivateStale(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("Sweep: %w", err)
	}

	for _, id := range ids {
		r.logger.Info("account deactivated for inactivity", "account_id", id)
	}
	r.logger.Info("stale account sweep completed", "deactivated", len(ids), "cutoff", cutoff)

	return ids, nil
}
