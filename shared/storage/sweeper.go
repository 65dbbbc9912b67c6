package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Sweeper purges analyses older than a TTL so the next request for those
// videos recomputes them. It runs as a scheduler job.
type Sweeper struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

func NewSweeper(store Store, ttl time.Duration) *Sweeper {
	return &Sweeper{store: store, ttl: ttl, now: time.Now}
}

func (s *Sweeper) Name() string {
	return "analysis-sweep"
}

func (s *Sweeper) RunOnce(ctx context.Context) error {
	cutoff := s.now().Add(-s.ttl)
	purged, err := s.store.PurgeAnalysesBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to purge analyses: %w", err)
	}
	if purged > 0 {
		slog.Info("purged expired analyses", "count", purged, "cutoff", cutoff)
	}
	return nil
}
