package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/brightline-health/intake-api/internal/models"
)

// SnapshotCache serves a shared availability snapshot with a bounded refresh
// interval. The snapshot is published with an atomic pointer swap: readers
// always observe a complete old or new snapshot, never a mix.
type SnapshotCache struct {
	source   AvailabilitySource
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time

	current   atomic.Pointer[models.Snapshot]
	refreshMu sync.Mutex
}

// NewSnapshotCache constructs a cache over the given source.
func NewSnapshotCache(source AvailabilitySource, interval time.Duration, logger *zap.Logger) *SnapshotCache {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotCache{source: source, interval: interval, logger: logger, now: time.Now}
}

// Snapshot returns the current snapshot, loading or refreshing it when stale.
// Callers must treat the result as read-only and eventually consistent.
func (c *SnapshotCache) Snapshot(ctx context.Context) (*models.Snapshot, error) {
	if snap := c.current.Load(); snap != nil && c.now().Sub(snap.LoadedAt) < c.interval {
		return snap, nil
	}
	return c.Refresh(ctx)
}

// Refresh performs a full reload and swaps the snapshot in. Concurrent
// callers collapse onto a single load; a failed refresh keeps serving the
// previous snapshot when one exists.
func (c *SnapshotCache) Refresh(ctx context.Context) (*models.Snapshot, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	// Another caller may have refreshed while we waited on the lock.
	if snap := c.current.Load(); snap != nil && c.now().Sub(snap.LoadedAt) < c.interval {
		return snap, nil
	}

	records, rejected, err := c.source.Load(ctx)
	if err != nil {
		if stale := c.current.Load(); stale != nil {
			c.logger.Warn("availability refresh failed, serving stale snapshot",
				zap.Error(err), zap.Time("loaded_at", stale.LoadedAt))
			return stale, nil
		}
		return nil, err
	}

	snap := &models.Snapshot{Records: records, Rejected: rejected, LoadedAt: c.now()}
	c.current.Store(snap)
	c.logger.Info("availability snapshot refreshed",
		zap.Int("records", len(records)), zap.Int("rejected", rejected))
	return snap, nil
}

// ForceRefresh ignores the freshness check and reloads immediately.
func (c *SnapshotCache) ForceRefresh(ctx context.Context) (*models.Snapshot, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	records, rejected, err := c.source.Load(ctx)
	if err != nil {
		return nil, err
	}
	snap := &models.Snapshot{Records: records, Rejected: rejected, LoadedAt: c.now()}
	c.current.Store(snap)
	return snap, nil
}

// Stats returns the current snapshot without triggering a load. It may be
// nil before the first successful refresh.
func (c *SnapshotCache) Stats() *models.Snapshot {
	return c.current.Load()
}

// Run refreshes the snapshot on a fixed ticker until the context is
// cancelled. Intended to be launched as a background goroutine.
func (c *SnapshotCache) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.ForceRefresh(ctx); err != nil {
				c.logger.Warn("scheduled availability refresh failed", zap.Error(err))
			}
		}
	}
}
