package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightline-health/intake-api/internal/models"
)

type stubSource struct {
	records  []models.AvailabilityRecord
	rejected int
	err      error
	loads    int
}

func (s *stubSource) Load(ctx context.Context) ([]models.AvailabilityRecord, int, error) {
	s.loads++
	if s.err != nil {
		return nil, 0, s.err
	}
	return s.records, s.rejected, nil
}

func TestSnapshotCacheServesWithinInterval(t *testing.T) {
	source := &stubSource{records: []models.AvailabilityRecord{{ID: 1}}, rejected: 2}
	cache := NewSnapshotCache(source, time.Minute, nil)

	first, err := cache.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, source.loads)
	assert.Len(t, first.Records, 1)
	assert.Equal(t, 2, first.Rejected)

	second, err := cache.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, source.loads)
	assert.Same(t, first, second)
}

func TestSnapshotCacheRefreshesWhenStale(t *testing.T) {
	source := &stubSource{records: []models.AvailabilityRecord{{ID: 1}}}
	cache := NewSnapshotCache(source, time.Minute, nil)

	clock := time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return clock }

	_, err := cache.Snapshot(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, source.loads)

	clock = clock.Add(2 * time.Minute)
	source.records = []models.AvailabilityRecord{{ID: 1}, {ID: 2}}

	snap, err := cache.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, source.loads)
	assert.Len(t, snap.Records, 2)
}

func TestSnapshotCacheServesStaleOnFailedRefresh(t *testing.T) {
	source := &stubSource{records: []models.AvailabilityRecord{{ID: 1}}}
	cache := NewSnapshotCache(source, time.Minute, nil)

	clock := time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return clock }

	first, err := cache.Snapshot(context.Background())
	require.NoError(t, err)

	clock = clock.Add(2 * time.Minute)
	source.err = errors.New("source down")

	snap, err := cache.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, snap)
}

func TestSnapshotCacheFirstLoadFailurePropagates(t *testing.T) {
	source := &stubSource{err: errors.New("source down")}
	cache := NewSnapshotCache(source, time.Minute, nil)

	_, err := cache.Snapshot(context.Background())
	require.Error(t, err)
	assert.Nil(t, cache.Stats())
}

func TestSnapshotCacheForceRefreshBypassesInterval(t *testing.T) {
	source := &stubSource{records: []models.AvailabilityRecord{{ID: 1}}}
	cache := NewSnapshotCache(source, time.Hour, nil)

	_, err := cache.Snapshot(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, source.loads)

	source.records = append(source.records, models.AvailabilityRecord{ID: 2})
	snap, err := cache.ForceRefresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, source.loads)
	assert.Len(t, snap.Records, 2)
	assert.Same(t, snap, cache.Stats())
}
