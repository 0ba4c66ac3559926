package queue

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docvault/docvault/internal/config"
	"github.com/docvault/docvault/internal/models"
)

type staticSourceLister struct {
	mu      sync.Mutex
	sources []models.Source
}

func (l *staticSourceLister) ListInterval(ctx context.Context) ([]models.Source, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.Source(nil), l.sources...), nil
}

func (l *staticSourceLister) set(sources ...models.Source) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sources = sources
}

func watchFolderSource(interval int) models.Source {
	return models.Source{
		ID:              uuid.New(),
		Type:            models.SourceWatchFolder,
		Label:           "inbox",
		Enabled:         true,
		IntervalSeconds: interval,
	}
}

func newTestScheduler(lister IntervalSourceLister) *Scheduler {
	return NewScheduler(config.RedisConfig{Addr: "localhost:6379"}, lister)
}

func TestSchedulerSyncRegistersAndRemoves(t *testing.T) {
	ctx := context.Background()
	lister := &staticSourceLister{}
	a, b := watchFolderSource(30), watchFolderSource(45)
	lister.set(a, b)

	s := newTestScheduler(lister)
	require.NoError(t, s.Sync(ctx))
	assert.Len(t, s.entries, 2)

	lister.set(b)
	require.NoError(t, s.Sync(ctx))
	require.Len(t, s.entries, 1)
	assert.Contains(t, s.entries, b.ID.String())
}

func TestSchedulerSyncReplacesChangedInterval(t *testing.T) {
	ctx := context.Background()
	lister := &staticSourceLister{}
	source := watchFolderSource(5)
	lister.set(source)

	s := newTestScheduler(lister)
	require.NoError(t, s.Sync(ctx))
	before := s.entries[source.ID.String()]
	assert.Equal(t, 5, before.interval)

	source.IntervalSeconds = 600
	lister.set(source)
	require.NoError(t, s.Sync(ctx))

	after := s.entries[source.ID.String()]
	assert.Equal(t, 600, after.interval)
	assert.NotEqual(t, before.id, after.id, "an interval edit replaces the timer entry")
}

func TestSchedulerSyncUnchangedSourceKeepsEntry(t *testing.T) {
	ctx := context.Background()
	lister := &staticSourceLister{}
	source := watchFolderSource(30)
	lister.set(source)

	s := newTestScheduler(lister)
	require.NoError(t, s.Sync(ctx))
	before := s.entries[source.ID.String()]

	require.NoError(t, s.Sync(ctx))
	assert.Equal(t, before, s.entries[source.ID.String()], "no churn without a config change")
}

func TestSchedulerSyncFloorsInterval(t *testing.T) {
	ctx := context.Background()
	lister := &staticSourceLister{}
	source := watchFolderSource(0)
	lister.set(source)

	s := newTestScheduler(lister)
	require.NoError(t, s.Sync(ctx))
	assert.Equal(t, 60, s.entries[source.ID.String()].interval)
}
