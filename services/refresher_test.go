package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facility-finder/models"
	"facility-finder/storage"
	"facility-finder/utils"
)

type countingPurger struct{ calls int }

func (p *countingPurger) PurgeExpired(context.Context) (int64, error) {
	p.calls++
	return 3, nil
}

func cachedAt(at time.Time) *models.GoogleCache {
	return &models.GoogleCache{PlaceID: "old", GoogleName: "Old Name", LastUpdated: at}
}

func TestRefresherRunOnce(t *testing.T) {
	fresh := models.Facility{CCN: "1", ProviderName: "Fresh Home", GoogleCache: cachedAt(fixedNow.Add(-24 * time.Hour))}
	stale := models.Facility{CCN: "2", ProviderName: "Stale Home", GoogleCache: cachedAt(fixedNow.Add(-40 * 24 * time.Hour))}
	never := models.Facility{CCN: "3", ProviderName: "Unknown Home"}
	store := storage.NewMemoryStore(fresh, stale, never)

	places := newFakePlaces()
	places.add("Stale Home", "p2", sampleDetails("Stale Home Care", 1))

	enricher, queue := newTestEnricher(places, store, fixedNow)
	purger := &countingPurger{}
	r := NewRefresher(store, enricher, 2, 0, 10, 30*24*time.Hour, utils.NewNopLogger()).WithPurger(purger)

	stats, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	queue.Close()

	assert.Equal(t, RefreshStats{Candidates: 2, Refreshed: 1, Unresolved: 1, Purged: 3}, stats)
	assert.Equal(t, 1, purger.calls)

	snap := store.Snapshot("2")
	require.NotNil(t, snap)
	assert.Equal(t, "Stale Home Care", snap.GoogleName)
	assert.Equal(t, fixedNow.UTC(), snap.LastUpdated)

	assert.Equal(t, "Old Name", store.Snapshot("1").GoogleName)
	assert.Nil(t, store.Snapshot("3"))
}

func TestRefresherStopsSubmittingWhenCancelled(t *testing.T) {
	store := storage.NewMemoryStore(
		models.Facility{CCN: "1", ProviderName: "Sunrise Care"},
		models.Facility{CCN: "2", ProviderName: "Other Home"},
	)
	places := newFakePlaces()
	places.add("Sunrise Care", "p1", sampleDetails("Sunrise Care", 1))
	enricher, queue := newTestEnricher(places, store, fixedNow)
	defer queue.Close()
	purger := &countingPurger{}
	r := NewRefresher(store, enricher, 1, 0, 10, time.Hour, utils.NewNopLogger()).WithPurger(purger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stats, err := r.RunOnce(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, RefreshStats{Candidates: 2, Skipped: 2}, stats)
	assert.Zero(t, purger.calls)

	// Claimed keys are released, so the next sweep picks them up.
	stats, err = r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Skipped)
	assert.Equal(t, 1, stats.Refreshed)
}

func TestRefresherBatchSize(t *testing.T) {
	store := storage.NewMemoryStore(
		models.Facility{CCN: "1", ProviderName: "A"},
		models.Facility{CCN: "2", ProviderName: "B"},
		models.Facility{CCN: "3", ProviderName: "C"},
	)
	enricher, queue := newTestEnricher(newFakePlaces(), store, fixedNow)
	defer queue.Close()

	stats, err := NewRefresher(store, enricher, 1, 0, 2, time.Hour, utils.NewNopLogger()).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Candidates)
	assert.Equal(t, 2, stats.Unresolved)
}

func TestRefresherSchedule(t *testing.T) {
	store := storage.NewMemoryStore()
	enricher, queue := newTestEnricher(newFakePlaces(), store, fixedNow)
	defer queue.Close()
	r := NewRefresher(store, enricher, 1, 0, 10, time.Hour, utils.NewNopLogger())

	assert.Error(t, r.Start("not a schedule"))
	require.NoError(t, r.Start("0 3 * * *"))
	r.Stop()
	r.Stop()
}
