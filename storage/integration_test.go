package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facility-finder/models"
	"facility-finder/query"
)

func TestMongoStoreIntegration(t *testing.T) {
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}
	ctx := context.Background()

	s, err := NewMongoStore(ctx, uri, "facility_finder_test", "facilities_"+time.Now().Format("150405"))
	require.NoError(t, err)
	defer func() {
		_ = s.coll.Drop(ctx)
		_ = s.Close(ctx)
	}()
	require.NoError(t, s.EnsureIndexes(ctx))

	_, err = s.BulkUpsert(ctx, []models.Facility{
		{CCN: "near", ProviderName: "Near Care", State: "CA", Latitude: 34.045, Longitude: -118.0},
		{CCN: "far", ProviderName: "Far Care", State: "CA", Latitude: 34.135, Longitude: -118.0},
	})
	require.NoError(t, err)

	center := models.LatLng{Lat: 34.0, Lng: -118.0}
	desc := &query.Descriptor{Center: &center, RadiusKm: 10, Text: query.TextFilter{State: "ca"}}
	got, err := s.Query(ctx, query.Build(desc, 10))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "near", got[0].CCN)
	require.NotNil(t, got[0].DistanceMeters)
	assert.InDelta(t, 5000, *got[0].DistanceMeters, 50)

	cache := &models.GoogleCache{PlaceID: "p", GoogleName: "Near Care LLC", LastUpdated: time.Now().UTC()}
	require.NoError(t, s.UpdateEnrichment(ctx, "near", cache))

	f, err := s.FindByName(ctx, "near c")
	require.NoError(t, err)
	require.NotNil(t, f.GoogleCache)
	assert.Equal(t, "Near Care LLC", f.GoogleCache.GoogleName)

	stale, err := s.FindStale(ctx, time.Now().Add(-time.Hour), 0)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "far", stale[0].CCN)
}

func TestRedisKVIntegration(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()

	kv, err := NewRedisKV(ctx, addr, "", 0)
	require.NoError(t, err)
	defer kv.Close()

	key := "facility-finder:test:" + time.Now().Format(time.RFC3339Nano)
	_, ok, err := kv.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set(ctx, key, `[{"a":1}]`, time.Minute))
	val, ok, err := kv.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"a":1}]`, val)
}

func TestPostgresKVIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()

	kv, err := NewPostgresKV(dsn)
	require.NoError(t, err)
	defer kv.Close()

	key := "test:" + time.Now().Format(time.RFC3339Nano)
	require.NoError(t, kv.Set(ctx, key, "v1", time.Minute))
	require.NoError(t, kv.Set(ctx, key, "v2", time.Minute))

	val, ok, err := kv.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v2", val)

	require.NoError(t, kv.Set(ctx, key, "gone", -time.Second))
	_, ok, err = kv.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := kv.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(1))
}
