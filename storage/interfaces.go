package storage

import (
	"context"
	"time"

	"facility-finder/models"
	"facility-finder/query"
)

// FacilityStore is the interface any primary store backend must satisfy.
type FacilityStore interface {
	EnrichmentWriter

	Query(ctx context.Context, plan *query.Plan) ([]models.Facility, error)
	FindByCCN(ctx context.Context, ccn string) (*models.Facility, error)
	FindByName(ctx context.Context, name string) (*models.Facility, error)
	BulkUpsert(ctx context.Context, facilities []models.Facility) (int, error)
	FindStale(ctx context.Context, olderThan time.Time, limit int) ([]models.Facility, error)
	EnsureIndexes(ctx context.Context) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// EnrichmentWriter persists the embedded place-data snapshot of one facility.
type EnrichmentWriter interface {
	UpdateEnrichment(ctx context.Context, ccn string, cache *models.GoogleCache) error
}

// KV is a string key-value store with per-entry expiry.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Close() error
}

// FacilityExporter writes assembled results to an export sink.
type FacilityExporter interface {
	Write(facilities []models.EnrichedFacility) error
	Close() error
}
