package services

import (
	"context"
	"encoding/json"
	"time"

	"facility-finder/models"
	"facility-finder/query"
	"facility-finder/storage"
	"facility-finder/utils"
)

const resultKeyPrefix = "facilities:"

// ResultCache stores assembled search responses keyed by variant and
// normalized query. Failures are logged and never surfaced.
type ResultCache struct {
	kv     storage.KV
	ttl    time.Duration
	logger *utils.Logger
}

// NewResultCache creates a ResultCache on top of kv.
func NewResultCache(kv storage.KV, ttl time.Duration, logger *utils.Logger) *ResultCache {
	return &ResultCache{kv: kv, ttl: ttl, logger: logger}
}

// Key returns the storage key for a variant and normalized query key.
func (c *ResultCache) Key(variant Variant, key string) string {
	return resultKeyPrefix + string(variant) + ":" + key
}

// Get returns the cached response, or false on a miss or any failure.
func (c *ResultCache) Get(ctx context.Context, variant Variant, key string) ([]models.EnrichedFacility, bool) {
	if key == "" || key == query.InvalidKey {
		return nil, false
	}

	raw, ok, err := c.kv.Get(ctx, c.Key(variant, key))
	if err != nil {
		c.logger.Warn("[cache] read %s failed, treating as miss: %v", key, err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var results []models.EnrichedFacility
	if err := json.Unmarshal([]byte(raw), &results); err != nil {
		c.logger.Warn("[cache] corrupt entry %s ignored: %v", key, err)
		return nil, false
	}
	return results, true
}

// Set stores a response. Empty results and the invalid key are skipped.
func (c *ResultCache) Set(ctx context.Context, variant Variant, key string, results []models.EnrichedFacility) {
	if len(results) == 0 || key == "" || key == query.InvalidKey {
		return
	}

	data, err := json.Marshal(results)
	if err != nil {
		c.logger.Warn("[cache] encode %s failed: %v", key, err)
		return
	}
	if err := c.kv.Set(ctx, c.Key(variant, key), string(data), c.ttl); err != nil {
		c.logger.Warn("[cache] write %s failed: %v", key, err)
	}
}
