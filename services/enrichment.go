package services

import (
	"context"
	"strings"
	"time"

	"facility-finder/models"
	"facility-finder/utils"
)

// MaxPhotos is the number of photo references kept per facility.
const MaxPhotos = 4

// EnrichmentCache serves place data for facilities from the snapshot embedded
// in each document, refreshing it from the place lookup when stale.
type EnrichmentCache struct {
	places PlaceLookup
	queue  *WritebackQueue
	ttl    time.Duration
	now    func() time.Time
	logger *utils.Logger
}

// NewEnrichmentCache creates a cache whose snapshots expire after ttl.
func NewEnrichmentCache(places PlaceLookup, queue *WritebackQueue, ttl time.Duration, logger *utils.Logger) *EnrichmentCache {
	return &EnrichmentCache{
		places: places,
		queue:  queue,
		ttl:    ttl,
		now:    time.Now,
		logger: logger,
	}
}

// Fresh reports whether the snapshot is younger than the TTL.
func (e *EnrichmentCache) Fresh(c *models.GoogleCache) bool {
	if c == nil || c.LastUpdated.IsZero() {
		return false
	}
	return e.now().Sub(c.LastUpdated) < e.ttl
}

// Get returns place data for f. It never fails: anything unresolved yields
// the empty result.
func (e *EnrichmentCache) Get(ctx context.Context, f *models.Facility) models.EnrichmentResult {
	if e.Fresh(f.GoogleCache) {
		return e.fromSnapshot(f.GoogleCache)
	}
	res, _ := e.Refresh(ctx, f)
	return res
}

// Refresh looks the facility up again regardless of snapshot age. The bool
// reports whether a place was found.
func (e *EnrichmentCache) Refresh(ctx context.Context, f *models.Facility) (models.EnrichmentResult, bool) {
	placeID := e.findPlaceID(ctx, f)
	if placeID == "" {
		e.logger.Debug("[enrich] no place found for %s (%s)", f.CCN, f.ProviderName)
		return models.EmptyEnrichment(), false
	}

	details, err := e.places.PlaceDetails(ctx, placeID)
	if err != nil {
		e.logger.Warn("[enrich] details for %s failed: %v", f.CCN, err)
		return models.EmptyEnrichment(), false
	}
	if details == nil {
		return models.EmptyEnrichment(), false
	}

	refs := details.Photos
	if len(refs) > MaxPhotos {
		refs = refs[:MaxPhotos]
	}
	reviews := details.Reviews
	if reviews == nil {
		reviews = []models.Review{}
	}

	snapshot := &models.GoogleCache{
		PlaceID:         placeID,
		GoogleName:      details.Name,
		Rating:          details.Rating,
		Lat:             details.Lat,
		Lng:             details.Lng,
		PhotoReferences: append([]string{}, refs...),
		Reviews:         reviews,
		LastUpdated:     e.now().UTC(),
	}
	if e.queue != nil && f.CCN != "" {
		e.queue.Enqueue(f.CCN, snapshot)
	}
	return e.fromSnapshot(snapshot), true
}

// findPlaceID tries the name alone, then with the zip, then with the city.
func (e *EnrichmentCache) findPlaceID(ctx context.Context, f *models.Facility) string {
	name := strings.TrimSpace(f.ProviderName)
	if name == "" {
		return ""
	}

	candidates := []string{name}
	if zip := strings.TrimSpace(f.Zip); zip != "" {
		candidates = append(candidates, name+" "+zip)
	}
	if city := strings.TrimSpace(f.City); city != "" {
		candidates = append(candidates, name+" "+city)
	}

	for _, text := range candidates {
		id, err := e.places.FindPlaceID(ctx, text)
		if err != nil {
			e.logger.Warn("[enrich] place search %q failed: %v", text, err)
			continue
		}
		if id != "" {
			return id
		}
	}
	return ""
}

func (e *EnrichmentCache) fromSnapshot(c *models.GoogleCache) models.EnrichmentResult {
	res := models.EmptyEnrichment()
	if c.GoogleName != "" {
		name := c.GoogleName
		res.DisplayName = &name
	}
	res.Rating = c.Rating
	res.Lat = c.Lat
	res.Lng = c.Lng

	refs := c.PhotoReferences
	if len(refs) > MaxPhotos {
		refs = refs[:MaxPhotos]
	}
	for _, ref := range refs {
		if u := e.places.PhotoURL(ref); u != "" {
			res.PhotoURLs = append(res.PhotoURLs, u)
		}
	}
	if c.Reviews != nil {
		res.Reviews = c.Reviews
	}
	return res
}
