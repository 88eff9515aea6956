package services

import (
	"context"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"facility-finder/models"
	"facility-finder/query"
	"facility-finder/utils"
)

// GeoResolver turns place names into search centers. Successful lookups are
// memoized by canonical name.
type GeoResolver struct {
	geocoder Geocoder
	memo     *lru.Cache[string, models.LatLng]
	logger   *utils.Logger
}

// NewGeoResolver creates a resolver that remembers up to size lookups.
func NewGeoResolver(geocoder Geocoder, size int, logger *utils.Logger) (*GeoResolver, error) {
	if size < 1 {
		size = 1
	}
	memo, err := lru.New[string, models.LatLng](size)
	if err != nil {
		return nil, fmt.Errorf("geo: create memo: %w", err)
	}
	return &GeoResolver{geocoder: geocoder, memo: memo, logger: logger}, nil
}

// Resolve geocodes a single place name.
func (r *GeoResolver) Resolve(ctx context.Context, name string) (models.LatLng, error) {
	key := query.CanonicalText(name)
	if key == "" {
		return models.LatLng{}, &models.GeocodeError{Place: name, Status: "EMPTY_NAME"}
	}
	if pos, ok := r.memo.Get(key); ok {
		return pos, nil
	}

	pos, err := r.geocoder.Geocode(ctx, strings.TrimSpace(name))
	if err != nil {
		return models.LatLng{}, err
	}
	r.memo.Add(key, pos)
	r.logger.Debug("[geo] %q resolved to (%.5f, %.5f)", name, pos.Lat, pos.Lng)
	return pos, nil
}

// ResolveRoute geocodes both ends of a trip and returns the circle covering it.
func (r *GeoResolver) ResolveRoute(ctx context.Context, from, to string) (models.LatLng, float64, error) {
	a, err := r.Resolve(ctx, from)
	if err != nil {
		return models.LatLng{}, 0, err
	}
	b, err := r.Resolve(ctx, to)
	if err != nil {
		return models.LatLng{}, 0, err
	}
	center, radius := query.RouteCircle(a, b)
	return center, radius, nil
}

// ResolveDescriptor fills in the center of a place or route descriptor.
func (r *GeoResolver) ResolveDescriptor(ctx context.Context, desc *query.Descriptor) error {
	switch desc.Geo {
	case query.GeoPlace:
		pos, err := r.Resolve(ctx, desc.PlaceName)
		if err != nil {
			return err
		}
		desc.Center = &pos
	case query.GeoRoute:
		center, radius, err := r.ResolveRoute(ctx, desc.RouteFrom, desc.RouteTo)
		if err != nil {
			return err
		}
		desc.Center = &center
		desc.RadiusKm = radius
	}
	return nil
}
