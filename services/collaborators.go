package services

import (
	"context"

	"facility-finder/models"
)

// PlaceLookup finds places and their details by text.
type PlaceLookup interface {
	FindPlaceID(ctx context.Context, text string) (string, error)
	PlaceDetails(ctx context.Context, placeID string) (*models.PlaceDetails, error)
	PhotoURL(ref string) string
}

// Geocoder turns an address or place name into coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (models.LatLng, error)
}

// Completer returns a text completion for a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
