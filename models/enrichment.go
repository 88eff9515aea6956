package models

import "time"

// Review is a single third-party review kept in the enrichment cache.
type Review struct {
	AuthorName string  `bson:"author_name" json:"author_name"`
	Text       string  `bson:"text" json:"text"`
	Rating     float64 `bson:"rating" json:"rating"`
	Time       int64   `bson:"time,omitempty" json:"time,omitempty"`
}

// GoogleCache is the place data snapshot embedded in a facility document.
type GoogleCache struct {
	PlaceID         string    `bson:"placeId" json:"placeId"`
	GoogleName      string    `bson:"googleName" json:"googleName"`
	Rating          *float64  `bson:"rating,omitempty" json:"rating,omitempty"`
	Lat             *float64  `bson:"lat,omitempty" json:"lat,omitempty"`
	Lng             *float64  `bson:"lng,omitempty" json:"lng,omitempty"`
	PhotoReferences []string  `bson:"photoReferences" json:"photoReferences"`
	Reviews         []Review  `bson:"reviews" json:"reviews"`
	LastUpdated     time.Time `bson:"lastUpdated" json:"lastUpdated"`
}

// EnrichmentResult is what the enrichment cache hands back for one facility.
// Unresolved facilities get nil scalars and empty slices.
type EnrichmentResult struct {
	DisplayName *string
	Rating      *float64
	Lat         *float64
	Lng         *float64
	PhotoURLs   []string
	Reviews     []Review
}

// EmptyEnrichment returns the placeholder used when no place data is available.
func EmptyEnrichment() EnrichmentResult {
	return EnrichmentResult{PhotoURLs: []string{}, Reviews: []Review{}}
}

// PlaceDetails is the subset of place details the pipeline consumes.
type PlaceDetails struct {
	Name    string
	Lat     *float64
	Lng     *float64
	Rating  *float64
	Photos  []string // photo references
	Reviews []Review
}

// AISummary is the structured review summary.
type AISummary struct {
	Summary string   `json:"summary"`
	Pros    []string `json:"pros"`
	Cons    []string `json:"cons"`
}

// EmptySummary is the placeholder for facilities without a summary.
func EmptySummary() AISummary {
	return AISummary{Pros: []string{}, Cons: []string{}}
}

// LatLng is a resolved coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}
