package models

// SearchReport holds aggregated statistics over one search result.
type SearchReport struct {
	Total       int
	WithPlace   int
	WithSummary int

	// AverageStars is the mean CMS overall rating of rated facilities.
	AverageStars  float64
	AverageGoogle float64

	Nearest     *EnrichedFacility
	TopRated    []EnrichedFacility
	ByOwnership map[string]int
}
