package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"facility-finder/models"
	"facility-finder/query"
)

// parseQuery reads the search parameters. Present but malformed numbers are
// a ValidationError.
func parseQuery(c *gin.Context) (query.RawQuery, error) {
	raw := query.RawQuery{
		Text:         c.Query("q"),
		City:         c.Query("city"),
		State:        c.Query("state"),
		Zip:          c.Query("zip"),
		LocationName: c.Query("locationName"),
		RouteFrom:    c.Query("routeFrom"),
		RouteTo:      c.Query("routeTo"),
	}

	var err error
	if raw.Lat, err = floatParam(c, "userLat"); err != nil {
		return raw, err
	}
	if raw.Lng, err = floatParam(c, "userLng"); err != nil {
		return raw, err
	}
	if raw.RadiusKm, err = floatParam(c, "distanceKm"); err != nil {
		return raw, err
	}
	if raw.RatingMin, err = floatParam(c, "ratingMin"); err != nil {
		return raw, err
	}
	if raw.BedsMin, err = intParam(c, "bedsMin"); err != nil {
		return raw, err
	}
	if raw.BedsMax, err = intParam(c, "bedsMax"); err != nil {
		return raw, err
	}
	if own := c.Query("ownership"); own != "" {
		raw.Ownership = strings.Split(own, ",")
	}
	return raw, nil
}

func floatParam(c *gin.Context, name string) (*float64, error) {
	s := strings.TrimSpace(c.Query(name))
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, models.NewValidationError(name, "must be a number")
	}
	return &v, nil
}

func intParam(c *gin.Context, name string) (*int, error) {
	s := strings.TrimSpace(c.Query(name))
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, models.NewValidationError(name, "must be an integer")
	}
	return &v, nil
}
