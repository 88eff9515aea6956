package query

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"facility-finder/models"
)

// InvalidKey is the cache key for queries that carry neither coordinates nor
// text. Callers must not read or write the result cache with it.
const InvalidKey = "invalid"

var zipRegexp = regexp.MustCompile(`^\d{5}$`)

// GeoMode says how the search center is obtained.
type GeoMode int

const (
	GeoNone GeoMode = iota
	GeoCoordinates
	GeoPlace
	GeoRoute
)

func (m GeoMode) String() string {
	switch m {
	case GeoCoordinates:
		return "coordinates"
	case GeoPlace:
		return "place"
	case GeoRoute:
		return "route"
	default:
		return "none"
	}
}

// RawQuery is the consumer-facing filter input after type parsing.
type RawQuery struct {
	Text string

	Lat      *float64
	Lng      *float64
	RadiusKm *float64

	City  string
	State string
	Zip   string

	BedsMin   *int
	BedsMax   *int
	Ownership []string
	RatingMin *float64

	LocationName string
	RouteFrom    string
	RouteTo      string
}

// TextFilter holds the locality filters. Empty fields are unset.
type TextFilter struct {
	Zip   string
	State string
	City  string
}

func (t TextFilter) empty() bool {
	return t.Zip == "" && t.State == "" && t.City == ""
}

// AttributeFilters are the numeric and set-membership filters.
type AttributeFilters struct {
	BedsMin   *int
	BedsMax   *int
	Ownership []string
	RatingMin *float64
}

// Descriptor is the canonical form of a search.
type Descriptor struct {
	Geo       GeoMode
	Center    *models.LatLng
	RadiusKm  float64
	PlaceName string
	RouteFrom string
	RouteTo   string

	Text    TextFilter
	Filters AttributeFilters

	Key string
}

// NeedsGeoResolution reports whether the center still has to be geocoded.
func (d *Descriptor) NeedsGeoResolution() bool {
	return (d.Geo == GeoPlace || d.Geo == GeoRoute) && d.Center == nil
}

// Cacheable reports whether the descriptor has a usable result cache key.
func (d *Descriptor) Cacheable() bool {
	return d.Key != "" && d.Key != InvalidKey
}

// Normalizer turns raw filter input into a Descriptor with a deterministic key.
type Normalizer struct{}

// NewNormalizer creates a Normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize validates raw and returns its canonical descriptor.
func (n *Normalizer) Normalize(raw RawQuery) (*Descriptor, error) {
	if err := validate(raw); err != nil {
		return nil, err
	}

	d := &Descriptor{}

	switch {
	case raw.Lat != nil && raw.Lng != nil && raw.RadiusKm != nil:
		d.Geo = GeoCoordinates
		d.Center = &models.LatLng{Lat: *raw.Lat, Lng: *raw.Lng}
		d.RadiusKm = *raw.RadiusKm
	case strings.TrimSpace(raw.LocationName) != "" && raw.RadiusKm != nil:
		d.Geo = GeoPlace
		d.PlaceName = normaliseText(raw.LocationName)
		d.RadiusKm = *raw.RadiusKm
	case strings.TrimSpace(raw.RouteFrom) != "" && strings.TrimSpace(raw.RouteTo) != "":
		d.Geo = GeoRoute
		d.RouteFrom = normaliseText(raw.RouteFrom)
		d.RouteTo = normaliseText(raw.RouteTo)
	}

	d.Text = ClassifyText(raw.Text)
	if city := normaliseText(raw.City); city != "" {
		d.Text.City = city
	}
	if state := strings.TrimSpace(raw.State); state != "" {
		d.Text.State = NormalizeState(state)
	}
	if zip := strings.TrimSpace(raw.Zip); zip != "" {
		d.Text.Zip = zip
	}

	d.Filters = AttributeFilters{
		BedsMin:   raw.BedsMin,
		BedsMax:   raw.BedsMax,
		Ownership: cleanList(raw.Ownership),
		RatingMin: raw.RatingMin,
	}

	d.Key = cacheKey(d, raw)
	return d, nil
}

// ClassifyText sorts a free-text query into a postal code, a region or a locality.
func ClassifyText(text string) TextFilter {
	text = normaliseText(text)
	switch {
	case text == "":
		return TextFilter{}
	case zipRegexp.MatchString(text):
		return TextFilter{Zip: text}
	default:
		if code, ok := RegionCode(text); ok {
			return TextFilter{State: code}
		}
		return TextFilter{City: text}
	}
}

// CanonicalText trims, lower-cases and joins whitespace runs with underscores.
func CanonicalText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), "_"))
}

func validate(raw RawQuery) error {
	if (raw.Lat == nil) != (raw.Lng == nil) {
		return models.NewValidationError("coordinates", "latitude and longitude must be given together")
	}
	if raw.Lat != nil {
		if !finite(*raw.Lat) || *raw.Lat < -90 || *raw.Lat > 90 {
			return models.NewValidationError("userLat", "must be a number between -90 and 90")
		}
		if !finite(*raw.Lng) || *raw.Lng < -180 || *raw.Lng > 180 {
			return models.NewValidationError("userLng", "must be a number between -180 and 180")
		}
	}
	if raw.RadiusKm != nil && (!finite(*raw.RadiusKm) || *raw.RadiusKm <= 0) {
		return models.NewValidationError("distanceKm", "must be a positive number")
	}
	if raw.RatingMin != nil && !finite(*raw.RatingMin) {
		return models.NewValidationError("ratingMin", "must be a number")
	}
	if raw.BedsMin != nil && raw.BedsMax != nil && *raw.BedsMin > *raw.BedsMax {
		return models.NewValidationError("bedsMin", "must not exceed bedsMax")
	}
	if (strings.TrimSpace(raw.RouteFrom) == "") != (strings.TrimSpace(raw.RouteTo) == "") {
		return models.NewValidationError("route", "routeFrom and routeTo must be given together")
	}
	return nil
}

func cacheKey(d *Descriptor, raw RawQuery) string {
	var key string
	switch d.Geo {
	case GeoCoordinates:
		key = fmt.Sprintf("coords:%s,%s:r%s",
			round4(d.Center.Lat), round4(d.Center.Lng), radiusClass(d.RadiusKm))
	case GeoPlace:
		key = fmt.Sprintf("place:%s:r%s", CanonicalText(d.PlaceName), radiusClass(d.RadiusKm))
	case GeoRoute:
		key = "route:" + CanonicalText(d.RouteFrom) + ">" + CanonicalText(d.RouteTo)
	}

	text := textKey(raw, d.Text)
	switch {
	case key == "" && text == "":
		return InvalidKey
	case key == "":
		key = "text:" + text
	case text != "":
		key += "|text:" + text
	}

	f := d.Filters
	if f.BedsMin != nil || f.BedsMax != nil {
		key += "|beds=" + intOrEmpty(f.BedsMin) + "-" + intOrEmpty(f.BedsMax)
	}
	if len(f.Ownership) > 0 {
		own := make([]string, len(f.Ownership))
		for i, o := range f.Ownership {
			own[i] = CanonicalText(o)
		}
		sort.Strings(own)
		key += "|own=" + strings.Join(own, ",")
	}
	if f.RatingMin != nil {
		key += "|rating=" + strconv.FormatFloat(*f.RatingMin, 'f', -1, 64)
	}
	return key
}

// textKey is the free text itself when given, followed by any explicit
// locality parameters.
func textKey(raw RawQuery, t TextFilter) string {
	var parts []string
	if text := CanonicalText(raw.Text); text != "" {
		parts = append(parts, text)
	}
	if strings.TrimSpace(raw.Zip) != "" {
		parts = append(parts, "zip="+t.Zip)
	}
	if strings.TrimSpace(raw.State) != "" {
		parts = append(parts, "state="+strings.ToLower(t.State))
	}
	if strings.TrimSpace(raw.City) != "" {
		parts = append(parts, "city="+CanonicalText(t.City))
	}
	return strings.Join(parts, ";")
}

func round4(v float64) string {
	r := math.Round(v*1e4) / 1e4
	if r == 0 {
		r = 0 // drop the sign of negative zero
	}
	return strconv.FormatFloat(r, 'f', 4, 64)
}

func radiusClass(km float64) string {
	return strconv.FormatFloat(math.Round(km*10)/10, 'f', -1, 64)
}

func intOrEmpty(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = normaliseText(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	s = strings.TrimSpace(s)
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}
