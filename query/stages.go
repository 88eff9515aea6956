package query

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"facility-finder/models"
)

// DistanceField is where the proximity stage writes the distance in meters.
const DistanceField = "distance_m"

// Stage is one step of a facility query. Render produces the aggregation
// stage; Apply evaluates the same step over an in-memory slice.
type Stage interface {
	Name() string
	Render() bson.D
	Apply(in []models.Facility) []models.Facility
}

// Predicate is one attribute condition of the primary filter.
type Predicate interface {
	Filter() bson.E
	Match(f *models.Facility) bool
}

// CityContains matches facilities whose city contains the text, ignoring case.
type CityContains struct{ City string }

func (p CityContains) Filter() bson.E {
	return bson.E{Key: "city_town", Value: bson.D{
		{Key: "$regex", Value: regexp.QuoteMeta(p.City)},
		{Key: "$options", Value: "i"},
	}}
}

func (p CityContains) Match(f *models.Facility) bool {
	return strings.Contains(strings.ToLower(f.City), strings.ToLower(p.City))
}

// StateEquals matches the two-letter region code, ignoring case.
type StateEquals struct{ Code string }

func (p StateEquals) Filter() bson.E {
	return bson.E{Key: "state", Value: bson.D{
		{Key: "$regex", Value: "^" + regexp.QuoteMeta(p.Code) + "$"},
		{Key: "$options", Value: "i"},
	}}
}

func (p StateEquals) Match(f *models.Facility) bool {
	return strings.EqualFold(strings.TrimSpace(f.State), p.Code)
}

// ZipEquals matches the postal code exactly.
type ZipEquals struct{ Zip string }

func (p ZipEquals) Filter() bson.E {
	return bson.E{Key: "zip_code", Value: p.Zip}
}

func (p ZipEquals) Match(f *models.Facility) bool {
	return strings.TrimSpace(f.Zip) == p.Zip
}

// BedsBetween bounds the certified bed count. Either bound may be nil.
type BedsBetween struct {
	Min *int
	Max *int
}

func (p BedsBetween) Filter() bson.E {
	cond := bson.D{}
	if p.Min != nil {
		cond = append(cond, bson.E{Key: "$gte", Value: *p.Min})
	}
	if p.Max != nil {
		cond = append(cond, bson.E{Key: "$lte", Value: *p.Max})
	}
	return bson.E{Key: "number_of_certified_beds", Value: cond}
}

func (p BedsBetween) Match(f *models.Facility) bool {
	if p.Min != nil && f.CertifiedBeds < *p.Min {
		return false
	}
	if p.Max != nil && f.CertifiedBeds > *p.Max {
		return false
	}
	return true
}

// OwnershipIn matches any of the listed ownership types, ignoring case.
type OwnershipIn struct{ Types []string }

func (p OwnershipIn) Filter() bson.E {
	patterns := make(bson.A, 0, len(p.Types))
	for _, t := range p.Types {
		patterns = append(patterns, primitive.Regex{Pattern: "^" + regexp.QuoteMeta(t) + "$", Options: "i"})
	}
	return bson.E{Key: "ownership_type", Value: bson.D{{Key: "$in", Value: patterns}}}
}

func (p OwnershipIn) Match(f *models.Facility) bool {
	own := strings.TrimSpace(f.OwnershipType)
	for _, t := range p.Types {
		if strings.EqualFold(own, t) {
			return true
		}
	}
	return false
}

func filterDoc(preds []Predicate) bson.D {
	doc := bson.D{}
	for _, p := range preds {
		doc = append(doc, p.Filter())
	}
	return doc
}

func matchAll(preds []Predicate, f *models.Facility) bool {
	for _, p := range preds {
		if !p.Match(f) {
			return false
		}
	}
	return true
}

// Proximity keeps facilities within RadiusKm of Center, nearest first, and
// annotates each with its distance. Predicates run as the $geoNear pre-filter.
type Proximity struct {
	Center     models.LatLng
	RadiusKm   float64
	Predicates []Predicate
}

func (s *Proximity) Name() string { return "proximity" }

func (s *Proximity) Render() bson.D {
	return bson.D{{Key: "$geoNear", Value: bson.D{
		{Key: "near", Value: bson.D{
			{Key: "type", Value: "Point"},
			{Key: "coordinates", Value: bson.A{s.Center.Lng, s.Center.Lat}},
		}},
		{Key: "key", Value: "geoLocation"},
		{Key: "distanceField", Value: DistanceField},
		{Key: "maxDistance", Value: s.RadiusKm * 1000},
		{Key: "spherical", Value: true},
		{Key: "query", Value: filterDoc(s.Predicates)},
	}}}
}

func (s *Proximity) Apply(in []models.Facility) []models.Facility {
	maxMeters := s.RadiusKm * 1000
	out := make([]models.Facility, 0, len(in))
	for _, f := range in {
		pos, ok := position(&f)
		if !ok || !matchAll(s.Predicates, &f) {
			continue
		}
		meters := HaversineKm(s.Center, pos) * 1000
		if meters > maxMeters {
			continue
		}
		f.DistanceMeters = &meters
		out = append(out, f)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return *out[i].DistanceMeters < *out[j].DistanceMeters
	})
	return out
}

func position(f *models.Facility) (models.LatLng, bool) {
	if g := f.GeoLocation; g != nil && len(g.Coordinates) == 2 {
		return models.LatLng{Lat: g.Coordinates[1], Lng: g.Coordinates[0]}, true
	}
	if f.Latitude != 0 || f.Longitude != 0 {
		return models.LatLng{Lat: f.Latitude, Lng: f.Longitude}, true
	}
	return models.LatLng{}, false
}

// Match applies the attribute predicates when there is no proximity stage.
type Match struct {
	Predicates []Predicate
}

func (s *Match) Name() string { return "match" }

func (s *Match) Render() bson.D {
	return bson.D{{Key: "$match", Value: filterDoc(s.Predicates)}}
}

func (s *Match) Apply(in []models.Facility) []models.Facility {
	out := make([]models.Facility, 0, len(in))
	for _, f := range in {
		if matchAll(s.Predicates, &f) {
			out = append(out, f)
		}
	}
	return out
}

// MinRating keeps facilities whose overall rating is at least Min.
// Blank or unparseable ratings count as 0.
type MinRating struct {
	Min float64
}

func (s *MinRating) Name() string { return "min_rating" }

func (s *MinRating) Render() bson.D {
	return bson.D{{Key: "$match", Value: bson.D{
		{Key: "$expr", Value: bson.D{{Key: "$gte", Value: bson.A{
			bson.D{{Key: "$convert", Value: bson.D{
				{Key: "input", Value: "$overall_rating"},
				{Key: "to", Value: "double"},
				{Key: "onError", Value: 0},
				{Key: "onNull", Value: 0},
			}}},
			s.Min,
		}}}},
	}}}
}

func (s *MinRating) Apply(in []models.Facility) []models.Facility {
	out := make([]models.Facility, 0, len(in))
	for _, f := range in {
		if OverallRating(&f) >= s.Min {
			out = append(out, f)
		}
	}
	return out
}

// OverallRating parses the text rating, treating blanks as 0.
func OverallRating(f *models.Facility) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(f.OverallRating), 64)
	if err != nil {
		return 0
	}
	return v
}

// Limit caps the number of results.
type Limit struct {
	N int
}

func (s *Limit) Name() string { return "limit" }

func (s *Limit) Render() bson.D {
	return bson.D{{Key: "$limit", Value: s.N}}
}

func (s *Limit) Apply(in []models.Facility) []models.Facility {
	if len(in) > s.N {
		return in[:s.N]
	}
	return in
}
