package models

import (
	"encoding/json"
	"reflect"
	"strings"
	"time"
)

// GeoPoint is a GeoJSON point. Coordinates are [longitude, latitude].
type GeoPoint struct {
	Type        string    `bson:"type" json:"type"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates"`
}

// NewGeoPoint builds a GeoJSON point from a latitude/longitude pair.
func NewGeoPoint(lat, lng float64) *GeoPoint {
	return &GeoPoint{Type: "Point", Coordinates: []float64{lng, lat}}
}

// Facility is a long-term-care provider as stored in the primary store.
// Identity is the CMS certification number.
type Facility struct {
	CCN                    string  `bson:"cms_certification_number_ccn" json:"cms_certification_number_ccn"`
	ProviderName           string  `bson:"provider_name" json:"provider_name"`
	ProviderAddress        string  `bson:"provider_address,omitempty" json:"provider_address,omitempty"`
	City                   string  `bson:"city_town,omitempty" json:"city_town,omitempty"`
	State                  string  `bson:"state,omitempty" json:"state,omitempty"`
	Zip                    string  `bson:"zip_code,omitempty" json:"zip_code,omitempty"`
	Telephone              string  `bson:"telephone_number,omitempty" json:"telephone_number,omitempty"`
	County                 string  `bson:"county_parish,omitempty" json:"county_parish,omitempty"`
	OwnershipType          string  `bson:"ownership_type,omitempty" json:"ownership_type,omitempty"`
	ProviderType           string  `bson:"provider_type,omitempty" json:"provider_type,omitempty"`
	CertifiedBeds          int     `bson:"number_of_certified_beds,omitempty" json:"number_of_certified_beds,omitempty"`
	AverageResidentsPerDay float64 `bson:"average_number_of_residents_per_day,omitempty" json:"average_number_of_residents_per_day,omitempty"`
	ChainName              string  `bson:"chain_name,omitempty" json:"chain_name,omitempty"`

	// Quality ratings are published as text and may be blank.
	OverallRating          string `bson:"overall_rating,omitempty" json:"overall_rating,omitempty"`
	HealthInspectionRating string `bson:"health_inspection_rating,omitempty" json:"health_inspection_rating,omitempty"`
	StaffingRating         string `bson:"staffing_rating,omitempty" json:"staffing_rating,omitempty"`
	QMRating               string `bson:"qm_rating,omitempty" json:"qm_rating,omitempty"`

	Latitude    float64   `bson:"latitude,omitempty" json:"latitude,omitempty"`
	Longitude   float64   `bson:"longitude,omitempty" json:"longitude,omitempty"`
	GeoLocation *GeoPoint `bson:"geoLocation,omitempty" json:"geoLocation,omitempty"`

	GoogleCache *GoogleCache `bson:"googleCache,omitempty" json:"-"`

	// DistanceMeters is set by the proximity stage only.
	DistanceMeters *float64 `bson:"distance_m,omitempty" json:"-"`

	UpdatedAt time.Time `bson:"updatedAt,omitempty" json:"-"`

	// Extra holds the remaining published columns. They are stored and
	// returned as-is.
	Extra map[string]any `bson:",inline" json:"-"`
}

// EnrichedFacility is a facility merged with place data and the review summary.
type EnrichedFacility struct {
	Facility

	DisplayName *string  `json:"displayName"`
	Rating      *float64 `json:"rating"`
	Lat         *float64 `json:"lat"`
	Lng         *float64 `json:"lng"`

	// List views carry the first photo only; the details view carries all
	// photos and the reviews.
	Photo   *string  `json:"photo"`
	Photos  []string `json:"photos,omitempty"`
	Reviews []Review `json:"reviews,omitempty"`

	DistanceM  *float64 `json:"distance_m,omitempty"`
	DistanceKm *float64 `json:"distance_km,omitempty"`

	AISummary AISummary `json:"aiSummary"`
}

// enrichedKeys are the JSON and BSON keys owned by EnrichedFacility fields.
var enrichedKeys = fieldKeys(reflect.TypeOf(EnrichedFacility{}))

// ExtraColumns returns a copy of extra without the document id and keys
// that belong to a dedicated field.
func ExtraColumns(extra map[string]any) map[string]any {
	if len(extra) == 0 {
		return nil
	}
	out := make(map[string]any, len(extra))
	for k, v := range extra {
		if _, owned := enrichedKeys[k]; owned || k == "_id" {
			continue
		}
		out[k] = v
	}
	return out
}

type plainEnriched EnrichedFacility

// MarshalJSON writes the struct fields and spreads Extra alongside them.
func (e EnrichedFacility) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(plainEnriched(e))
	if err != nil || len(e.Extra) == 0 {
		return data, err
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	for k, v := range e.Extra {
		if _, owned := enrichedKeys[k]; owned {
			continue
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		doc[k] = raw
	}
	return json.Marshal(doc)
}

// UnmarshalJSON reads the struct fields and collects unknown keys into Extra.
func (e *EnrichedFacility) UnmarshalJSON(data []byte) error {
	var p plainEnriched
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	for k, raw := range doc {
		if _, owned := enrichedKeys[k]; owned {
			continue
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		if p.Extra == nil {
			p.Extra = make(map[string]any)
		}
		p.Extra[k] = v
	}

	*e = EnrichedFacility(p)
	return nil
}

func fieldKeys(t reflect.Type) map[string]struct{} {
	keys := make(map[string]struct{})
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous {
			for k := range fieldKeys(f.Type) {
				keys[k] = struct{}{}
			}
			continue
		}
		for _, tag := range []string{"json", "bson"} {
			name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
			if name != "" && name != "-" {
				keys[name] = struct{}{}
			}
		}
	}
	return keys
}
