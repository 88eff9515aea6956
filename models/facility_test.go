package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrichedFacilityJSONSpreadsExtraColumns(t *testing.T) {
	e := EnrichedFacility{
		Facility: Facility{
			CCN:          "100001",
			ProviderName: "Sunrise Care",
			Extra: map[string]any{
				"provider_ssa_county_code": "210",
				"provider_name":            "shadowed",
			},
		},
	}

	data, err := json.Marshal(e)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "210", doc["provider_ssa_county_code"])
	assert.Equal(t, "Sunrise Care", doc["provider_name"])
	assert.Contains(t, doc, "photo")
	assert.Nil(t, doc["photo"])
	assert.Contains(t, doc, "aiSummary")
}

func TestEnrichedFacilityJSONCollectsUnknownKeys(t *testing.T) {
	var e EnrichedFacility
	require.NoError(t, json.Unmarshal([]byte(`{
		"cms_certification_number_ccn": "100001",
		"provider_name": "Sunrise Care",
		"photo": "https://img/1",
		"googleCache": {"placeId": "p1"},
		"number_of_residents_in_certified_beds": 88
	}`), &e))

	assert.Equal(t, "100001", e.CCN)
	require.NotNil(t, e.Photo)
	assert.Equal(t, "https://img/1", *e.Photo)
	assert.Nil(t, e.GoogleCache)
	assert.Equal(t, map[string]any{"number_of_residents_in_certified_beds": float64(88)}, e.Extra)

	again, err := json.Marshal(e)
	require.NoError(t, err)
	var back EnrichedFacility
	require.NoError(t, json.Unmarshal(again, &back))
	assert.Equal(t, e, back)
}

func TestEnrichedFacilityWithoutExtraHasNoUnknownKeys(t *testing.T) {
	data, err := json.Marshal(EnrichedFacility{Facility: Facility{CCN: "1", ProviderName: "A"}})
	require.NoError(t, err)

	var e EnrichedFacility
	require.NoError(t, json.Unmarshal(data, &e))
	assert.Nil(t, e.Extra)
}

func TestExtraColumns(t *testing.T) {
	assert.Nil(t, ExtraColumns(nil))

	in := map[string]any{
		"_id":                      "x",
		"googleCache":              map[string]any{},
		"updatedAt":                "2024-01-01",
		"state":                    "CA",
		"provider_ssa_county_code": "210",
	}
	out := ExtraColumns(in)
	assert.Equal(t, map[string]any{"provider_ssa_county_code": "210"}, out)
	assert.Len(t, in, 5)
}
