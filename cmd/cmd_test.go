package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facility-finder/services"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := NewRootCmd()

	for _, name := range []string{"serve", "search", "refresh", "seed", "indexes"} {
		sub, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}
}

func TestRootCmd_Help(t *testing.T) {
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"--help"})

	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "facility-finder")
	assert.Contains(t, buf.String(), "search")
}

func TestSearchFlags_OnlySetFlagsBecomePointers(t *testing.T) {
	cmd := newSearchCmd()
	require.NoError(t, cmd.ParseFlags([]string{
		"--lat", "34.05", "--lng", "-118.24", "--radius", "10",
		"--ownership", "Non profit,For profit", "--beds-min", "0",
	}))

	var f searchFlags
	f.lat, _ = cmd.Flags().GetFloat64("lat")
	f.lng, _ = cmd.Flags().GetFloat64("lng")
	f.radiusKm, _ = cmd.Flags().GetFloat64("radius")
	f.ownership, _ = cmd.Flags().GetStringSlice("ownership")
	raw := f.rawQuery(cmd.Flags())

	require.NotNil(t, raw.Lat)
	assert.Equal(t, 34.05, *raw.Lat)
	assert.Equal(t, -118.24, *raw.Lng)
	assert.Equal(t, 10.0, *raw.RadiusKm)
	require.NotNil(t, raw.BedsMin, "an explicit zero is still a filter")
	assert.Nil(t, raw.BedsMax)
	assert.Nil(t, raw.RatingMin)
	assert.Equal(t, []string{"Non profit", "For profit"}, raw.Ownership)
}

func TestParseVariant(t *testing.T) {
	tests := []struct {
		in   string
		want services.Variant
		err  bool
	}{
		{"basic", services.VariantBasic, false},
		{" With-Reviews ", services.VariantWithReviews, false},
		{"filtered", services.VariantFiltered, false},
		{"everything", "", true},
	}
	for _, tt := range tests {
		got, err := parseVariant(tt.in)
		if tt.err {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestLoadSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facilities.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"cms_certification_number_ccn": " 123456 ", "provider_name": "Sunrise Nursing Home",
		 "city_town": "New York", "state": "NY", "latitude": 40.75, "longitude": -73.99,
		 "_id": "stale", "number_of_residents_in_certified_beds": 88, "provider_ssa_county_code": "210"},
		{"provider_name": "No Id Home"},
		{"cms_certification_number_ccn": "789012", "provider_name": "Green Valley Care Center"}
	]`), 0o644))

	facilities, dropped, err := loadSeedFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, dropped)
	require.Len(t, facilities, 2)

	assert.Equal(t, "123456", facilities[0].CCN)
	require.NotNil(t, facilities[0].GeoLocation)
	assert.Equal(t, []float64{-73.99, 40.75}, facilities[0].GeoLocation.Coordinates)
	assert.Nil(t, facilities[1].GeoLocation)

	assert.Equal(t, map[string]any{
		"number_of_residents_in_certified_beds": float64(88),
		"provider_ssa_county_code":              "210",
	}, facilities[0].Extra)
	assert.Empty(t, facilities[1].Extra)
}

func TestLoadSeedFile_Errors(t *testing.T) {
	_, _, err := loadSeedFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"not": "an array"}`), 0o644))
	_, _, err = loadSeedFile(path)
	assert.Error(t, err)
}
