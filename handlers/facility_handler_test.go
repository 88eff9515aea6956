package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facility-finder/models"
	"facility-finder/query"
	"facility-finder/services"
	"facility-finder/utils"
)

type fakeService struct {
	raw     query.RawQuery
	variant services.Variant
	results []models.EnrichedFacility
	err     error
}

func (f *fakeService) Search(_ context.Context, raw query.RawQuery, variant services.Variant) ([]models.EnrichedFacility, error) {
	f.raw = raw
	f.variant = variant
	return f.results, f.err
}

func (f *fakeService) Details(_ context.Context, name string) (*models.EnrichedFacility, error) {
	if name != "sunrise" {
		return nil, models.ErrFacilityNotFound
	}
	return &models.EnrichedFacility{Facility: models.Facility{CCN: "100001", ProviderName: "Sunrise Care"}}, nil
}

func (f *fakeService) FacilityByID(_ context.Context, ccn string) (*services.FacilityIdentity, error) {
	if ccn != "100001" {
		return nil, models.ErrFacilityNotFound
	}
	return &services.FacilityIdentity{CCN: ccn, Name: "Sunrise Care"}, nil
}

func (f *fakeService) LookupPlace(_ context.Context, text string) (*services.PlaceResult, error) {
	if text == "" {
		return nil, models.NewValidationError("q", "is required")
	}
	return nil, models.ErrPlaceNotFound
}

func (f *fakeService) PlaceByID(_ context.Context, placeID string) (*services.PlaceResult, error) {
	switch placeID {
	case "":
		return nil, models.NewValidationError("placeId", "is required")
	case "p1":
		return &services.PlaceResult{PlaceID: "p1", Name: "Sunrise Care Home", Photos: []string{}, Reviews: []models.Review{}}, nil
	default:
		return nil, models.ErrPlaceNotFound
	}
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func (f *fakeService) SummarizeText(_ context.Context, text string) (models.AISummary, error) {
	if text == "" {
		return models.AISummary{}, models.NewValidationError("text", "is required")
	}
	if text == "no key" {
		return models.AISummary{}, models.MissingConfig("OPENAI_API_KEY")
	}
	return models.AISummary{Summary: "ok", Pros: []string{}, Cons: []string{}}, nil
}

func newTestRouter(svc *fakeService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := utils.NewNopLogger()
	return NewRouter(NewFacilityHandler(svc, logger), fakePinger{}, logger)
}

func do(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSearchParsesParameters(t *testing.T) {
	svc := &fakeService{}
	r := newTestRouter(svc)

	w := do(r, http.MethodGet,
		"/api/facilities/filter?q=austin&userLat=30.1&userLng=-97.2&distanceKm=10&bedsMin=20&bedsMax=80&ownership=Non%20profit,For%20profit&ratingMin=3.5&state=TX", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	assert.Equal(t, services.VariantFiltered, svc.variant)
	assert.Equal(t, "austin", svc.raw.Text)
	assert.Equal(t, "TX", svc.raw.State)
	require.NotNil(t, svc.raw.Lat)
	assert.Equal(t, 30.1, *svc.raw.Lat)
	assert.Equal(t, -97.2, *svc.raw.Lng)
	assert.Equal(t, 10.0, *svc.raw.RadiusKm)
	assert.Equal(t, 20, *svc.raw.BedsMin)
	assert.Equal(t, 80, *svc.raw.BedsMax)
	assert.Equal(t, 3.5, *svc.raw.RatingMin)
	assert.Equal(t, []string{"Non profit", "For profit"}, svc.raw.Ownership)
}

func TestSearchVariantsByRoute(t *testing.T) {
	tests := []struct {
		path    string
		variant services.Variant
	}{
		{"/api/facilities/search", services.VariantBasic},
		{"/api/facilities/with-reviews", services.VariantWithReviews},
		{"/api/facilities/filter", services.VariantFiltered},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			svc := &fakeService{}
			w := do(newTestRouter(svc), http.MethodGet, tt.path+"?q=ca", "")
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.variant, svc.variant)
		})
	}
}

func TestSearchErrors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		err    error
		status int
	}{
		{"malformed number", "/api/facilities/search?userLat=north", nil, http.StatusBadRequest},
		{"malformed integer", "/api/facilities/search?bedsMin=1.5", nil, http.StatusBadRequest},
		{"validation", "/api/facilities/search", models.NewValidationError("distanceKm", "must be a positive number"), http.StatusBadRequest},
		{"config", "/api/facilities/search", models.MissingConfig("GOOGLE_API_KEY"), http.StatusInternalServerError},
		{"store", "/api/facilities/search", errors.New("mongo: query: timeout"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(newTestRouter(&fakeService{err: tt.err}), http.MethodGet, tt.target, "")
			assert.Equal(t, tt.status, w.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.NotEmpty(t, body["message"])
			assert.NotContains(t, body["message"], "mongo")
		})
	}
}

func TestSearchReturnsResults(t *testing.T) {
	name := "Sunrise Care Home"
	svc := &fakeService{results: []models.EnrichedFacility{{
		Facility:    models.Facility{CCN: "100001", ProviderName: "Sunrise Care"},
		DisplayName: &name,
		AISummary:   models.EmptySummary(),
	}}}
	w := do(newTestRouter(svc), http.MethodGet, "/api/facilities/search?q=ca", "")
	require.Equal(t, http.StatusOK, w.Code)

	var got []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "100001", got[0]["cms_certification_number_ccn"])
	assert.Equal(t, "Sunrise Care Home", got[0]["displayName"])
	assert.Nil(t, got[0]["rating"])
	assert.NotContains(t, got[0], "googleCache")
}

func TestDetailsAndByID(t *testing.T) {
	r := newTestRouter(&fakeService{})

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/facilities/details?name=sunrise", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/facilities/details?name=other", "").Code)

	w := do(r, http.MethodGet, "/api/facilities/100001", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"provider_name":"Sunrise Care"`)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/facilities/999", "").Code)
}

func TestPlaceLookup(t *testing.T) {
	r := newTestRouter(&fakeService{})
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/place", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/place?q=nowhere", "").Code)
}

func TestSummarize(t *testing.T) {
	r := newTestRouter(&fakeService{})

	w := do(r, http.MethodPost, "/api/ai/summarize", `{"text":"Kind staff"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"summary":"ok","pros":[],"cons":[]}`, w.Body.String())

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/ai/summarize", `{"text":""}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/ai/summarize", `not json`).Code)
	assert.Equal(t, http.StatusInternalServerError, do(r, http.MethodPost, "/api/ai/summarize", `{"text":"no key"}`).Code)
}

func TestPlaceDetailsByID(t *testing.T) {
	r := newTestRouter(&fakeService{})

	w := do(r, http.MethodGet, "/api/google/details?placeId=p1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"placeId":"p1"`)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/google/details", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/google/details?placeId=gone", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/google/details-by-text?q=nowhere", "").Code)
}

func TestPingReportsStoreState(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := utils.NewNopLogger()
	down := NewRouter(NewFacilityHandler(&fakeService{}, logger), fakePinger{err: errors.New("no reachable servers")}, logger)

	w := do(down, http.MethodGet, "/ping", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"not connected"}`, w.Body.String())
}

func TestPingAndRequestID(t *testing.T) {
	r := newTestRouter(&fakeService{})

	w := do(r, http.MethodGet, "/ping", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get(RequestIDHeader))
}
