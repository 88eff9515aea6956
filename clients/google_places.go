package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"facility-finder/config"
	"facility-finder/models"
	"facility-finder/utils"
)

const (
	// PhotoMaxWidth is the width requested for place photos.
	PhotoMaxWidth = 600

	detailsFields = "name,geometry,photos,rating,reviews"
)

// StatusError is a non-200 HTTP response. It is never retried.
type StatusError struct {
	Service string
	Code    int
	Body    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: http status %d: %s", e.Service, e.Code, e.Body)
}

// GooglePlacesClient handles Google Places and Geocoding API requests.
type GooglePlacesClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	retry      *utils.RetryConfig
	logger     *utils.Logger
}

// NewGooglePlacesClient creates a client from the application config.
func NewGooglePlacesClient(cfg *config.Config, logger *utils.Logger) *GooglePlacesClient {
	return &GooglePlacesClient{
		apiKey:     cfg.GoogleAPIKey,
		baseURL:    strings.TrimRight(cfg.GoogleBaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries + 1,
			BaseDelay:   cfg.RetryBaseDelay,
			Logger:      logger,
		},
		logger: logger,
	}
}

type location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type textSearchResponse struct {
	Status  string `json:"status"`
	Results []struct {
		PlaceID string `json:"place_id"`
	} `json:"results"`
}

type detailsResponse struct {
	Status string `json:"status"`
	Result *struct {
		Name     string `json:"name"`
		Geometry *struct {
			Location *location `json:"location"`
		} `json:"geometry"`
		Photos []struct {
			PhotoReference string `json:"photo_reference"`
		} `json:"photos"`
		Rating  *float64 `json:"rating"`
		Reviews []struct {
			AuthorName string  `json:"author_name"`
			Text       string  `json:"text"`
			Rating     float64 `json:"rating"`
			Time       int64   `json:"time"`
		} `json:"reviews"`
	} `json:"result"`
}

type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Geometry struct {
			Location location `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// FindPlaceID returns the id of the first text search match, or "" when the
// API reports no usable result.
func (c *GooglePlacesClient) FindPlaceID(ctx context.Context, text string) (string, error) {
	var resp textSearchResponse
	params := url.Values{}
	params.Set("query", text)
	if err := c.getJSON(ctx, "places.textsearch", "/place/textsearch/json", params, &resp); err != nil {
		return "", err
	}

	if resp.Status != "OK" || len(resp.Results) == 0 {
		if resp.Status != "OK" && resp.Status != "ZERO_RESULTS" {
			c.logger.Warn("[places] textsearch status %s for %q", resp.Status, text)
		}
		return "", nil
	}
	return resp.Results[0].PlaceID, nil
}

// PlaceDetails fetches name, location, photos, rating and reviews of a place.
// It returns nil when the API reports a non-OK status.
func (c *GooglePlacesClient) PlaceDetails(ctx context.Context, placeID string) (*models.PlaceDetails, error) {
	var resp detailsResponse
	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", detailsFields)
	if err := c.getJSON(ctx, "places.details", "/place/details/json", params, &resp); err != nil {
		return nil, err
	}

	if resp.Status != "OK" || resp.Result == nil {
		c.logger.Warn("[places] details status %s for place %s", resp.Status, placeID)
		return nil, nil
	}

	r := resp.Result
	details := &models.PlaceDetails{
		Name:    r.Name,
		Rating:  r.Rating,
		Photos:  make([]string, 0, len(r.Photos)),
		Reviews: make([]models.Review, 0, len(r.Reviews)),
	}
	if r.Geometry != nil && r.Geometry.Location != nil {
		lat, lng := r.Geometry.Location.Lat, r.Geometry.Location.Lng
		details.Lat = &lat
		details.Lng = &lng
	}
	for _, p := range r.Photos {
		if p.PhotoReference != "" {
			details.Photos = append(details.Photos, p.PhotoReference)
		}
	}
	for _, rv := range r.Reviews {
		details.Reviews = append(details.Reviews, models.Review{
			AuthorName: rv.AuthorName,
			Text:       rv.Text,
			Rating:     rv.Rating,
			Time:       rv.Time,
		})
	}
	return details, nil
}

// PhotoURL builds the photo endpoint URL for a reference. Empty references
// yield "".
func (c *GooglePlacesClient) PhotoURL(ref string) string {
	if ref == "" {
		return ""
	}
	params := url.Values{}
	params.Set("maxwidth", strconv.Itoa(PhotoMaxWidth))
	params.Set("photoreference", ref)
	params.Set("key", c.apiKey)
	return c.baseURL + "/place/photo?" + params.Encode()
}

// Geocode resolves an address or place name to coordinates.
func (c *GooglePlacesClient) Geocode(ctx context.Context, address string) (models.LatLng, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return models.LatLng{}, &models.GeocodeError{Place: address, Err: models.NewValidationError("locationName", "is required")}
	}

	var resp geocodeResponse
	params := url.Values{}
	params.Set("address", address)
	if err := c.getJSON(ctx, "geocode", "/geocode/json", params, &resp); err != nil {
		return models.LatLng{}, &models.GeocodeError{Place: address, Err: err}
	}

	if resp.Status != "OK" || len(resp.Results) == 0 {
		status := resp.Status
		if status == "" {
			status = "UNKNOWN"
		}
		return models.LatLng{}, &models.GeocodeError{Place: address, Status: status}
	}

	loc := resp.Results[0].Geometry.Location
	return models.LatLng{Lat: loc.Lat, Lng: loc.Lng}, nil
}

// getJSON performs a GET against the API and decodes the body into out.
// Only the transport round trip is retried.
func (c *GooglePlacesClient) getJSON(ctx context.Context, op, path string, params url.Values, out any) error {
	if c.apiKey == "" {
		return models.MissingConfig("GOOGLE_API_KEY")
	}
	params.Set("key", c.apiKey)
	endpoint := c.baseURL + path + "?" + params.Encode()

	body, err := fetch(ctx, c.httpClient, c.retry, op, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// fetch runs one request under the retry policy and returns the body of a
// 200 response. Transport failures are retried; status errors are not.
func fetch(ctx context.Context, client *http.Client, retry *utils.RetryConfig, op string, newReq func() (*http.Request, error)) ([]byte, error) {
	var body []byte
	err := retry.Do(ctx, op, func() error {
		req, err := newReq()
		if err != nil {
			return fmt.Errorf("%s: build request: %w", op, err)
		}

		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			return &StatusError{Service: op, Code: resp.StatusCode, Body: truncate(string(data), 200)}
		}
		body = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
