package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"facility-finder/models"
	"facility-finder/storage"
	"facility-finder/utils"
)

var errUpstream = errors.New("upstream unavailable")

// fakePlaces resolves texts to ids and ids to details. Texts containing a
// failing substring return errUpstream.
type fakePlaces struct {
	mu       sync.Mutex
	ids      map[string]string
	details  map[string]*models.PlaceDetails
	failing  []string
	searches []string
	detailed []string
}

func newFakePlaces() *fakePlaces {
	return &fakePlaces{ids: map[string]string{}, details: map[string]*models.PlaceDetails{}}
}

func (p *fakePlaces) add(text, id string, d *models.PlaceDetails) {
	p.ids[text] = id
	p.details[id] = d
}

func (p *fakePlaces) FindPlaceID(_ context.Context, text string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.searches = append(p.searches, text)
	for _, f := range p.failing {
		if strings.Contains(text, f) {
			return "", errUpstream
		}
	}
	return p.ids[text], nil
}

func (p *fakePlaces) PlaceDetails(_ context.Context, id string) (*models.PlaceDetails, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.detailed = append(p.detailed, id)
	return p.details[id], nil
}

func (p *fakePlaces) PhotoURL(ref string) string {
	if ref == "" {
		return ""
	}
	return "https://photos.test/" + ref
}

func (p *fakePlaces) searchCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.searches)
}

type fakeGeocoder struct {
	mu     sync.Mutex
	places map[string]models.LatLng
	calls  int
}

func (g *fakeGeocoder) Geocode(_ context.Context, address string) (models.LatLng, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if pos, ok := g.places[strings.ToLower(address)]; ok {
		return pos, nil
	}
	return models.LatLng{}, &models.GeocodeError{Place: address, Status: "ZERO_RESULTS"}
}

type fakeCompleter struct {
	mu     sync.Mutex
	reply  string
	err    error
	calls  int
	prompt string
}

func (c *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.prompt = prompt
	return c.reply, c.err
}

func (c *fakeCompleter) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func f64(v float64) *float64 { return &v }

func sampleDetails(name string, photos int) *models.PlaceDetails {
	d := &models.PlaceDetails{
		Name:   name,
		Rating: f64(4.5),
		Lat:    f64(34.01),
		Lng:    f64(-118.01),
		Reviews: []models.Review{
			{AuthorName: "Ann", Text: "Kind staff", Rating: 5},
			{AuthorName: "Bob", Text: "Slow replies", Rating: 2},
		},
	}
	for i := 0; i < photos; i++ {
		d.Photos = append(d.Photos, name+"-photo-"+string(rune('a'+i)))
	}
	return d
}

func newTestEnricher(places PlaceLookup, store storage.EnrichmentWriter, now time.Time) (*EnrichmentCache, *WritebackQueue) {
	logger := utils.NewNopLogger()
	queue := NewWritebackQueue(store, 2, 64, logger)
	e := NewEnrichmentCache(places, queue, 30*24*time.Hour, logger)
	e.now = func() time.Time { return now }
	return e, queue
}
