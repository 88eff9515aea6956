package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"facility-finder/models"
	"facility-finder/query"
	"facility-finder/storage"
	"facility-finder/utils"
)

// Variant selects the limit and enrichment level of a search.
type Variant string

const (
	VariantBasic       Variant = "basic"
	VariantWithReviews Variant = "with-reviews"
	VariantFiltered    Variant = "filtered"
)

// Limit is the result cap of the variant; 0 means unbounded.
func (v Variant) Limit() int {
	switch v {
	case VariantBasic:
		return 50
	case VariantWithReviews:
		return 10
	default:
		return 0
	}
}

// Enriched reports whether results get place data and a summary.
func (v Variant) Enriched() bool {
	return v != VariantBasic
}

// FacilityIdentity pairs the registered name of a facility with its place name.
type FacilityIdentity struct {
	CCN         string  `json:"cms_certification_number_ccn"`
	Name        string  `json:"provider_name"`
	DisplayName *string `json:"displayName"`
}

// PlaceResult is a direct place lookup with photo URLs resolved.
type PlaceResult struct {
	PlaceID string          `json:"placeId"`
	Name    string          `json:"name"`
	Rating  *float64        `json:"rating"`
	Lat     *float64        `json:"lat"`
	Lng     *float64        `json:"lng"`
	Photos  []string        `json:"photos"`
	Reviews []models.Review `json:"reviews"`
}

// SearchDeps are the collaborators of a SearchService.
type SearchDeps struct {
	Store          storage.FacilityStore
	Places         PlaceLookup
	Geo            *GeoResolver
	Enricher       *EnrichmentCache
	Summarizer     *Summarizer
	Results        *ResultCache
	MaxConcurrency int
	Logger         *utils.Logger
}

// SearchService runs the search-and-enrichment pipeline.
type SearchService struct {
	normalizer     *query.Normalizer
	store          storage.FacilityStore
	places         PlaceLookup
	geo            *GeoResolver
	enricher       *EnrichmentCache
	summarizer     *Summarizer
	results        *ResultCache
	maxConcurrency int
	logger         *utils.Logger
}

// NewSearchService wires a SearchService.
func NewSearchService(d SearchDeps) *SearchService {
	if d.MaxConcurrency < 1 {
		d.MaxConcurrency = 1
	}
	return &SearchService{
		normalizer:     query.NewNormalizer(),
		store:          d.Store,
		places:         d.Places,
		geo:            d.Geo,
		enricher:       d.Enricher,
		summarizer:     d.Summarizer,
		results:        d.Results,
		maxConcurrency: d.MaxConcurrency,
		logger:         d.Logger,
	}
}

// Search returns the facilities matching raw, enriched according to variant.
// Zero matches is an empty slice, not an error.
func (s *SearchService) Search(ctx context.Context, raw query.RawQuery, variant Variant) ([]models.EnrichedFacility, error) {
	desc, err := s.normalizer.Normalize(raw)
	if err != nil {
		return nil, err
	}

	log := s.logger.With("request_id", requestID(ctx))
	log.Debug("[search] %s key=%s geo=%s", variant, desc.Key, desc.Geo)

	if desc.Cacheable() {
		if cached, ok := s.results.Get(ctx, variant, desc.Key); ok {
			log.Info("[search] cache hit %s (%d results)", desc.Key, len(cached))
			return cached, nil
		}
	}

	cacheable := desc.Cacheable()
	if desc.NeedsGeoResolution() {
		if err := s.geo.ResolveDescriptor(ctx, desc); err != nil {
			log.Warn("[search] geo resolution failed, continuing without proximity: %v", err)
			cacheable = false
		}
	}

	plan := query.Build(desc, variant.Limit())
	facilities, err := s.store.Query(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	log.Info("[search] %s matched %d facilities", plan, len(facilities))

	var results []models.EnrichedFacility
	if variant.Enriched() {
		results = s.enrichAndSummarize(ctx, log, facilities, false)
	} else {
		results = make([]models.EnrichedFacility, len(facilities))
		for i := range facilities {
			results[i] = assemble(facilities[i], models.EmptyEnrichment(), models.EmptySummary(), false)
		}
	}

	if cacheable {
		s.results.Set(ctx, variant, desc.Key, results)
	}
	return results, nil
}

// enrichAndSummarize fans out one enrichment per facility, then one summary
// per facility with reviews. Results keep the input order.
func (s *SearchService) enrichAndSummarize(ctx context.Context, log *utils.Logger, facilities []models.Facility, details bool) []models.EnrichedFacility {
	// In-flight calls outlive a cancelled request; each is bounded by its client timeout.
	callCtx := context.WithoutCancel(ctx)

	enrichments := make([]models.EnrichmentResult, len(facilities))
	g := new(errgroup.Group)
	g.SetLimit(s.maxConcurrency)
	for i := range facilities {
		i := i
		g.Go(func() error {
			enrichments[i] = s.safeEnrich(callCtx, log, &facilities[i])
			return nil
		})
	}
	_ = g.Wait()

	summaries := make([]models.AISummary, len(facilities))
	g = new(errgroup.Group)
	g.SetLimit(s.maxConcurrency)
	for i := range facilities {
		summaries[i] = models.EmptySummary()
		text := ReviewsText(enrichments[i].Reviews)
		if text == "" {
			continue
		}
		i := i
		g.Go(func() error {
			summary, err := s.summarizer.Summarize(callCtx, text)
			if err != nil {
				log.Warn("[search] summary for %s failed: %v", facilities[i].CCN, err)
				return nil
			}
			summaries[i] = summary
			return nil
		})
	}
	_ = g.Wait()

	out := make([]models.EnrichedFacility, len(facilities))
	for i := range facilities {
		out[i] = assemble(facilities[i], enrichments[i], summaries[i], details)
	}
	return out
}

// safeEnrich isolates a panicking lookup to its own slot.
func (s *SearchService) safeEnrich(ctx context.Context, log *utils.Logger, f *models.Facility) (res models.EnrichmentResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("[search] enrichment for %s panicked: %v", f.CCN, r)
			res = models.EmptyEnrichment()
		}
	}()
	return s.enricher.Get(ctx, f)
}

// assemble merges a facility with its place data and summary. List views
// carry the first photo; the details view carries all photos and reviews.
func assemble(f models.Facility, e models.EnrichmentResult, summary models.AISummary, details bool) models.EnrichedFacility {
	out := models.EnrichedFacility{
		DisplayName: e.DisplayName,
		Rating:      e.Rating,
		Lat:         e.Lat,
		Lng:         e.Lng,
		AISummary:   summary,
	}

	if f.DistanceMeters != nil {
		m := *f.DistanceMeters
		km := math.Round(m/10) / 100
		out.DistanceM = &m
		out.DistanceKm = &km
	}

	if details {
		out.Photos = e.PhotoURLs
		out.Reviews = e.Reviews
	} else if len(e.PhotoURLs) > 0 {
		photo := e.PhotoURLs[0]
		out.Photo = &photo
	}

	f.GoogleCache = nil
	f.DistanceMeters = nil
	f.UpdatedAt = time.Time{}
	out.Facility = f
	return out
}

// Details looks a facility up by name and returns it with all photos,
// reviews and a summary.
func (s *SearchService) Details(ctx context.Context, name string) (*models.EnrichedFacility, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, models.NewValidationError("name", "is required")
	}

	f, err := s.store.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}

	log := s.logger.With("request_id", requestID(ctx))
	out := s.enrichAndSummarize(ctx, log, []models.Facility{*f}, true)
	return &out[0], nil
}

// FacilityByID returns the registered and place names of a facility.
func (s *SearchService) FacilityByID(ctx context.Context, ccn string) (*FacilityIdentity, error) {
	ccn = strings.TrimSpace(ccn)
	if ccn == "" {
		return nil, models.NewValidationError("ccn", "is required")
	}

	f, err := s.store.FindByCCN(ctx, ccn)
	if err != nil {
		return nil, err
	}

	e := s.enricher.Get(context.WithoutCancel(ctx), f)
	return &FacilityIdentity{CCN: f.CCN, Name: f.ProviderName, DisplayName: e.DisplayName}, nil
}

// LookupPlace searches a place by text and returns its details.
func (s *SearchService) LookupPlace(ctx context.Context, text string) (*PlaceResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, models.NewValidationError("q", "is required")
	}

	id, err := s.places.FindPlaceID(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("place lookup: %w", err)
	}
	if id == "" {
		return nil, models.ErrPlaceNotFound
	}

	return s.placeResult(ctx, id)
}

// PlaceByID returns the details of a known place id.
func (s *SearchService) PlaceByID(ctx context.Context, placeID string) (*PlaceResult, error) {
	placeID = strings.TrimSpace(placeID)
	if placeID == "" {
		return nil, models.NewValidationError("placeId", "is required")
	}
	return s.placeResult(ctx, placeID)
}

func (s *SearchService) placeResult(ctx context.Context, id string) (*PlaceResult, error) {
	d, err := s.places.PlaceDetails(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("place lookup: %w", err)
	}
	if d == nil {
		return nil, models.ErrPlaceNotFound
	}

	res := &PlaceResult{
		PlaceID: id,
		Name:    d.Name,
		Rating:  d.Rating,
		Lat:     d.Lat,
		Lng:     d.Lng,
		Photos:  make([]string, 0, len(d.Photos)),
		Reviews: d.Reviews,
	}
	for _, ref := range d.Photos {
		res.Photos = append(res.Photos, s.places.PhotoURL(ref))
	}
	if res.Reviews == nil {
		res.Reviews = []models.Review{}
	}
	return res, nil
}

// SummarizeText summarizes arbitrary review text.
func (s *SearchService) SummarizeText(ctx context.Context, text string) (models.AISummary, error) {
	if strings.TrimSpace(text) == "" {
		return models.AISummary{}, models.NewValidationError("text", "is required")
	}
	return s.summarizer.Summarize(ctx, text)
}

type requestIDKey struct{}

// WithRequestID stores a request id in ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// requestID returns the id stored in ctx, or a new one.
func requestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

// IsNotFound reports whether err means a single lookup had no match.
func IsNotFound(err error) bool {
	return errors.Is(err, models.ErrFacilityNotFound) || errors.Is(err, models.ErrPlaceNotFound)
}
