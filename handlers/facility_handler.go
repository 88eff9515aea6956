package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"facility-finder/models"
	"facility-finder/query"
	"facility-finder/services"
	"facility-finder/utils"
)

// FacilityService is what the HTTP layer needs from the search pipeline.
type FacilityService interface {
	Search(ctx context.Context, raw query.RawQuery, variant services.Variant) ([]models.EnrichedFacility, error)
	Details(ctx context.Context, name string) (*models.EnrichedFacility, error)
	FacilityByID(ctx context.Context, ccn string) (*services.FacilityIdentity, error)
	LookupPlace(ctx context.Context, text string) (*services.PlaceResult, error)
	PlaceByID(ctx context.Context, placeID string) (*services.PlaceResult, error)
	SummarizeText(ctx context.Context, text string) (models.AISummary, error)
}

// FacilityHandler serves the facility, place and summary endpoints.
type FacilityHandler struct {
	svc    FacilityService
	logger *utils.Logger
}

func NewFacilityHandler(svc FacilityService, logger *utils.Logger) *FacilityHandler {
	return &FacilityHandler{svc: svc, logger: logger}
}

func (h *FacilityHandler) Search(c *gin.Context)      { h.search(c, services.VariantBasic) }
func (h *FacilityHandler) WithReviews(c *gin.Context) { h.search(c, services.VariantWithReviews) }
func (h *FacilityHandler) Filter(c *gin.Context)      { h.search(c, services.VariantFiltered) }

func (h *FacilityHandler) search(c *gin.Context, variant services.Variant) {
	raw, err := parseQuery(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	results, err := h.svc.Search(c.Request.Context(), raw, variant)
	if err != nil {
		h.fail(c, err)
		return
	}
	if results == nil {
		results = []models.EnrichedFacility{}
	}
	c.JSON(http.StatusOK, results)
}

func (h *FacilityHandler) Details(c *gin.Context) {
	f, err := h.svc.Details(c.Request.Context(), c.Query("name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

func (h *FacilityHandler) ByID(c *gin.Context) {
	f, err := h.svc.FacilityByID(c.Request.Context(), c.Param("ccn"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

func (h *FacilityHandler) Place(c *gin.Context) {
	p, err := h.svc.LookupPlace(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *FacilityHandler) PlaceDetails(c *gin.Context) {
	p, err := h.svc.PlaceByID(c.Request.Context(), c.Query("placeId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *FacilityHandler) Summarize(c *gin.Context) {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid input: " + err.Error()})
		return
	}

	summary, err := h.svc.SummarizeText(c.Request.Context(), req.Text)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// fail maps a pipeline error to a status code and a message body.
func (h *FacilityHandler) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"
	switch {
	case models.IsValidation(err):
		status = http.StatusBadRequest
		msg = err.Error()
	case services.IsNotFound(err):
		status = http.StatusNotFound
		msg = err.Error()
	case models.IsConfig(err):
		msg = "service is not configured"
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("[http] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"message": msg})
}
