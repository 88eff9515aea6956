package handlers

import (
	"github.com/gin-gonic/gin"

	"facility-finder/utils"
)

// SetupRoutes registers every endpoint on r.
func SetupRoutes(r *gin.Engine, h *FacilityHandler, store Pinger, logger *utils.Logger) {
	r.Use(Logger(logger))

	api := r.Group("/api")

	facilities := api.Group("/facilities")
	{
		facilities.GET("/search", h.Search)
		facilities.GET("/with-reviews", h.WithReviews)
		facilities.GET("/filter", h.Filter)
		facilities.GET("/details", h.Details)
		facilities.GET("/:ccn", h.ByID)
	}

	api.GET("/place", h.Place)
	api.POST("/ai/summarize", h.Summarize)

	google := api.Group("/google")
	{
		google.GET("/details", h.PlaceDetails)
		google.GET("/details-by-text", h.Place)
	}

	// Health check
	r.GET("/ping", Ping(store, logger))
}

// NewRouter builds a gin engine with recovery and all routes.
func NewRouter(h *FacilityHandler, store Pinger, logger *utils.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	SetupRoutes(r, h, store, logger)
	return r
}
