package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"facility-finder/utils"
)

const pingTimeout = 2 * time.Second

// Pinger reports whether the primary store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping answers with the store connection state.
func Ping(store Pinger, logger *utils.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			logger.Warn("[http] store not reachable: %v", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not connected"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
