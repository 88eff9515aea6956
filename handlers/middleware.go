package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"facility-finder/services"
	"facility-finder/utils"
)

// RequestIDHeader carries the request id in and out.
const RequestIDHeader = "X-Request-ID"

// Logger tags each request with an id and logs it after it completes.
func Logger(logger *utils.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(services.WithRequestID(c.Request.Context(), id))

		c.Next()

		logger.With("request_id", id).Info("[http] %s %s - %v - %d",
			c.Request.Method,
			c.Request.URL.Path,
			time.Since(start),
			c.Writer.Status(),
		)
	}
}
