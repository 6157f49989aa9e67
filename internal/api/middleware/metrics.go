package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/haifischbank/haifischbank-server/internal/pkg/metrics"
)

// MetricsMiddleware records HTTP metrics for each request.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.RecordHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start).Seconds())
	}
}
