package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/complyscan/metrics"
)

// Metrics records request count and latency per route. Unmatched routes are
// labelled "unmatched" to keep label cardinality bounded.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}
