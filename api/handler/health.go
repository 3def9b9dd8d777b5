package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/complyscan/models"
	"github.com/use-agent/complyscan/scanner"
)

// Health returns a handler for GET /api/v1/health.
//
// Reports cache utilisation and degrades status when the cache is over 90%
// full.
func Health(sc *scanner.Scanner, startTime time.Time, version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := sc.CacheStats()

		status := "healthy"
		if stats.MaxEntries > 0 && stats.Entries > int(float64(stats.MaxEntries)*0.9) {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:     status,
			Uptime:     time.Since(startTime).Round(time.Second).String(),
			CacheStats: stats,
			History:    sc.HistoryBackend(),
			Summarizer: sc.SummarizerEnabled(),
			Version:    version,
		})
	}
}
