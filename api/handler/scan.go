package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/complyscan/models"
	"github.com/use-agent/complyscan/scanner"
)

// Scan returns a handler for POST /api/v1/scan.
//
//  1. Bind and validate the request.
//  2. Scanner.ScanURL, which serves fresh cached results unless force is set.
//  3. Respond with the result and cache status, or the mapped error.
func Scan(sc *scanner.Scanner) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		var req models.ScanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}

		result, cached, err := sc.ScanURL(c.Request.Context(), req.URL, req.Force)
		if err != nil {
			c.JSON(statusFor(models.KindOf(err)), models.ScanResponse{
				Success:    false,
				DurationMs: time.Since(start).Milliseconds(),
				Error:      models.DetailOf(err),
			})
			return
		}

		cacheStatus := "miss"
		if cached {
			cacheStatus = "hit"
		}
		c.JSON(http.StatusOK, models.ScanResponse{
			Success:     true,
			Result:      result,
			CacheStatus: cacheStatus,
			DurationMs:  time.Since(start).Milliseconds(),
		})
	}
}
