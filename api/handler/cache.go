package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/complyscan/models"
	"github.com/use-agent/complyscan/scanner"
)

// InvalidateCache returns a handler for DELETE /api/v1/cache?url=.
func InvalidateCache(sc *scanner.Scanner) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.Query("url")
		if raw == "" {
			respondError(c, models.NewScanError(models.ErrKindInvalidURL, "url query parameter is required", nil))
			return
		}

		removed, err := sc.Invalidate(raw)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"url": raw, "removed": removed})
	}
}
