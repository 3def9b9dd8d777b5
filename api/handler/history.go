package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/complyscan/models"
	"github.com/use-agent/complyscan/scanner"
)

// History returns a handler for GET /api/v1/history?url=&limit=.
func History(sc *scanner.Scanner, defaultLimit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q models.HistoryQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			c.JSON(http.StatusBadRequest, models.HistoryResponse{
				URL:   q.URL,
				Error: &models.ErrorDetail{Code: models.ErrKindInvalidURL, Message: err.Error()},
			})
			return
		}
		q.Defaults(defaultLimit)

		results, err := sc.History(c.Request.Context(), q.URL, q.Limit)
		if err != nil {
			c.JSON(statusFor(models.KindOf(err)), models.HistoryResponse{
				URL:   q.URL,
				Error: models.DetailOf(err),
			})
			return
		}
		c.JSON(http.StatusOK, models.HistoryResponse{URL: q.URL, Results: results})
	}
}
