package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/complyscan/models"
	"github.com/use-agent/complyscan/scanner"
	"github.com/use-agent/complyscan/webhook"
)

// Batch returns a handler for POST /api/v1/batch.
//
// The batch runs synchronously; the response carries every outcome in input
// order. When webhook_url is set and a notifier is configured, a signed
// batch.completed event is delivered in the background.
func Batch(sc *scanner.Scanner, notifier *webhook.Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.BatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": models.ErrorDetail{Code: models.ErrKindInvalidBatch, Message: err.Error()},
			})
			return
		}

		result, err := sc.BatchScan(c.Request.Context(), req.URLs)
		if err != nil {
			respondError(c, err)
			return
		}

		if req.WebhookURL != "" && notifier != nil {
			notifier.DeliverAsync(req.WebhookURL, webhook.NewBatchCompleted(result))
		}
		c.JSON(http.StatusOK, result)
	}
}
