package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/complyscan/models"
)

// statusFor maps an error kind to the HTTP status code returned to callers.
func statusFor(kind models.ErrorKind) int {
	switch kind {
	case models.ErrKindInvalidURL, models.ErrKindInvalidBatch:
		return http.StatusBadRequest // 400
	case models.ErrKindUnauthorized:
		return http.StatusUnauthorized // 401
	case models.ErrKindCanceled:
		return http.StatusRequestTimeout // 408
	case models.ErrKindEmptyContent:
		return http.StatusUnprocessableEntity // 422
	case models.ErrKindRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrKindNetwork:
		return http.StatusBadGateway // 502
	case models.ErrKindDatabase:
		return http.StatusServiceUnavailable // 503
	default:
		return http.StatusInternalServerError // 500
	}
}

// badRequest writes a 400 for a request that failed binding.
func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   models.ErrorDetail{Code: models.ErrKindInvalidURL, Message: err.Error()},
	})
}

// respondError writes err with its mapped status code.
func respondError(c *gin.Context, err error) {
	detail := models.DetailOf(err)
	c.JSON(statusFor(detail.Code), gin.H{
		"success": false,
		"error":   detail,
	})
}
