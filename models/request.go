package models

// ScanRequest is the payload for POST /api/v1/scan.
type ScanRequest struct {
	// URL is the site to scan. A missing scheme defaults to https. Required.
	URL string `json:"url" binding:"required"`

	// Force drops any cached result for URL before scanning.
	Force bool `json:"force,omitempty"`
}

// BatchRequest is the payload for POST /api/v1/batch.
type BatchRequest struct {
	// URLs is the list of sites to scan. Size limits are enforced by the
	// scanner so the configured maximum applies.
	URLs []string `json:"urls" binding:"required"`

	// WebhookURL, if set, receives a signed batch.completed event.
	WebhookURL string `json:"webhook_url,omitempty" binding:"omitempty,url"`
}

// HistoryQuery binds GET /api/v1/history.
type HistoryQuery struct {
	URL   string `form:"url" binding:"required"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=200"`
}

// Defaults applies default values to unset fields.
func (q *HistoryQuery) Defaults(fallback int) {
	if q.Limit == 0 {
		q.Limit = fallback
	}
}
