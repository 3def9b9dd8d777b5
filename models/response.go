package models

// ScanResponse is the response for POST /api/v1/scan.
type ScanResponse struct {
	// Success indicates whether the scan produced a result.
	Success bool `json:"success"`

	Result *ScanResult `json:"result,omitempty"`

	// CacheStatus indicates whether the result was served from cache.
	// Values: "hit" or "miss".
	CacheStatus string `json:"cache_status,omitempty"`

	// DurationMs is the end-to-end handler time in milliseconds.
	DurationMs int64 `json:"duration_ms"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// HistoryResponse is the response for GET /api/v1/history.
type HistoryResponse struct {
	URL     string        `json:"url"`
	Results []*ScanResult `json:"results"`
	Error   *ErrorDetail  `json:"error,omitempty"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status     string     `json:"status"` // "healthy" or "degraded"
	Uptime     string     `json:"uptime"`
	CacheStats CacheStats `json:"cache_stats"`
	History    string     `json:"history_backend"`
	Summarizer bool       `json:"summarizer_enabled"`
	Version    string     `json:"version"`
}

// CacheStats reports the state of the result cache.
type CacheStats struct {
	Entries    int     `json:"entries"`
	MaxEntries int     `json:"max_entries"`
	TTLHours   float64 `json:"ttl_hours"`
	Hits       uint64  `json:"hits"`
	Misses     uint64  `json:"misses"`
	Evictions  uint64  `json:"evictions"`
}
