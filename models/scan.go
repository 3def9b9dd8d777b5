package models

import "time"

// FetchStatus is the outcome of a fetch.
type FetchStatus string

const (
	FetchSuccess FetchStatus = "success"
	FetchFailure FetchStatus = "failure"
)

// FetchErrorKind classifies why a fetch failed.
type FetchErrorKind string

const (
	FetchErrDNS              FetchErrorKind = "dns"
	FetchErrTLS              FetchErrorKind = "tls"
	FetchErrTimeout          FetchErrorKind = "timeout"
	FetchErrConnection       FetchErrorKind = "connection"
	FetchErrHTTPStatus       FetchErrorKind = "http_status"
	FetchErrTooManyRedirects FetchErrorKind = "too_many_redirects"
	FetchErrBlockedAddress   FetchErrorKind = "blocked_address"
	FetchErrReadBody         FetchErrorKind = "read_body"
)

// FetchResult is the transient output of one fetch. It never outlives the
// scan that produced it.
type FetchResult struct {
	Status      FetchStatus
	HTML        string
	HTTPStatus  int
	ContentType string
	FinalURL    string
	Attempts    int
	Truncated   bool // body exceeded the configured cap
	ErrorKind   FetchErrorKind
	FetchedAt   time.Time
}

// ConsentFinding reports cookie-consent banner evidence.
type ConsentFinding struct {
	Present      bool     `json:"present"`
	MatchedTerms []string `json:"matched_terms"`
}

// PolicyFinding reports a privacy-policy link.
type PolicyFinding struct {
	Present bool   `json:"present"`
	URL     string `json:"url,omitempty"`
}

// ContactFinding reports contact details. EmailFound and PhoneFound are
// independent.
type ContactFinding struct {
	EmailFound     bool   `json:"email_found"`
	PhoneFound     bool   `json:"phone_found"`
	ContactPageURL string `json:"contact_page_url,omitempty"`
}

// TrackerMatch is one detected tracking domain.
type TrackerMatch struct {
	Domain   string `json:"domain"`
	Category string `json:"category"`
}

// TrackerFinding lists third-party trackers, each domain once.
type TrackerFinding struct {
	Count          int            `json:"count"`
	MatchedDomains []string       `json:"matched_domains"`
	Matches        []TrackerMatch `json:"matches"`
}

// Data-quality flags attached to Findings.
const (
	QualityParseFailed   = "parse_failed"
	QualityBodyTruncated = "body_truncated"
)

// Findings is the per-category evidence bundle for one document. It is
// derived data and is never mutated after Detect returns.
type Findings struct {
	ConsentBanner ConsentFinding `json:"consent_banner"`
	PrivacyPolicy PolicyFinding  `json:"privacy_policy"`
	ContactInfo   ContactFinding `json:"contact_info"`
	Trackers      TrackerFinding `json:"trackers"`

	// DataQuality lists flags such as QualityParseFailed. Empty means the
	// document was analysed normally.
	DataQuality []string `json:"data_quality,omitempty"`
}

// Degraded reports whether detection could not analyse the whole document.
func (f *Findings) Degraded() bool {
	for _, q := range f.DataQuality {
		if q == QualityParseFailed {
			return true
		}
	}
	return false
}

// Category names used in score breakdowns.
const (
	CategoryConsentBanner = "consent_banner"
	CategoryPrivacyPolicy = "privacy_policy"
	CategoryContactInfo   = "contact_info"
	CategoryTrackers      = "trackers"
)

// Categories lists the weighted categories in display order.
var Categories = []string{
	CategoryConsentBanner,
	CategoryPrivacyPolicy,
	CategoryContactInfo,
	CategoryTrackers,
}

// ComplianceStatus is the coarse verdict derived from the total score.
type ComplianceStatus string

const (
	StatusCompliant        ComplianceStatus = "Compliant"
	StatusNeedsImprovement ComplianceStatus = "Needs Improvement"
	StatusNonCompliant     ComplianceStatus = "Non-Compliant"
)

// ScoreBreakdown is the scored form of a Findings bundle.
// Invariant: Total is the rounded sum of Points, 0 <= Total <= 100.
type ScoreBreakdown struct {
	Points map[string]float64 `json:"points"`
	Total  int                `json:"total"`
	Grade  string             `json:"grade"`
	Status ComplianceStatus   `json:"status"`
}

// ScanResult is the externally visible outcome of a successful scan. It is
// the cache value, the batch element type and the unit of history.
// It is never mutated after the orchestrator returns it.
type ScanResult struct {
	ID        string         `json:"id"`
	Target    string         `json:"target"`
	FinalURL  string         `json:"final_url,omitempty"`
	Findings  Findings       `json:"findings"`
	Breakdown ScoreBreakdown `json:"breakdown"`
	ScannedAt time.Time      `json:"scanned_at"`
	AISummary string         `json:"ai_summary,omitempty"`
}
