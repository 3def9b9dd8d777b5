package models

// BatchOutcome is one slot of a batch scan. Exactly one of Result and Error
// is set.
type BatchOutcome struct {
	// URL is the caller's input, unmodified.
	URL string `json:"url"`

	// Target is the normalized form, empty when the input failed to parse.
	Target string `json:"target,omitempty"`

	Result *ScanResult  `json:"result,omitempty"`
	Error  *ErrorDetail `json:"error,omitempty"`
}

// OK reports whether the slot holds a result.
func (o BatchOutcome) OK() bool { return o.Result != nil }

// Batch statuses.
const (
	BatchCompleted = "completed"
	BatchPartial   = "partial"
	BatchFailed    = "failed"
)

// BatchResult is the ordered fan-in of a batch scan. Outcomes has one entry
// per input URL, in input order, duplicates included.
type BatchResult struct {
	ID        string         `json:"id"`
	Status    string         `json:"status"` // "completed", "partial", "failed"
	Total     int            `json:"total"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Outcomes  []BatchOutcome `json:"outcomes"`
}
