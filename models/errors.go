package models

import (
	"errors"
	"fmt"
)

// ErrorKind identifies the pipeline stage (or collaborator) that failed.
type ErrorKind string

// Error kinds used by the scan pipeline and the API layer.
const (
	ErrKindInvalidURL    ErrorKind = "INVALID_URL"
	ErrKindNetwork       ErrorKind = "NETWORK_ERROR"
	ErrKindEmptyContent  ErrorKind = "EMPTY_CONTENT"
	ErrKindConfiguration ErrorKind = "CONFIGURATION_ERROR"
	ErrKindDatabase      ErrorKind = "DATABASE_ERROR"
	ErrKindAIService     ErrorKind = "AI_SERVICE_ERROR"
	ErrKindInvalidBatch  ErrorKind = "INVALID_BATCH"
	ErrKindCanceled      ErrorKind = "CANCELED"

	// API-only kinds.
	ErrKindUnauthorized ErrorKind = "UNAUTHORIZED"
	ErrKindRateLimited  ErrorKind = "RATE_LIMITED"
	ErrKindInternal     ErrorKind = "INTERNAL_ERROR"
)

// ErrorDetail is the caller-facing error descriptor. It names the failed
// stage without exposing wrapped internals.
type ErrorDetail struct {
	Code    ErrorKind `json:"code"`
	Message string    `json:"message"`
}

// ScanError is the internal error type carrying an error kind.
// It implements the error interface and supports error wrapping via Unwrap.
type ScanError struct {
	Kind    ErrorKind
	Message string
	Err     error // wrapped original error
}

func (e *ScanError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// NewScanError creates a new ScanError.
func NewScanError(kind ErrorKind, message string, err error) *ScanError {
	return &ScanError{Kind: kind, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *ScanError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Kind, Message: e.Message}
}

// KindOf returns the kind of the first ScanError in err's chain, or
// ErrKindInternal when err carries none.
func KindOf(err error) ErrorKind {
	var se *ScanError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ErrKindInternal
}

// DetailOf converts any error into an ErrorDetail.
func DetailOf(err error) *ErrorDetail {
	var se *ScanError
	if errors.As(err, &se) {
		return se.ToDetail()
	}
	return &ErrorDetail{Code: ErrKindInternal, Message: err.Error()}
}
