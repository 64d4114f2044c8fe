// internal/core/errors.go
package core

import "fmt"

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Predefined errors
var (
	// Acquisition errors
	ErrFetchFailed = &Error{Code: "FETCH_FAILED", Message: "ranking fetch failed"}

	// Enrichment errors. Logged only, replaced by empty values.
	ErrEnrichmentGap = &Error{Code: "ENRICHMENT_GAP", Message: "enrichment sub-fetch failed"}

	// Filter errors
	ErrFilterEmpty = &Error{Code: "FILTER_EMPTY", Message: "no signal passed the volume threshold"}

	// Analysis errors. A deterministic fallback always exists.
	ErrAnalysisDegraded = &Error{Code: "ANALYSIS_DEGRADED", Message: "analysis degraded to fallback"}

	// Delivery errors
	ErrDispatchPartial = &Error{Code: "DISPATCH_PARTIAL", Message: "not all messages were delivered"}
	ErrNotifierFailed  = &Error{Code: "NOTIFIER_FAILED", Message: "notifier failed"}

	// Storage errors
	ErrStorageFailed = &Error{Code: "STORAGE_FAILED", Message: "storage operation failed"}
	ErrNotFound      = &Error{Code: "NOT_FOUND", Message: "record not found"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}

	// LLM errors
	ErrLLMFailed  = &Error{Code: "LLM_FAILED", Message: "LLM request failed"}
	ErrLLMTimeout = &Error{Code: "LLM_TIMEOUT", Message: "LLM request timeout"}
)
