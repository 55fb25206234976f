package errors

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by services and the API layer.

// ErrInvalidInput is returned for malformed URLs, codes or request values.
var ErrInvalidInput = errors.New("invalid input")

// ErrNotFound is returned for unknown, expired or inactive codes and for missing metadata.
var ErrNotFound = errors.New("not found")

// ErrCodeSpaceExhausted is returned when no free short code was found within the attempt budget.
var ErrCodeSpaceExhausted = errors.New("short code space exhausted")

// ErrNotAProduct is returned when product metadata is requested for a non-product link.
var ErrNotAProduct = errors.New("url is not a product")

// ErrExternalServiceUnavailable is returned when fetching or parsing a product page failed.
var ErrExternalServiceUnavailable = errors.New("external service unavailable")

// ErrStorage wraps backing store failures.
var ErrStorage = errors.New("storage error")

// ErrCodeConflict signals a uniqueness violation on the short code.
// The registry turns it into a retry; it never reaches callers.
var ErrCodeConflict = errors.New("short code already exists")

// InvalidInputf builds an ErrInvalidInput with a detail message.
func InvalidInputf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// FetchFailedError is returned by the metadata fetcher.
type FetchFailedError struct {
	URL        string
	StatusCode int // zero when no response was received
	Reason     string
	Err        error // the caller's context error when the caller gave up
}

func (e *FetchFailedError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s failed with status %d: %s", e.URL, e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("fetch %s failed: %s", e.URL, e.Reason)
}

func (e *FetchFailedError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrExternalServiceUnavailable, e.Err}
	}
	return []error{ErrExternalServiceUnavailable}
}

// ErrConfigLoad is returned when configuration loading fails
type ErrConfigLoad struct {
	Path   string
	Reason string
}

func (e ErrConfigLoad) Error() string {
	return fmt.Sprintf("failed to load config from %s: %s", e.Path, e.Reason)
}
