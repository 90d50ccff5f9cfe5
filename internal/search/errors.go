package search

import (
	"errors"
	"fmt"
)

// ValidationError reports unusable client input. It is the only error class
// the HTTP layer maps to a client-error status.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// BrowserLaunchError indicates the shared browser process could not be
// started or a page could not be opened against it. It fails the current
// attempt and is retried by the executor.
type BrowserLaunchError struct {
	Err error
}

func (e *BrowserLaunchError) Error() string {
	return fmt.Sprintf("browser launch: %v", e.Err)
}

func (e *BrowserLaunchError) Unwrap() error {
	return e.Err
}

// NavigationError indicates navigation or network failure while driving a
// page. This is the only extractor failure class that is retryable; a wait
// condition that never resolves degrades to an empty result instead.
type NavigationError struct {
	URL string
	Err error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigate %s: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error {
	return e.Err
}

// SourceScrapeError is the terminal per-source failure emitted after the
// executor exhausts its attempts. It is captured in the SourceOutcome and
// never propagated to fail the whole aggregate.
type SourceScrapeError struct {
	Source   Source
	Attempts int
	Err      error
}

func (e *SourceScrapeError) Error() string {
	return fmt.Sprintf("source %s failed after %d attempts: %v", e.Source, e.Attempts, e.Err)
}

func (e *SourceScrapeError) Unwrap() error {
	return e.Err
}

// ErrAggregateTimeout is returned only when the absolute request deadline
// elapses before any source settles.
var ErrAggregateTimeout = errors.New("aggregation deadline exceeded with no sources settled")
