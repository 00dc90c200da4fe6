package routing

import (
	"errors"
	"fmt"
	"strings"
)

// Common routing errors that can be checked with errors.Is().
var (
	// ErrNoProviders is returned when no provider passes the availability
	// probe within the attempt budget.
	ErrNoProviders = errors.New("no providers available")

	// ErrAllAttemptsFailed is returned when the attempt budget is
	// exhausted by provider failures.
	ErrAllAttemptsFailed = errors.New("all attempts failed")
)

// NoProviderError is returned when every attempt found an empty candidate
// set (all providers rate-limited, missing credentials, or circuit-open).
type NoProviderError struct {
	// Model is the requested model.
	Model string

	// Attempts is how many selection rounds were made.
	Attempts int
}

// Error implements the error interface.
func (e *NoProviderError) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("no providers available after %d attempts", e.Attempts)
	}
	return fmt.Sprintf("no providers available for model %q after %d attempts", e.Model, e.Attempts)
}

// Is implements error matching for errors.Is().
func (e *NoProviderError) Is(target error) bool {
	return target == ErrNoProviders
}

// ExhaustedError is returned when the attempt budget ran out with at least
// one provider failure. It carries the last failure for diagnosis.
type ExhaustedError struct {
	// Model is the requested model.
	Model string

	// Attempts is the consumed attempt budget.
	Attempts int

	// AttemptedProviders lists the providers that were tried, in order.
	AttemptedProviders []string

	// LastError is the failure from the final dispatched attempt.
	LastError error
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("request failed after %d attempts (tried: %s): %v",
		e.Attempts, strings.Join(e.AttemptedProviders, ", "), e.LastError)
}

// Is implements error matching for errors.Is().
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrAllAttemptsFailed
}

// Unwrap returns the wrapped error for error chain traversal.
func (e *ExhaustedError) Unwrap() error {
	return e.LastError
}
