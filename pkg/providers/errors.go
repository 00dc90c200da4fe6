package providers

import (
	"errors"
	"fmt"
	"time"

	"meridian-llm/meridian/pkg/ratelimit"
)

// Sentinel errors for use with errors.Is.
var (
	// ErrNoAPIKey is returned when an adapter has no credential configured.
	ErrNoAPIKey = errors.New("api key not configured")

	// ErrRateLimited is matched by every rate-limit denial, whether local
	// admission control or an upstream 429.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrTransient is matched by timeouts and connection failures that
	// survived the adapter's internal retries.
	ErrTransient = errors.New("transient network failure")

	// ErrMalformedResponse is matched when a backend returns a payload
	// that cannot be interpreted as a completion.
	ErrMalformedResponse = errors.New("malformed provider response")
)

// ProviderError is a non-retryable backend failure: a non-2xx status other
// than 429, or a payload the adapter could not interpret.
type ProviderError struct {
	// Provider is the adapter that produced the error.
	Provider string

	// StatusCode is the HTTP status, or zero when not applicable.
	StatusCode int

	// Message describes the failure.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider %q error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider %q error: %s", e.Provider, e.Message)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// RateLimitError reports a blocked admission. Local denials carry the
// dimension and counters from the limiter; upstream 429 responses set
// Upstream instead.
type RateLimitError struct {
	// Provider is the adapter whose quota blocked the request.
	Provider string

	// Dimension is the quota dimension that denied admission.
	Dimension ratelimit.Dimension

	// Current and Limit are the counters at denial time.
	Current int64
	Limit   int64

	// RetryAfter suggests how long to wait.
	RetryAfter time.Duration

	// Upstream is true when the backend itself returned HTTP 429.
	Upstream bool
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.Upstream {
		return fmt.Sprintf("provider %q rate limited upstream (retry after %s)", e.Provider, e.RetryAfter)
	}
	return fmt.Sprintf("provider %q rate limit exceeded: %s at %d/%d (retry after %s)",
		e.Provider, e.Dimension, e.Current, e.Limit, e.RetryAfter)
}

// Is implements error matching for errors.Is.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// TransientError is a timeout or connection failure that exhausted the
// adapter's internal retry budget.
type TransientError struct {
	// Provider is the adapter that could not be reached.
	Provider string

	// Attempts is how many times the call was tried.
	Attempts int

	// Cause is the last underlying network error.
	Cause error
}

// Error implements the error interface.
func (e *TransientError) Error() string {
	return fmt.Sprintf("provider %q unreachable after %d attempts: %v", e.Provider, e.Attempts, e.Cause)
}

// Unwrap returns the underlying error.
func (e *TransientError) Unwrap() error {
	return e.Cause
}

// Is implements error matching for errors.Is.
func (e *TransientError) Is(target error) bool {
	return target == ErrTransient
}

// IsRateLimited reports whether err is any rate-limit denial.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsTransient reports whether err is a surfaced transient network failure.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}
