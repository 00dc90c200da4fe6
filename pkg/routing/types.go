package routing

import (
	"time"

	"meridian-llm/meridian/pkg/providers"
)

// Request carries the metadata a selection decision may depend on.
type Request struct {
	// RequestID is the unique identifier for this request.
	RequestID string

	// Model is the model hint from the caller (may be empty).
	Model string
}

// Result describes a completed dispatch for the audit trail and the API
// response envelope.
type Result struct {
	// Completion is the provider's normalized response.
	Completion *providers.CompletionResult

	// ProviderName is the provider that served the request.
	ProviderName string

	// Strategy is the load-balancing strategy that made the selection.
	Strategy string

	// Attempts is how many attempts the request consumed, including the
	// successful one.
	Attempts int

	// AttemptedProviders lists the providers tried before the one that
	// succeeded, in order.
	AttemptedProviders []string
}

// Stats aggregates router-level counters. All fields are guarded by the
// router's mutex; Snapshot copies are safe to read.
type Stats struct {
	// TotalRequests is the number of Route calls.
	TotalRequests int64 `json:"total_requests"`

	// SuccessfulRequests is the number of Route calls that returned a
	// completion.
	SuccessfulRequests int64 `json:"successful_requests"`

	// FailedRequests is the number of Route calls that exhausted their
	// attempt budget.
	FailedRequests int64 `json:"failed_requests"`

	// RequestsPerProvider counts successful dispatches per provider.
	RequestsPerProvider map[string]int64 `json:"requests_per_provider"`

	// CircuitSkips counts selections discarded because the provider's
	// circuit was open.
	CircuitSkips int64 `json:"circuit_skips"`

	// LastReset is when the counters were last cleared.
	LastReset time.Time `json:"last_reset"`
}
