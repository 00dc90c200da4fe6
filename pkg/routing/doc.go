// Package routing orchestrates request dispatch across providers.
//
// # Responsibilities
//
// The router owns the retry loop around provider selection and dispatch:
// it asks the load-balancing strategy for a provider, skips providers whose
// circuit is open, calls the provider, and feeds the outcome back into both
// the strategy and the circuit breaker. A request gets a fixed attempt
// budget; when it is exhausted the router returns a typed error carrying
// the last provider failure.
//
// # Circuit Breaking
//
// The circuit breaker is timestamp-based: a provider failure opens its
// circuit for a fixed cooldown, and any success closes it immediately.
// There is no half-open probing state; the cooldown expiring is the probe.
package routing
