// Package strategies implements the load-balancing strategies the router
// selects providers with.
//
// Every strategy sees the same two events: SelectProvider when the router
// needs a candidate, and RecordOutcome after a dispatch finishes. Adaptive
// strategies (weighted round-robin, response-time, smart) fold outcomes
// into per-provider state; round-robin ignores them.
package strategies

import (
	"fmt"
	"time"

	"meridian-llm/meridian/pkg/providers"
	"meridian-llm/meridian/pkg/routing"
)

// Strategy names accepted in configuration.
const (
	NameRoundRobin         = "round_robin"
	NameWeightedRoundRobin = "weighted_round_robin"
	NameResponseTime       = "response_time"
	NameSmart              = "smart"
)

// RoutingStrategy is the contract all strategies implement. It mirrors the
// interface the routing package declares for itself.
//
// Implementations must be safe for concurrent use.
type RoutingStrategy interface {
	// SelectProvider picks one provider from the candidate set. The set
	// is already filtered for availability; it is never empty unless the
	// router misbehaves, and strategies return an error in that case.
	SelectProvider(req *routing.Request, available []providers.Provider) (providers.Provider, error)

	// RecordOutcome feeds a dispatch result back into the strategy.
	RecordOutcome(provider string, success bool, latency time.Duration)

	// GetName returns the strategy name for logging and statistics.
	GetName() string

	// Reset clears the strategy's internal state.
	Reset()
}

// New builds the strategy registered under name. An empty name selects
// the smart scorer, the default policy.
func New(name string) (RoutingStrategy, error) {
	switch name {
	case NameRoundRobin:
		return NewRoundRobin(), nil
	case NameWeightedRoundRobin:
		return NewWeightedRoundRobin(), nil
	case NameResponseTime:
		return NewResponseTime(), nil
	case "", NameSmart:
		return NewSmart(), nil
	default:
		return nil, fmt.Errorf("unknown load-balancing strategy %q (available: %s, %s, %s, %s)",
			name, NameRoundRobin, NameWeightedRoundRobin, NameResponseTime, NameSmart)
	}
}
