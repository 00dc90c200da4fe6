package strategies

import (
	"fmt"
	"sync/atomic"
	"time"

	"meridian-llm/meridian/pkg/providers"
	"meridian-llm/meridian/pkg/routing"
)

// RoundRobin cycles through the candidate set in order. It carries no
// per-provider state; a provider dropping out of the candidate set simply
// shrinks the cycle.
type RoundRobin struct {
	// counter is the global selection counter.
	counter atomic.Int64
}

// NewRoundRobin creates a round-robin strategy.
func NewRoundRobin() *RoundRobin {
	return &RoundRobin{}
}

// SelectProvider returns the next provider in the cycle.
func (s *RoundRobin) SelectProvider(req *routing.Request, available []providers.Provider) (providers.Provider, error) {
	if len(available) == 0 {
		return nil, fmt.Errorf("round-robin selection over empty candidate set")
	}
	if len(available) == 1 {
		return available[0], nil
	}

	count := s.counter.Add(1) - 1
	return available[int(count%int64(len(available)))], nil
}

// RecordOutcome is a no-op; round-robin is not adaptive.
func (s *RoundRobin) RecordOutcome(provider string, success bool, latency time.Duration) {}

// GetName returns the strategy name.
func (s *RoundRobin) GetName() string {
	return NameRoundRobin
}

// Reset resets the selection counter.
func (s *RoundRobin) Reset() {
	s.counter.Store(0)
}
