package strategies

import (
	"fmt"
	"sync"
	"time"

	"meridian-llm/meridian/pkg/providers"
	"meridian-llm/meridian/pkg/routing"
)

// Weight adjustment bounds and thresholds for weighted round-robin.
const (
	wrrInitialWeight = 1.0
	wrrMaxWeight     = 5.0
	wrrMinWeight     = 0.1

	// wrrFastThreshold rewards providers answering under it.
	wrrFastThreshold = time.Second

	// wrrSlowThreshold penalizes successes slower than it.
	wrrSlowThreshold = 5 * time.Second

	wrrRewardFactor  = 1.1
	wrrSlowFactor    = 0.9
	wrrFailureFactor = 0.8
)

// wrrState is the per-provider weight and accumulated selection credit.
type wrrState struct {
	weight float64
	credit float64
}

// WeightedRoundRobin distributes selections proportionally to per-provider
// weights that adapt to observed outcomes: fast successes raise a
// provider's weight, slow successes and failures lower it.
//
// Selection uses accumulated credit: every round each candidate earns its
// weight in credit, the highest credit wins, and the winner pays one credit
// back. Over time each provider is selected in proportion to its weight,
// without the bursts a naive weighted list would produce.
type WeightedRoundRobin struct {
	mu    sync.Mutex
	state map[string]*wrrState
}

// NewWeightedRoundRobin creates a weighted round-robin strategy. Providers
// start at weight 1.0 and diverge as outcomes arrive.
func NewWeightedRoundRobin() *WeightedRoundRobin {
	return &WeightedRoundRobin{
		state: make(map[string]*wrrState),
	}
}

// SelectProvider picks the candidate with the highest accumulated credit.
func (s *WeightedRoundRobin) SelectProvider(req *routing.Request, available []providers.Provider) (providers.Provider, error) {
	if len(available) == 0 {
		return nil, fmt.Errorf("weighted round-robin selection over empty candidate set")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		best       providers.Provider
		bestCredit float64
	)
	for _, p := range available {
		st := s.ensure(p.Name())
		st.credit += st.weight
		if best == nil || st.credit > bestCredit {
			best = p
			bestCredit = st.credit
		}
	}

	s.state[best.Name()].credit -= 1.0
	return best, nil
}

// RecordOutcome adapts the provider's weight to the dispatch result.
func (s *WeightedRoundRobin) RecordOutcome(provider string, success bool, latency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.ensure(provider)
	switch {
	case !success:
		st.weight = max(st.weight*wrrFailureFactor, wrrMinWeight)
	case latency < wrrFastThreshold:
		st.weight = min(st.weight*wrrRewardFactor, wrrMaxWeight)
	case latency > wrrSlowThreshold:
		st.weight = max(st.weight*wrrSlowFactor, wrrMinWeight)
	}
}

// Weights returns a copy of the current per-provider weights.
func (s *WeightedRoundRobin) Weights() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]float64, len(s.state))
	for name, st := range s.state {
		out[name] = st.weight
	}
	return out
}

// GetName returns the strategy name.
func (s *WeightedRoundRobin) GetName() string {
	return NameWeightedRoundRobin
}

// Reset clears all weights and credits.
func (s *WeightedRoundRobin) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = make(map[string]*wrrState)
}

func (s *WeightedRoundRobin) ensure(name string) *wrrState {
	st, ok := s.state[name]
	if !ok {
		st = &wrrState{weight: wrrInitialWeight}
		s.state[name] = st
	}
	return st
}
