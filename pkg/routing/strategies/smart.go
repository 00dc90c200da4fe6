package strategies

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"meridian-llm/meridian/pkg/providers"
	"meridian-llm/meridian/pkg/routing"
)

// Smart scoring weights. They sum to 1.0.
const (
	smartSuccessWeight    = 0.30
	smartLatencyWeight    = 0.25
	smartLoadWeight       = 0.20
	smartRecencyWeight    = 0.10
	smartExperienceWeight = 0.10
	smartModelWeight      = 0.05

	// smartLatencyHorizon is the average latency at which the latency
	// component bottoms out.
	smartLatencyHorizon = 10 * time.Second

	// smartRecencyHorizon is how long a provider must rest for its
	// recency component to fully recover.
	smartRecencyHorizon = time.Minute

	// smartExperienceTarget is the request count at which a provider is
	// considered fully proven.
	smartExperienceTarget = 100

	// smartTopN is how many top-scored candidates enter the final
	// weighted-random draw.
	smartTopN = 3
)

// scored pairs a candidate with its computed score.
type scored struct {
	provider providers.Provider
	score    float64
}

// Smart scores every candidate on six factors and draws the winner at
// random from the top scorers, weighted by score. The randomized draw keeps
// one marginally-better provider from starving the rest.
//
// Success rate, average latency and experience come from the provider's own
// rolling statistics; in-flight load and last-selection time are tracked
// here. The load component is relative: a provider is penalized for
// carrying more in-flight requests than its busiest peer, not against a
// fixed ceiling.
type Smart struct {
	mu       sync.Mutex
	loads    map[string]int
	lastUsed map[string]time.Time
	rng      *rand.Rand

	// now is replaceable in tests.
	now func() time.Time
}

// NewSmart creates a smart strategy with a time-seeded random source.
func NewSmart() *Smart {
	return &Smart{
		loads:    make(map[string]int),
		lastUsed: make(map[string]time.Time),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		now:      time.Now,
	}
}

// SelectProvider scores the candidates and draws from the top scorers.
func (s *Smart) SelectProvider(req *routing.Request, available []providers.Provider) (providers.Provider, error) {
	if len(available) == 0 {
		return nil, fmt.Errorf("smart selection over empty candidate set")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	candidates := make([]scored, 0, len(available))
	for _, p := range available {
		candidates = append(candidates, scored{provider: p, score: s.score(req, p)})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if len(candidates) > smartTopN {
		candidates = candidates[:smartTopN]
	}

	selected := s.draw(candidates)
	s.loads[selected.Name()]++
	s.lastUsed[selected.Name()] = s.now()
	return selected, nil
}

// draw picks one candidate at random, weighted by score. A degenerate
// all-zero score set falls back to the top candidate.
func (s *Smart) draw(candidates []scored) providers.Provider {
	var total float64
	for _, c := range candidates {
		total += c.score
	}
	if total <= 0 {
		return candidates[0].provider
	}

	target := s.rng.Float64() * total
	var cumulative float64
	for _, c := range candidates {
		cumulative += c.score
		if target <= cumulative {
			return c.provider
		}
	}
	return candidates[0].provider
}

// score computes the weighted six-factor score for one candidate.
// Called with s.mu held.
func (s *Smart) score(req *routing.Request, p providers.Provider) float64 {
	stats := p.Stats()
	name := p.Name()

	successScore := stats.SuccessRate()

	latencyScore := 1 - clamp01(float64(stats.AverageLatency)/float64(smartLatencyHorizon))

	maxLoad := 1
	for _, load := range s.loads {
		if load > maxLoad {
			maxLoad = load
		}
	}
	loadScore := 1 - clamp01(float64(s.loads[name])/float64(maxLoad))

	recencyScore := 1.0
	if last, ok := s.lastUsed[name]; ok {
		recencyScore = clamp01(s.now().Sub(last).Seconds() / smartRecencyHorizon.Seconds())
	}

	experienceScore := clamp01(float64(stats.TotalRequests) / smartExperienceTarget)

	modelScore := 1.0
	if req.Model != "" && !supportsModel(p, req.Model) {
		modelScore = 0.5
	}

	return smartSuccessWeight*successScore +
		smartLatencyWeight*latencyScore +
		smartLoadWeight*loadScore +
		smartRecencyWeight*recencyScore +
		smartExperienceWeight*experienceScore +
		smartModelWeight*modelScore
}

// RecordOutcome releases the provider's in-flight slot. The historical
// factors come from the provider's own statistics, which the adapter
// updates itself.
func (s *Smart) RecordOutcome(provider string, success bool, latency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loads[provider] > 0 {
		s.loads[provider]--
	}
}

// GetName returns the strategy name.
func (s *Smart) GetName() string {
	return NameSmart
}

// Reset clears the load and recency tracking.
func (s *Smart) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads = make(map[string]int)
	s.lastUsed = make(map[string]time.Time)
}

// supportsModel reports whether the provider serves the model natively.
func supportsModel(p providers.Provider, model string) bool {
	for _, m := range p.Models() {
		if m == model {
			return true
		}
	}
	return false
}

// clamp01 bounds v to [0, 1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
