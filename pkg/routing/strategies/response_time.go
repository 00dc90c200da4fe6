package strategies

import (
	"fmt"
	"sync"
	"time"

	"meridian-llm/meridian/pkg/providers"
	"meridian-llm/meridian/pkg/routing"
)

const (
	// rtHistorySize is how many recent samples feed the average.
	rtHistorySize = 10

	// rtDefaultLatency stands in for providers with no samples yet, so an
	// unmeasured provider beats a slow one but not a proven fast one.
	rtDefaultLatency = time.Second
)

// ResponseTime selects the candidate with the lowest average latency over
// its most recent successful responses. Failures are not sampled; a failing
// provider's standing decays only as its old samples age out.
type ResponseTime struct {
	mu      sync.Mutex
	history map[string][]time.Duration
}

// NewResponseTime creates a response-time strategy.
func NewResponseTime() *ResponseTime {
	return &ResponseTime{
		history: make(map[string][]time.Duration),
	}
}

// SelectProvider picks the candidate with the lowest average latency.
func (s *ResponseTime) SelectProvider(req *routing.Request, available []providers.Provider) (providers.Provider, error) {
	if len(available) == 0 {
		return nil, fmt.Errorf("response-time selection over empty candidate set")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		best    providers.Provider
		bestAvg time.Duration
	)
	for _, p := range available {
		avg := s.average(p.Name())
		if best == nil || avg < bestAvg {
			best = p
			bestAvg = avg
		}
	}
	return best, nil
}

// average returns the provider's mean sampled latency, or the default for
// providers with no samples. Called with s.mu held.
func (s *ResponseTime) average(provider string) time.Duration {
	samples := s.history[provider]
	if len(samples) == 0 {
		return rtDefaultLatency
	}
	var sum time.Duration
	for _, d := range samples {
		sum += d
	}
	return sum / time.Duration(len(samples))
}

// RecordOutcome samples successful latencies into the rolling window.
func (s *ResponseTime) RecordOutcome(provider string, success bool, latency time.Duration) {
	if !success {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	samples := append(s.history[provider], latency)
	if len(samples) > rtHistorySize {
		samples = samples[1:]
	}
	s.history[provider] = samples
}

// GetName returns the strategy name.
func (s *ResponseTime) GetName() string {
	return NameResponseTime
}

// Reset clears all latency samples.
func (s *ResponseTime) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = make(map[string][]time.Duration)
}
