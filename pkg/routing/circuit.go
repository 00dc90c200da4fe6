package routing

import (
	"sync"
	"time"
)

// DefaultCircuitTimeout is how long a provider circuit stays open after a
// failure before it is probed again.
const DefaultCircuitTimeout = 5 * time.Minute

// CircuitState is a read-only view of one provider's circuit.
type CircuitState struct {
	// Open reports whether the circuit currently rejects the provider.
	Open bool `json:"open"`

	// LastFailure is the failure that opened the circuit. Zero when the
	// circuit has never tripped or was closed by a success.
	LastFailure time.Time `json:"last_failure,omitzero"`

	// ReopensIn is how long until the provider is probed again.
	// Zero when the circuit is closed.
	ReopensIn time.Duration `json:"reopens_in,omitempty"`
}

// CircuitBreaker tracks the last failure time per provider. A failure opens
// the provider's circuit for the configured timeout; a success closes it
// immediately, regardless of how recently it failed.
//
// The breaker is safe for concurrent use.
type CircuitBreaker struct {
	mu       sync.Mutex
	failures map[string]time.Time
	timeout  time.Duration

	// now is replaceable in tests.
	now func() time.Time
}

// NewCircuitBreaker creates a breaker with the given open duration.
// A non-positive timeout means DefaultCircuitTimeout.
func NewCircuitBreaker(timeout time.Duration) *CircuitBreaker {
	if timeout <= 0 {
		timeout = DefaultCircuitTimeout
	}
	return &CircuitBreaker{
		failures: make(map[string]time.Time),
		timeout:  timeout,
		now:      time.Now,
	}
}

// MarkFailure records a provider failure, opening its circuit. A repeated
// failure restarts the cooldown from now.
func (b *CircuitBreaker) MarkFailure(provider string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[provider] = b.now()
}

// MarkSuccess closes the provider's circuit immediately.
func (b *CircuitBreaker) MarkSuccess(provider string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.failures, provider)
}

// IsOpen reports whether the provider's circuit is currently open.
func (b *CircuitBreaker) IsOpen(provider string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	failedAt, ok := b.failures[provider]
	if !ok {
		return false
	}
	if b.now().Sub(failedAt) >= b.timeout {
		// Cooldown elapsed; the next attempt is the probe.
		delete(b.failures, provider)
		return false
	}
	return true
}

// State returns the circuit view for one provider.
func (b *CircuitBreaker) State(provider string) CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked(provider)
}

// Snapshot returns the circuit view for every provider with a recorded
// failure. Providers with closed circuits and no failure history are absent.
func (b *CircuitBreaker) Snapshot() map[string]CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[string]CircuitState, len(b.failures))
	for provider := range b.failures {
		out[provider] = b.stateLocked(provider)
	}
	return out
}

func (b *CircuitBreaker) stateLocked(provider string) CircuitState {
	failedAt, ok := b.failures[provider]
	if !ok {
		return CircuitState{}
	}
	elapsed := b.now().Sub(failedAt)
	if elapsed >= b.timeout {
		return CircuitState{LastFailure: failedAt}
	}
	return CircuitState{
		Open:        true,
		LastFailure: failedAt,
		ReopensIn:   b.timeout - elapsed,
	}
}

// Reset clears all failure records.
func (b *CircuitBreaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = make(map[string]time.Time)
}
