package routing

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"meridian-llm/meridian/pkg/providers"
)

// Router attempt-loop tunables.
const (
	// DefaultAttempts is the per-request attempt budget.
	DefaultAttempts = 3

	// DefaultSelectRetryDelay is how long the router waits before retrying
	// when no provider is available at all.
	DefaultSelectRetryDelay = time.Second

	// failureBackoffStep scales the post-failure delay by attempt number.
	failureBackoffStep = 500 * time.Millisecond

	// failureBackoffCap bounds the post-failure delay.
	failureBackoffCap = 2 * time.Second
)

// RoutingStrategy is the load-balancing contract the router drives.
// It is defined here to avoid an import cycle with the strategies package.
//
// Implementations must be safe for concurrent use.
type RoutingStrategy interface {
	// SelectProvider picks one provider from the candidate set.
	SelectProvider(req *Request, available []providers.Provider) (providers.Provider, error)

	// RecordOutcome feeds a dispatch result back into the strategy's
	// adaptive state. Strategies without adaptive state ignore it.
	RecordOutcome(provider string, success bool, latency time.Duration)

	// GetName returns the strategy name for logging and statistics.
	GetName() string

	// Reset clears the strategy's internal state.
	Reset()
}

// ProviderSource yields the currently-available candidate set. It is
// satisfied by *providers.Registry.
type ProviderSource interface {
	Available() []providers.Provider
}

// Options configures a Router.
type Options struct {
	// Attempts is the per-request attempt budget (default DefaultAttempts).
	Attempts int

	// CircuitTimeout is how long a failing provider is skipped
	// (default DefaultCircuitTimeout).
	CircuitTimeout time.Duration

	// SelectRetryDelay is the wait before retrying an empty candidate set
	// (default DefaultSelectRetryDelay).
	SelectRetryDelay time.Duration
}

// Router dispatches completion requests, retrying across providers within a
// fixed attempt budget and skipping providers whose circuit is open.
type Router struct {
	registry ProviderSource
	strategy RoutingStrategy
	breaker  *CircuitBreaker

	attempts         int
	selectRetryDelay time.Duration

	logger *slog.Logger

	statsMu sync.Mutex
	stats   Stats

	// now and sleep are replaceable in tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRouter creates a router over the registry using the given strategy.
func NewRouter(registry ProviderSource, strategy RoutingStrategy, opts Options) *Router {
	if opts.Attempts <= 0 {
		opts.Attempts = DefaultAttempts
	}
	if opts.SelectRetryDelay <= 0 {
		opts.SelectRetryDelay = DefaultSelectRetryDelay
	}

	return &Router{
		registry:         registry,
		strategy:         strategy,
		breaker:          NewCircuitBreaker(opts.CircuitTimeout),
		attempts:         opts.Attempts,
		selectRetryDelay: opts.SelectRetryDelay,
		logger:           slog.Default().With("component", "routing"),
		stats:            Stats{RequestsPerProvider: make(map[string]int64), LastReset: time.Now()},
		now:              time.Now,
		sleep:            sleepContext,
	}
}

// Breaker exposes the circuit breaker for the status surface.
func (r *Router) Breaker() *CircuitBreaker { return r.breaker }

// StrategyName returns the active strategy's name.
func (r *Router) StrategyName() string { return r.strategy.GetName() }

// Route selects a provider and dispatches creq, retrying on failure until
// the attempt budget is exhausted.
//
// Each loop iteration consumes one attempt, whether it found no candidate,
// selected a circuit-open provider, or dispatched and failed. A successful
// dispatch closes the provider's circuit and returns immediately.
func (r *Router) Route(ctx context.Context, req *Request, creq *providers.CompletionRequest) (*Result, error) {
	r.statsMu.Lock()
	r.stats.TotalRequests++
	r.statsMu.Unlock()

	var (
		attempted []string
		lastErr   error
	)

	for attempt := 1; attempt <= r.attempts; attempt++ {
		available := r.registry.Available()
		if len(available) == 0 {
			r.logger.Warn("no providers available",
				"request_id", req.RequestID,
				"attempt", attempt,
			)
			if attempt < r.attempts {
				if err := r.sleep(ctx, r.selectRetryDelay); err != nil {
					return nil, err
				}
			}
			continue
		}

		selected, err := r.strategy.SelectProvider(req, available)
		if err != nil {
			lastErr = err
			continue
		}
		name := selected.Name()

		if r.breaker.IsOpen(name) {
			r.logger.Debug("skipping provider with open circuit",
				"request_id", req.RequestID,
				"provider", name,
				"attempt", attempt,
			)
			r.statsMu.Lock()
			r.stats.CircuitSkips++
			r.statsMu.Unlock()
			continue
		}

		attempted = append(attempted, name)
		start := r.now()
		completion, err := selected.Generate(ctx, creq)
		latency := r.now().Sub(start)

		if err == nil {
			r.breaker.MarkSuccess(name)
			r.strategy.RecordOutcome(name, true, latency)
			r.recordSuccess(name)
			r.logger.Info("request served",
				"request_id", req.RequestID,
				"provider", name,
				"attempt", attempt,
				"latency", latency,
			)
			return &Result{
				Completion:         completion,
				ProviderName:       name,
				Strategy:           r.strategy.GetName(),
				Attempts:           attempt,
				AttemptedProviders: attempted[:len(attempted)-1],
			}, nil
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		lastErr = err
		r.strategy.RecordOutcome(name, false, latency)
		r.breaker.MarkFailure(name)
		r.logger.Warn("provider dispatch failed",
			"request_id", req.RequestID,
			"provider", name,
			"attempt", attempt,
			"error", err,
		)

		if attempt < r.attempts {
			if err := r.sleep(ctx, failureBackoff(attempt)); err != nil {
				return nil, err
			}
		}
	}

	r.statsMu.Lock()
	r.stats.FailedRequests++
	r.statsMu.Unlock()

	if lastErr == nil {
		return nil, &NoProviderError{Model: req.Model, Attempts: r.attempts}
	}
	return nil, &ExhaustedError{
		Model:              req.Model,
		Attempts:           r.attempts,
		AttemptedProviders: attempted,
		LastError:          lastErr,
	}
}

// Stats returns a copy of the router counters.
func (r *Router) Stats() Stats {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()

	out := r.stats
	out.RequestsPerProvider = make(map[string]int64, len(r.stats.RequestsPerProvider))
	for k, v := range r.stats.RequestsPerProvider {
		out.RequestsPerProvider[k] = v
	}
	return out
}

// ResetStats clears the router counters.
func (r *Router) ResetStats() {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()
	r.stats = Stats{RequestsPerProvider: make(map[string]int64), LastReset: r.now()}
}

func (r *Router) recordSuccess(provider string) {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()
	r.stats.SuccessfulRequests++
	r.stats.RequestsPerProvider[provider]++
}

// failureBackoff grows linearly with the attempt number up to a cap.
func failureBackoff(attempt int) time.Duration {
	return min(time.Duration(attempt)*failureBackoffStep, failureBackoffCap)
}

// sleepContext waits for d or until ctx is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
