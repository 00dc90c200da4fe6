package ratelimit

import (
	"fmt"
	"log/slog"
)

// Limiter judges admission for keyed requests across quota dimensions.
//
// Implementations must serialize all operations on a single key so that an
// admission check and its usage recording form one atomic step.
type Limiter interface {
	// Check evaluates every active dimension of spec for key. If all
	// dimensions pass, the request is recorded and Check returns an
	// allowed result. If any dimension would be exceeded, nothing is
	// recorded and the result describes the first blocking dimension.
	//
	// tokensHint optionally charges an expected token count at admission
	// time; pass 0 when token usage is unknown until the response returns.
	Check(key string, spec Spec, tokensHint int64) CheckResult

	// RecordTokens charges token usage against key after a response
	// returns. It affects token dimensions only, never request counts.
	RecordTokens(key string, tokens int64)

	// Status reports current usage for every active dimension of spec
	// without recording anything.
	Status(key string, spec Spec) Snapshot

	// Reset discards all tracked usage for key.
	Reset(key string)
}

// Manager owns a Limiter selected by strategy and is the single entry point
// used by provider adapters and the status surface.
type Manager struct {
	strategy Strategy
	limiter  Limiter
	logger   *slog.Logger
}

// NewManager creates a Manager backed by the named strategy.
func NewManager(strategy Strategy) (*Manager, error) {
	var limiter Limiter

	switch strategy {
	case StrategySlidingWindow, "":
		strategy = StrategySlidingWindow
		limiter = NewSlidingWindowLimiter()
	case StrategyFixedWindow:
		limiter = NewFixedWindowLimiter()
	case StrategyTokenBucket:
		limiter = NewTokenBucketLimiter()
	case StrategyLeakyBucket:
		limiter = NewLeakyBucketLimiter()
	default:
		return nil, fmt.Errorf("unknown rate limit strategy %q", strategy)
	}

	return &Manager{
		strategy: strategy,
		limiter:  limiter,
		logger:   slog.Default().With("component", "ratelimit"),
	}, nil
}

// Strategy returns the configured strategy name.
func (m *Manager) Strategy() Strategy {
	return m.strategy
}

// Check evaluates admission for key against spec.
func (m *Manager) Check(key string, spec Spec, tokensHint int64) CheckResult {
	result := m.limiter.Check(key, spec, tokensHint)
	if !result.Allowed {
		m.logger.Debug("rate limit exceeded",
			"key", key,
			"dimension", result.Dimension,
			"current", result.Current,
			"limit", result.Limit,
			"retry_after", result.RetryAfter,
		)
	}
	return result
}

// RecordTokens charges post-hoc token usage against key.
func (m *Manager) RecordTokens(key string, tokens int64) {
	if tokens <= 0 {
		return
	}
	m.limiter.RecordTokens(key, tokens)
}

// Status reports current usage for key without consuming anything.
func (m *Manager) Status(key string, spec Spec) Snapshot {
	return m.limiter.Status(key, spec)
}

// Reset discards all tracked usage for key.
func (m *Manager) Reset(key string) {
	m.limiter.Reset(key)
	m.logger.Info("rate limit reset", "key", key)
}
