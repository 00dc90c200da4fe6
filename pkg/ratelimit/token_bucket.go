package ratelimit

import (
	"sync"
	"time"
)

// tokenBucket holds the refillable admission credit for one key.
type tokenBucket struct {
	tokens     float64
	lastRefill time.Time
}

// TokenBucketLimiter admits requests while a per-key bucket holds at least
// one token. The bucket starts full at the requests-per-minute limit and
// refills continuously at limit/60 tokens per second, so short bursts up to
// the full limit are admitted immediately while the sustained rate converges
// on the configured limit.
//
// Only the requests-per-minute dimension is enforced.
type TokenBucketLimiter struct {
	mu   sync.Mutex
	keys map[string]*tokenBucket
	now  func() time.Time
}

// NewTokenBucketLimiter creates an empty token bucket limiter.
func NewTokenBucketLimiter() *TokenBucketLimiter {
	return &TokenBucketLimiter{
		keys: make(map[string]*tokenBucket),
		now:  time.Now,
	}
}

// Check implements Limiter.
func (l *TokenBucketLimiter) Check(key string, spec Spec, tokensHint int64) CheckResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	capacity := float64(spec.RequestsPerMinute)
	refillRate := capacity / 60.0 // tokens per second

	b, ok := l.keys[key]
	if !ok {
		b = &tokenBucket{tokens: capacity, lastRefill: now}
		l.keys[key] = b
	}

	elapsed := now.Sub(b.lastRefill).Seconds()
	b.tokens = min(capacity, b.tokens+elapsed*refillRate)
	b.lastRefill = now

	if b.tokens < 1 {
		retryAfter := time.Duration((1 - b.tokens) / refillRate * float64(time.Second))
		return CheckResult{
			Allowed:    false,
			Dimension:  DimRequestsPerMinute,
			Current:    int64(capacity),
			Limit:      int64(spec.RequestsPerMinute),
			Reset:      now.Add(retryAfter),
			RetryAfter: retryAfter,
		}
	}

	b.tokens--
	return CheckResult{
		Allowed:   true,
		Dimension: DimRequestsPerMinute,
		Current:   int64(capacity - b.tokens),
		Limit:     int64(spec.RequestsPerMinute),
		Remaining: int64(b.tokens),
	}
}

// RecordTokens implements Limiter. Token buckets track requests only.
func (l *TokenBucketLimiter) RecordTokens(string, int64) {}

// Status implements Limiter.
func (l *TokenBucketLimiter) Status(key string, spec Spec) Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	remaining := int64(spec.RequestsPerMinute)
	if b, ok := l.keys[key]; ok {
		elapsed := l.now().Sub(b.lastRefill).Seconds()
		tokens := min(float64(spec.RequestsPerMinute), b.tokens+elapsed*float64(spec.RequestsPerMinute)/60.0)
		remaining = int64(tokens)
	}

	return Snapshot{
		DimRequestsPerMinute: {
			Current:   int64(spec.RequestsPerMinute) - remaining,
			Limit:     int64(spec.RequestsPerMinute),
			Remaining: remaining,
		},
	}
}

// Reset implements Limiter.
func (l *TokenBucketLimiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.keys, key)
}
