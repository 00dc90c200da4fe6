package ratelimit

import (
	"sync"
	"time"
)

// leakyBucket holds the draining level for one key.
type leakyBucket struct {
	level    float64
	lastLeak time.Time
}

// LeakyBucketLimiter is the inverse of the token bucket: each admitted
// request raises a per-key level by one, the level drains at limit/60 per
// second, and a request is denied while adding it would push the level past
// the requests-per-minute capacity.
//
// Only the requests-per-minute dimension is enforced.
type LeakyBucketLimiter struct {
	mu   sync.Mutex
	keys map[string]*leakyBucket
	now  func() time.Time
}

// NewLeakyBucketLimiter creates an empty leaky bucket limiter.
func NewLeakyBucketLimiter() *LeakyBucketLimiter {
	return &LeakyBucketLimiter{
		keys: make(map[string]*leakyBucket),
		now:  time.Now,
	}
}

// Check implements Limiter.
func (l *LeakyBucketLimiter) Check(key string, spec Spec, tokensHint int64) CheckResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	capacity := float64(spec.RequestsPerMinute)
	leakRate := capacity / 60.0 // per second

	b, ok := l.keys[key]
	if !ok {
		b = &leakyBucket{lastLeak: now}
		l.keys[key] = b
	}

	elapsed := now.Sub(b.lastLeak).Seconds()
	b.level = max(0, b.level-elapsed*leakRate)
	b.lastLeak = now

	if b.level >= capacity {
		retryAfter := time.Duration((b.level - capacity + 1) / leakRate * float64(time.Second))
		return CheckResult{
			Allowed:    false,
			Dimension:  DimRequestsPerMinute,
			Current:    int64(b.level),
			Limit:      int64(spec.RequestsPerMinute),
			Reset:      now.Add(retryAfter),
			RetryAfter: retryAfter,
		}
	}

	b.level++
	return CheckResult{
		Allowed:   true,
		Dimension: DimRequestsPerMinute,
		Current:   int64(b.level),
		Limit:     int64(spec.RequestsPerMinute),
		Remaining: int64(capacity - b.level),
	}
}

// RecordTokens implements Limiter. Leaky buckets track requests only.
func (l *LeakyBucketLimiter) RecordTokens(string, int64) {}

// Status implements Limiter.
func (l *LeakyBucketLimiter) Status(key string, spec Spec) Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	var level float64
	if b, ok := l.keys[key]; ok {
		elapsed := l.now().Sub(b.lastLeak).Seconds()
		level = max(0, b.level-elapsed*float64(spec.RequestsPerMinute)/60.0)
	}

	return Snapshot{
		DimRequestsPerMinute: {
			Current:   int64(level),
			Limit:     int64(spec.RequestsPerMinute),
			Remaining: max(0, int64(spec.RequestsPerMinute)-int64(level)),
		},
	}
}

// Reset implements Limiter.
func (l *LeakyBucketLimiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.keys, key)
}
