package ratelimit

import (
	"sync"
	"time"
)

// fixedWindow holds the counter for the current wall-clock minute.
type fixedWindow struct {
	windowStart int64 // unix seconds, aligned to the minute
	count       int64
}

// FixedWindowLimiter counts requests against the current wall-clock minute
// and resets the counter when the minute changes.
//
// Because the counter resets at the boundary rather than sliding, a caller
// can consume the full limit at the end of one minute and again at the start
// of the next, briefly doubling the admitted rate. That boundary burst is
// inherent to the algorithm.
//
// Only the requests-per-minute dimension is enforced.
type FixedWindowLimiter struct {
	mu   sync.Mutex
	keys map[string]*fixedWindow
	now  func() time.Time
}

// NewFixedWindowLimiter creates an empty fixed window limiter.
func NewFixedWindowLimiter() *FixedWindowLimiter {
	return &FixedWindowLimiter{
		keys: make(map[string]*fixedWindow),
		now:  time.Now,
	}
}

// Check implements Limiter.
func (l *FixedWindowLimiter) Check(key string, spec Spec, tokensHint int64) CheckResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	windowStart := now.Unix() / 60 * 60

	w, ok := l.keys[key]
	if !ok {
		w = &fixedWindow{}
		l.keys[key] = w
	}

	if w.windowStart != windowStart {
		w.windowStart = windowStart
		w.count = 0
	}

	reset := time.Unix(windowStart+60, 0)
	if w.count >= int64(spec.RequestsPerMinute) {
		return CheckResult{
			Allowed:    false,
			Dimension:  DimRequestsPerMinute,
			Current:    w.count,
			Limit:      int64(spec.RequestsPerMinute),
			Reset:      reset,
			RetryAfter: reset.Sub(now),
		}
	}

	w.count++
	return CheckResult{
		Allowed:   true,
		Dimension: DimRequestsPerMinute,
		Current:   w.count,
		Limit:     int64(spec.RequestsPerMinute),
		Remaining: int64(spec.RequestsPerMinute) - w.count,
		Reset:     reset,
	}
}

// RecordTokens implements Limiter. Fixed windows track requests only.
func (l *FixedWindowLimiter) RecordTokens(string, int64) {}

// Status implements Limiter.
func (l *FixedWindowLimiter) Status(key string, spec Spec) Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	windowStart := now.Unix() / 60 * 60

	var count int64
	if w, ok := l.keys[key]; ok && w.windowStart == windowStart {
		count = w.count
	}

	return Snapshot{
		DimRequestsPerMinute: {
			Current:   count,
			Limit:     int64(spec.RequestsPerMinute),
			Remaining: max(0, int64(spec.RequestsPerMinute)-count),
			Reset:     time.Unix(windowStart+60, 0),
		},
	}
}

// Reset implements Limiter.
func (l *FixedWindowLimiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.keys, key)
}
