package ratelimit

import (
	"sync"
	"time"
)

// tokenEntry records token usage at a point in time.
type tokenEntry struct {
	at     time.Time
	tokens int64
}

// keyState holds all tracked usage for one key.
//
// Queue entries are always in non-decreasing time order; entries older than
// the window boundary are evicted before any read. Day and month accumulators
// are keyed by calendar index and cleared when the index changes.
type keyState struct {
	reqMinute []time.Time
	reqHour   []time.Time
	tokMinute []tokenEntry
	tokHour   []tokenEntry

	dayRequests   int64
	dayTokens     int64
	monthRequests int64
	monthTokens   int64

	lastDay   int64 // unix day index of the day accumulators
	lastMonth int   // year*12 + month of the month accumulators
}

// SlidingWindowLimiter is the primary Limiter implementation. It keeps
// per-key timestamp queues for minute and hour windows and calendar
// accumulators for day and month quotas.
//
// Dimensions are evaluated in a fixed order (requests before tokens, shorter
// windows before longer ones) and the first dimension that would be exceeded
// denies admission without recording anything.
type SlidingWindowLimiter struct {
	mu   sync.Mutex
	keys map[string]*keyState

	// now is replaceable in tests.
	now func() time.Time
}

// NewSlidingWindowLimiter creates an empty sliding window limiter.
// Key state is created lazily on first check.
func NewSlidingWindowLimiter() *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		keys: make(map[string]*keyState),
		now:  time.Now,
	}
}

// Check implements Limiter.
func (l *SlidingWindowLimiter) Check(key string, spec Spec, tokensHint int64) CheckResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	st := l.state(key)
	st.rollCalendars(now)

	// Requests per minute is always enforced.
	st.reqMinute = pruneTimes(st.reqMinute, now.Add(-time.Minute))
	if int64(len(st.reqMinute)) >= int64(spec.RequestsPerMinute) {
		return deniedWindow(DimRequestsPerMinute, int64(len(st.reqMinute)),
			int64(spec.RequestsPerMinute), oldestTime(st.reqMinute), time.Minute, now)
	}

	if spec.RequestsPerHour > 0 {
		st.reqHour = pruneTimes(st.reqHour, now.Add(-time.Hour))
		if int64(len(st.reqHour)) >= int64(spec.RequestsPerHour) {
			return deniedWindow(DimRequestsPerHour, int64(len(st.reqHour)),
				int64(spec.RequestsPerHour), oldestTime(st.reqHour), time.Hour, now)
		}
	}

	if spec.RequestsPerDay > 0 && st.dayRequests >= int64(spec.RequestsPerDay) {
		return deniedCalendar(DimRequestsPerDay, st.dayRequests, int64(spec.RequestsPerDay), nextDay(now), now)
	}

	if spec.RequestsPerMonth > 0 && st.monthRequests >= int64(spec.RequestsPerMonth) {
		return deniedCalendar(DimRequestsPerMonth, st.monthRequests, int64(spec.RequestsPerMonth), nextMonth(now), now)
	}

	if spec.TokensPerMinute > 0 {
		st.tokMinute = pruneTokens(st.tokMinute, now.Add(-time.Minute))
		if sum := sumTokens(st.tokMinute); sum+tokensHint > int64(spec.TokensPerMinute) {
			return deniedWindow(DimTokensPerMinute, sum, int64(spec.TokensPerMinute),
				oldestEntry(st.tokMinute), time.Minute, now)
		}
	}

	if spec.TokensPerHour > 0 {
		st.tokHour = pruneTokens(st.tokHour, now.Add(-time.Hour))
		if sum := sumTokens(st.tokHour); sum+tokensHint > int64(spec.TokensPerHour) {
			return deniedWindow(DimTokensPerHour, sum, int64(spec.TokensPerHour),
				oldestEntry(st.tokHour), time.Hour, now)
		}
	}

	if spec.TokensPerDay > 0 && st.dayTokens+tokensHint > int64(spec.TokensPerDay) {
		return deniedCalendar(DimTokensPerDay, st.dayTokens, int64(spec.TokensPerDay), nextDay(now), now)
	}

	if spec.TokensPerMonth > 0 && st.monthTokens+tokensHint > int64(spec.TokensPerMonth) {
		return deniedCalendar(DimTokensPerMonth, st.monthTokens, int64(spec.TokensPerMonth), nextMonth(now), now)
	}

	// Every dimension passed: record the request.
	st.reqMinute = append(st.reqMinute, now)
	st.reqHour = append(st.reqHour, now)
	if tokensHint > 0 {
		st.tokMinute = append(st.tokMinute, tokenEntry{at: now, tokens: tokensHint})
		st.tokHour = append(st.tokHour, tokenEntry{at: now, tokens: tokensHint})
	}
	st.dayRequests++
	st.dayTokens += tokensHint
	st.monthRequests++
	st.monthTokens += tokensHint

	return CheckResult{
		Allowed:   true,
		Dimension: DimRequestsPerMinute,
		Current:   int64(len(st.reqMinute)),
		Limit:     int64(spec.RequestsPerMinute),
		Remaining: int64(spec.RequestsPerMinute) - int64(len(st.reqMinute)),
	}
}

// RecordTokens implements Limiter. It appends to the token queues and
// calendar token accumulators without touching request counts.
func (l *SlidingWindowLimiter) RecordTokens(key string, tokens int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	st := l.state(key)
	st.rollCalendars(now)

	entry := tokenEntry{at: now, tokens: tokens}
	st.tokMinute = append(st.tokMinute, entry)
	st.tokHour = append(st.tokHour, entry)
	st.dayTokens += tokens
	st.monthTokens += tokens
}

// Status implements Limiter.
func (l *SlidingWindowLimiter) Status(key string, spec Spec) Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	st := l.state(key)
	st.rollCalendars(now)

	st.reqMinute = pruneTimes(st.reqMinute, now.Add(-time.Minute))
	st.reqHour = pruneTimes(st.reqHour, now.Add(-time.Hour))
	st.tokMinute = pruneTokens(st.tokMinute, now.Add(-time.Minute))
	st.tokHour = pruneTokens(st.tokHour, now.Add(-time.Hour))

	snap := Snapshot{
		DimRequestsPerMinute: windowStatus(int64(len(st.reqMinute)), int64(spec.RequestsPerMinute), oldestTime(st.reqMinute), time.Minute),
	}
	if spec.RequestsPerHour > 0 {
		snap[DimRequestsPerHour] = windowStatus(int64(len(st.reqHour)), int64(spec.RequestsPerHour), oldestTime(st.reqHour), time.Hour)
	}
	if spec.RequestsPerDay > 0 {
		snap[DimRequestsPerDay] = calendarStatus(st.dayRequests, int64(spec.RequestsPerDay), nextDay(now))
	}
	if spec.RequestsPerMonth > 0 {
		snap[DimRequestsPerMonth] = calendarStatus(st.monthRequests, int64(spec.RequestsPerMonth), nextMonth(now))
	}
	if spec.TokensPerMinute > 0 {
		snap[DimTokensPerMinute] = windowStatus(sumTokens(st.tokMinute), int64(spec.TokensPerMinute), oldestEntry(st.tokMinute), time.Minute)
	}
	if spec.TokensPerHour > 0 {
		snap[DimTokensPerHour] = windowStatus(sumTokens(st.tokHour), int64(spec.TokensPerHour), oldestEntry(st.tokHour), time.Hour)
	}
	if spec.TokensPerDay > 0 {
		snap[DimTokensPerDay] = calendarStatus(st.dayTokens, int64(spec.TokensPerDay), nextDay(now))
	}
	if spec.TokensPerMonth > 0 {
		snap[DimTokensPerMonth] = calendarStatus(st.monthTokens, int64(spec.TokensPerMonth), nextMonth(now))
	}

	return snap
}

// Reset implements Limiter.
func (l *SlidingWindowLimiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.keys, key)
}

// state returns the tracked state for key, creating it lazily.
// Caller must hold l.mu.
func (l *SlidingWindowLimiter) state(key string) *keyState {
	st, ok := l.keys[key]
	if !ok {
		now := l.now()
		st = &keyState{
			lastDay:   dayIndex(now),
			lastMonth: monthIndex(now),
		}
		l.keys[key] = st
	}
	return st
}

// rollCalendars clears the day or month accumulators whose calendar
// boundary has been crossed. Each boundary clears only its own pair.
func (st *keyState) rollCalendars(now time.Time) {
	if day := dayIndex(now); day != st.lastDay {
		st.dayRequests = 0
		st.dayTokens = 0
		st.lastDay = day
	}
	if month := monthIndex(now); month != st.lastMonth {
		st.monthRequests = 0
		st.monthTokens = 0
		st.lastMonth = month
	}
}

func dayIndex(t time.Time) int64 {
	return t.Unix() / 86400
}

func monthIndex(t time.Time) int {
	t = t.UTC()
	return t.Year()*12 + int(t.Month())
}

// nextDay returns the next UTC midnight after t.
func nextDay(t time.Time) time.Time {
	return time.Unix((dayIndex(t)+1)*86400, 0).UTC()
}

// nextMonth returns the first instant of the next UTC calendar month.
func nextMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, time.UTC)
}

// pruneTimes drops entries at or before cutoff, reusing the backing array.
func pruneTimes(q []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(q) && !q[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return q
	}
	return append(q[:0], q[i:]...)
}

func pruneTokens(q []tokenEntry, cutoff time.Time) []tokenEntry {
	i := 0
	for i < len(q) && !q[i].at.After(cutoff) {
		i++
	}
	if i == 0 {
		return q
	}
	return append(q[:0], q[i:]...)
}

func sumTokens(q []tokenEntry) int64 {
	var sum int64
	for _, e := range q {
		sum += e.tokens
	}
	return sum
}

func oldestTime(q []time.Time) time.Time {
	if len(q) == 0 {
		return time.Time{}
	}
	return q[0]
}

func oldestEntry(q []tokenEntry) time.Time {
	if len(q) == 0 {
		return time.Time{}
	}
	return q[0].at
}

// deniedWindow builds a denial for a sliding dimension. The retry hint is
// the time until the oldest surviving entry ages out of the window.
func deniedWindow(dim Dimension, current, limit int64, oldest time.Time, window time.Duration, now time.Time) CheckResult {
	reset := now.Add(time.Second)
	if !oldest.IsZero() {
		reset = oldest.Add(window)
	}
	retryAfter := reset.Sub(now)
	if retryAfter < time.Second {
		retryAfter = time.Second
	}
	return CheckResult{
		Allowed:    false,
		Dimension:  dim,
		Current:    current,
		Limit:      limit,
		Reset:      reset,
		RetryAfter: retryAfter,
	}
}

// deniedCalendar builds a denial for a day or month dimension. The retry
// hint is the distance to the calendar boundary.
func deniedCalendar(dim Dimension, current, limit int64, boundary, now time.Time) CheckResult {
	return CheckResult{
		Allowed:    false,
		Dimension:  dim,
		Current:    current,
		Limit:      limit,
		Reset:      boundary,
		RetryAfter: boundary.Sub(now),
	}
}

func windowStatus(current, limit int64, oldest time.Time, window time.Duration) DimensionStatus {
	st := DimensionStatus{
		Current:   current,
		Limit:     limit,
		Remaining: max(0, limit-current),
	}
	if !oldest.IsZero() {
		st.Reset = oldest.Add(window)
	}
	return st
}

func calendarStatus(current, limit int64, boundary time.Time) DimensionStatus {
	return DimensionStatus{
		Current:   current,
		Limit:     limit,
		Remaining: max(0, limit-current),
		Reset:     boundary,
	}
}
