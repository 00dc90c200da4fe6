package ratelimit

import (
	"fmt"
	"time"
)

// Strategy identifies a rate limiting algorithm.
type Strategy string

const (
	// StrategySlidingWindow prunes timestamp queues on every check.
	// This is the default and the only strategy that enforces every
	// dimension of a Spec.
	StrategySlidingWindow Strategy = "sliding_window"

	// StrategyFixedWindow resets counters at the start of each minute.
	StrategyFixedWindow Strategy = "fixed_window"

	// StrategyTokenBucket refills continuously at limit/60 per second.
	StrategyTokenBucket Strategy = "token_bucket"

	// StrategyLeakyBucket drains a level at limit/60 per second.
	StrategyLeakyBucket Strategy = "leaky_bucket"
)

// Dimension identifies a single quota dimension within a Spec.
type Dimension string

const (
	DimRequestsPerMinute Dimension = "requests_per_minute"
	DimRequestsPerHour   Dimension = "requests_per_hour"
	DimRequestsPerDay    Dimension = "requests_per_day"
	DimRequestsPerMonth  Dimension = "requests_per_month"
	DimTokensPerMinute   Dimension = "tokens_per_minute"
	DimTokensPerHour     Dimension = "tokens_per_hour"
	DimTokensPerDay      Dimension = "tokens_per_day"
	DimTokensPerMonth    Dimension = "tokens_per_month"
)

// Spec describes the quota dimensions enforced for a single key.
// A zero value for any optional dimension means that dimension is unbounded.
// Specs are built once from configuration and never mutated.
type Spec struct {
	// RequestsPerMinute is the only required dimension; it must be positive.
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`

	// Optional request dimensions. Zero means unbounded.
	RequestsPerHour  int `yaml:"requests_per_hour,omitempty" json:"requests_per_hour,omitempty"`
	RequestsPerDay   int `yaml:"requests_per_day,omitempty" json:"requests_per_day,omitempty"`
	RequestsPerMonth int `yaml:"requests_per_month,omitempty" json:"requests_per_month,omitempty"`

	// Optional token dimensions. Zero means unbounded.
	TokensPerMinute int `yaml:"tokens_per_minute,omitempty" json:"tokens_per_minute,omitempty"`
	TokensPerHour   int `yaml:"tokens_per_hour,omitempty" json:"tokens_per_hour,omitempty"`
	TokensPerDay    int `yaml:"tokens_per_day,omitempty" json:"tokens_per_day,omitempty"`
	TokensPerMonth  int `yaml:"tokens_per_month,omitempty" json:"tokens_per_month,omitempty"`

	// BurstLimit caps short bursts. If unset or smaller than
	// RequestsPerMinute it defaults to twice RequestsPerMinute.
	BurstLimit int `yaml:"burst_limit,omitempty" json:"burst_limit,omitempty"`

	// WindowSize is the base tracking window. Defaults to one minute.
	WindowSize time.Duration `yaml:"window_size,omitempty" json:"window_size,omitempty"`
}

// Normalize applies Spec defaults and validates required fields.
// It returns an error if RequestsPerMinute is not positive.
func (s *Spec) Normalize() error {
	if s.RequestsPerMinute <= 0 {
		return fmt.Errorf("requests_per_minute must be positive, got %d", s.RequestsPerMinute)
	}
	if s.BurstLimit < s.RequestsPerMinute {
		s.BurstLimit = s.RequestsPerMinute * 2
	}
	if s.WindowSize <= 0 {
		s.WindowSize = time.Minute
	}
	return nil
}

// CheckResult describes the outcome of an admission check.
// When Allowed is false, Dimension names the first quota that blocked
// admission and RetryAfter suggests how long to wait.
type CheckResult struct {
	// Allowed indicates whether the request was admitted.
	Allowed bool

	// Dimension is the quota that blocked admission (when denied).
	Dimension Dimension

	// Current is the usage counted against the blocking dimension.
	Current int64

	// Limit is the configured limit for the blocking dimension.
	Limit int64

	// Remaining is how much of the limit is left (when allowed).
	Remaining int64

	// Reset is when the blocking dimension's window expires.
	Reset time.Time

	// RetryAfter suggests how long to wait before retrying.
	RetryAfter time.Duration
}

// DimensionStatus is a read-only view of one dimension for a key.
type DimensionStatus struct {
	Current   int64     `json:"current"`
	Limit     int64     `json:"limit"`
	Remaining int64     `json:"remaining"`
	Reset     time.Time `json:"reset,omitzero"`
}

// Snapshot is a read-only view of every active dimension for a key,
// consumed by the status and analytics surfaces.
type Snapshot map[Dimension]DimensionStatus
