// Package ratelimit provides multi-dimensional rate limiting for provider
// request and token quotas.
//
// # Overview
//
// A Limiter tracks usage for string keys (typically "provider:model") and
// judges admission against a Spec describing the quota dimensions that apply
// to that key:
//
//   - Requests per minute / hour / day / month
//   - Tokens per minute / hour / day / month
//   - Burst allowance
//
// Admission is two-phase: Check is called before a provider request and
// consumes one request slot across every active dimension, while RecordTokens
// is called after the response returns, once actual token usage is known.
// Token usage is never estimated up front.
//
// # Strategies
//
// Four interchangeable algorithms implement the Limiter interface:
//
//   - Sliding window (default): per-dimension timestamp queues pruned on
//     every check, plus calendar-boundary day and month accumulators.
//     The most precise strategy and the only one that enforces every
//     dimension of a Spec.
//   - Fixed window: counters reset at the start of each wall-clock minute.
//     Allows up to double the configured rate at window boundaries; this is
//     inherent to the algorithm, not a defect.
//   - Token bucket: continuous refill at limit/60 per second.
//   - Leaky bucket: a level draining at limit/60 per second.
//
// The non-sliding strategies enforce the requests-per-minute dimension only.
//
// # Usage
//
//	manager, err := ratelimit.NewManager(ratelimit.StrategySlidingWindow)
//	if err != nil {
//	    return err
//	}
//
//	spec := ratelimit.Spec{RequestsPerMinute: 30, TokensPerMinute: 12000}
//	result := manager.Check("groq:llama-3.3-70b-versatile", spec, 0)
//	if !result.Allowed {
//	    // result.Dimension, result.RetryAfter describe the blocked quota
//	}
//
// All operations on a single key are serialized; checks against different
// keys do not contend beyond the limiter's own map lock.
package ratelimit
