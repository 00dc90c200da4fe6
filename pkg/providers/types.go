package providers

import (
	"time"

	"meridian-llm/meridian/pkg/ratelimit"
)

// CompletionRequest is the normalized request that flows from the router
// into an adapter. Sampling parameters are pointers so that "not set" is
// distinguishable from a deliberate zero.
type CompletionRequest struct {
	// Query is the prompt text. Required.
	Query string `json:"query"`

	// Model is an optional model hint. If the adapter does not support it,
	// the adapter's default model is used instead.
	Model string `json:"model,omitempty"`

	// MaxTokens caps the generated length. Zero means the service default.
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature controls randomness (0.0-2.0).
	Temperature *float64 `json:"temperature,omitempty"`

	// TopP controls nucleus sampling (0.0-1.0).
	TopP *float64 `json:"top_p,omitempty"`

	// TopK controls top-k sampling (>=1).
	TopK *int `json:"top_k,omitempty"`

	// Stop sequences halt generation.
	Stop []string `json:"stop,omitempty"`
}

// TokenUsage is the token accounting reported by a backend.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Total returns the best available total token count. Some backends omit
// the total and report only the prompt/completion split.
func (u TokenUsage) Total() int {
	if u.TotalTokens > 0 {
		return u.TotalTokens
	}
	return u.PromptTokens + u.CompletionTokens
}

// CompletionResult is the normalized response returned by an adapter.
type CompletionResult struct {
	// Content is the generated text.
	Content string `json:"content"`

	// Provider is the name of the adapter that produced the result.
	Provider string `json:"provider"`

	// Model is the model that actually served the request, which may
	// differ from the requested model hint.
	Model string `json:"model"`

	// Usage is the backend's token accounting, when reported.
	Usage TokenUsage `json:"usage"`

	// Latency is the wall time of the backend call.
	Latency time.Duration `json:"latency"`
}

// Capabilities declares which sampling parameters a backend honors.
// Unsupported parameters are silently omitted from outbound payloads.
type Capabilities struct {
	Temperature bool `json:"temperature" yaml:"temperature"`
	TopP        bool `json:"top_p" yaml:"top_p"`
	TopK        bool `json:"top_k" yaml:"top_k"`
}

// Stats holds rolling counters for one adapter. The owning adapter is the
// only writer; readers receive copies.
type Stats struct {
	// TotalRequests counts every completed call, successful or not.
	TotalRequests int64 `json:"total_requests"`

	// SuccessfulRequests counts calls that returned a usable completion.
	SuccessfulRequests int64 `json:"successful_requests"`

	// FailedRequests counts calls that ended in any error.
	FailedRequests int64 `json:"failed_requests"`

	// AverageLatency is the incremental mean over all completed calls.
	AverageLatency time.Duration `json:"average_latency"`

	// TotalTokens is the cumulative token consumption.
	TotalTokens int64 `json:"total_tokens"`

	// LastRequest is when the adapter last completed a call.
	LastRequest time.Time `json:"last_request,omitzero"`
}

// SuccessRate returns the fraction of calls that succeeded, or zero when
// no calls have completed yet.
func (s Stats) SuccessRate() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.SuccessfulRequests) / float64(s.TotalRequests)
}

// Availability is the result of a non-consuming availability probe.
type Availability struct {
	// Available indicates the adapter would likely admit a request now.
	Available bool `json:"available"`

	// Reason explains why the adapter is unavailable.
	Reason string `json:"reason,omitempty"`

	// RetryAfter suggests when to probe again, when known.
	RetryAfter time.Duration `json:"retry_after,omitempty"`
}

// Config describes one backend adapter. Base URL and credential come from
// process configuration, never from code.
type Config struct {
	// Name is the unique provider name (e.g. "groq").
	Name string

	// Type selects the wire format: "openai" (default) or "gemini".
	Type string

	// BaseURL is the API root, without a trailing slash.
	BaseURL string

	// APIKey is the credential. An adapter without a credential fails
	// closed: it reports unavailable and never calls out.
	APIKey string

	// Models lists the models the backend serves. The first entry is the
	// fallback default when DefaultModel is unset.
	Models []string

	// DefaultModel is used when a request's model hint is unsupported.
	DefaultModel string

	// Capabilities declares supported sampling parameters.
	Capabilities Capabilities

	// RateLimits maps model names (or "default") to their quota specs.
	RateLimits map[string]ratelimit.Spec

	// Headers are extra headers added to every outbound request.
	Headers map[string]string

	// Timeout bounds a single outbound call. Default 30s.
	Timeout time.Duration

	// ConnectTimeout bounds connection establishment. Default 10s.
	ConnectTimeout time.Duration

	// MaxIdleConns and MaxIdleConnsPerHost tune the connection pool.
	MaxIdleConns        int
	MaxIdleConnsPerHost int

	// IdleConnTimeout closes pooled connections after inactivity.
	IdleConnTimeout time.Duration
}

// defaultSpec is the quota applied to models with no configured limits.
var defaultSpec = ratelimit.Spec{RequestsPerMinute: 10, TokensPerMinute: 10000}

// specFor returns the quota spec for a model, falling back to the
// "default" entry and finally to a conservative built-in spec.
func (c *Config) specFor(model string) ratelimit.Spec {
	if spec, ok := c.RateLimits[model]; ok {
		return spec
	}
	if spec, ok := c.RateLimits["default"]; ok {
		return spec
	}
	return defaultSpec
}

// resolveModel maps a request's model hint to a model this backend serves.
func (c *Config) resolveModel(requested string) string {
	for _, m := range c.Models {
		if m == requested {
			return requested
		}
	}
	if c.DefaultModel != "" {
		return c.DefaultModel
	}
	if len(c.Models) > 0 {
		return c.Models[0]
	}
	return requested
}

// applyDefaults fills unset transport tunables.
func (c *Config) applyDefaults() {
	if c.Type == "" {
		c.Type = TypeOpenAI
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = 100
	}
	if c.MaxIdleConnsPerHost <= 0 {
		c.MaxIdleConnsPerHost = 10
	}
	if c.IdleConnTimeout <= 0 {
		c.IdleConnTimeout = 90 * time.Second
	}
}
