package providers

import (
	"context"
	"fmt"

	"meridian-llm/meridian/pkg/ratelimit"
)

// Adapter type names accepted in Config.Type.
const (
	TypeOpenAI = "openai"
	TypeGemini = "gemini"
)

// Provider is the contract every backend adapter satisfies.
//
// Generate performs the real, consuming rate-limit check before calling out;
// CheckAvailability is a cheaper non-consuming probe for selection and
// status purposes. The two are deliberately distinct so that polling the
// status surface never burns quota.
type Provider interface {
	// Generate resolves the effective model, consumes a rate-limit slot,
	// performs the backend call, records token usage and statistics, and
	// returns the normalized result.
	//
	// Transient network failures are retried internally; every other
	// failure is returned immediately as a typed error. Generate never
	// fails over to another provider.
	Generate(ctx context.Context, req *CompletionRequest) (*CompletionResult, error)

	// CheckAvailability reports whether the adapter would likely admit a
	// request for model right now, without consuming any quota. An empty
	// model means the adapter's default. Adapters with no credential
	// configured always report unavailable.
	CheckAvailability(model string) Availability

	// Name returns the configured provider name.
	Name() string

	// Models returns the models the backend serves.
	Models() []string

	// DefaultModel returns the fallback model for unsupported hints.
	DefaultModel() string

	// Capabilities returns the sampling parameters the backend honors.
	Capabilities() Capabilities

	// Stats returns a copy of the adapter's rolling statistics.
	Stats() Stats

	// RateLimitStatus returns the current quota snapshot for model
	// (empty means default) without consuming anything.
	RateLimitStatus(model string) ratelimit.Snapshot

	// Close releases pooled connections. The adapter must not be used
	// after Close.
	Close() error
}

// New constructs the adapter for cfg based on its declared type.
func New(cfg Config, limiter *ratelimit.Manager) (Provider, error) {
	cfg.applyDefaults()

	if cfg.Name == "" {
		return nil, fmt.Errorf("provider config missing name")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("provider %q config missing base_url", cfg.Name)
	}
	if len(cfg.Models) == 0 {
		return nil, fmt.Errorf("provider %q config lists no models", cfg.Name)
	}

	switch cfg.Type {
	case TypeOpenAI:
		return NewOpenAICompatible(cfg, limiter), nil
	case TypeGemini:
		return NewGemini(cfg, limiter), nil
	default:
		return nil, fmt.Errorf("provider %q has unknown type %q", cfg.Name, cfg.Type)
	}
}
