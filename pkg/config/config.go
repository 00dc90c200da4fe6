package config

import (
	"time"

	"meridian-llm/meridian/pkg/ratelimit"
)

// Config is the root configuration for the Meridian service.
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Logging   LoggingConfig    `yaml:"logging"`
	Metrics   MetricsConfig    `yaml:"metrics"`
	RateLimit RateLimitConfig  `yaml:"rate_limit"`
	Routing   RoutingConfig    `yaml:"routing"`
	Usage     UsageConfig      `yaml:"usage"`
	Providers []ProviderConfig `yaml:"providers"`
}

// ServerConfig configures the HTTP front door.
type ServerConfig struct {
	// ListenAddress is the host:port the server binds to.
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout bounds reading the full request including body.
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout bounds writing the response. It must accommodate the
	// slowest backend completion.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout bounds keep-alive connections between requests.
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown draining.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is "json" or "text".
	Format string `yaml:"format"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and served.
	Enabled bool `yaml:"enabled"`

	// Path is where the metrics handler is mounted.
	Path string `yaml:"path"`
}

// RateLimitConfig selects the admission strategy shared by all providers.
type RateLimitConfig struct {
	// Strategy is one of sliding_window, fixed_window, token_bucket,
	// leaky_bucket.
	Strategy string `yaml:"strategy"`
}

// RoutingConfig configures the router and load balancer.
type RoutingConfig struct {
	// Strategy is one of round_robin, weighted_round_robin,
	// response_time, smart.
	Strategy string `yaml:"strategy"`

	// Attempts is the per-request attempt budget.
	Attempts int `yaml:"attempts"`

	// CircuitBreakerTimeout is how long a failing provider is skipped.
	CircuitBreakerTimeout time.Duration `yaml:"circuit_breaker_timeout"`

	// SelectRetryDelay is the wait before retrying when no provider is
	// available.
	SelectRetryDelay time.Duration `yaml:"select_retry_delay"`
}

// UsageConfig configures request-history persistence.
type UsageConfig struct {
	// Enabled controls whether completed requests are recorded.
	Enabled bool `yaml:"enabled"`

	// DBPath is the SQLite database file path.
	DBPath string `yaml:"db_path"`

	// RetentionDays is how long history rows are kept.
	RetentionDays int `yaml:"retention_days"`

	// PruneSchedule is a cron expression for the retention job.
	PruneSchedule string `yaml:"prune_schedule"`
}

// CapabilityConfig declares which sampling parameters a backend honors.
type CapabilityConfig struct {
	Temperature bool `yaml:"temperature"`
	TopP        bool `yaml:"top_p"`
	TopK        bool `yaml:"top_k"`
}

// ProviderConfig configures one backend provider.
type ProviderConfig struct {
	// Name identifies the provider in routing, stats and logs.
	Name string `yaml:"name"`

	// Type selects the wire format: "openai" or "gemini".
	Type string `yaml:"type"`

	// BaseURL is the API root, without a trailing slash.
	BaseURL string `yaml:"base_url"`

	// APIKey is the credential. Prefer APIKeyEnv in checked-in files.
	APIKey string `yaml:"api_key"`

	// APIKeyEnv names an environment variable to read the credential
	// from. It takes precedence over APIKey when the variable is set.
	APIKeyEnv string `yaml:"api_key_env"`

	// Models lists the models this backend serves.
	Models []string `yaml:"models"`

	// DefaultModel is used when a request's model hint is unsupported.
	// Defaults to the first entry of Models.
	DefaultModel string `yaml:"default_model"`

	// Capabilities gates which sampling parameters are forwarded.
	Capabilities CapabilityConfig `yaml:"capabilities"`

	// RateLimits maps a model name (or "default") to its quota spec.
	RateLimits map[string]ratelimit.Spec `yaml:"rate_limits"`

	// Headers are extra HTTP headers sent with every request.
	Headers map[string]string `yaml:"headers"`

	// Timeout bounds one backend call end to end.
	Timeout time.Duration `yaml:"timeout"`
}
