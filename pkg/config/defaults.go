package config

import (
	"time"

	"meridian-llm/meridian/pkg/ratelimit"
	"meridian-llm/meridian/pkg/routing"
	"meridian-llm/meridian/pkg/routing/strategies"
)

// Default values applied to unset configuration fields.
const (
	DefaultListenAddress   = ":8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 120 * time.Second
	DefaultIdleTimeout     = 90 * time.Second
	DefaultShutdownTimeout = 15 * time.Second

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsPath = "/metrics"

	DefaultUsageDBPath     = "meridian-usage.db"
	DefaultRetentionDays   = 30
	DefaultPruneSchedule   = "0 3 * * *"
	DefaultProviderTimeout = 30 * time.Second
)

// ApplyDefaults fills unset fields in place. It is idempotent.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout <= 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout <= 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout <= 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}

	if cfg.RateLimit.Strategy == "" {
		cfg.RateLimit.Strategy = string(ratelimit.StrategySlidingWindow)
	}

	if cfg.Routing.Strategy == "" {
		cfg.Routing.Strategy = strategies.NameSmart
	}
	if cfg.Routing.Attempts <= 0 {
		cfg.Routing.Attempts = routing.DefaultAttempts
	}
	if cfg.Routing.CircuitBreakerTimeout <= 0 {
		cfg.Routing.CircuitBreakerTimeout = routing.DefaultCircuitTimeout
	}
	if cfg.Routing.SelectRetryDelay <= 0 {
		cfg.Routing.SelectRetryDelay = routing.DefaultSelectRetryDelay
	}

	if cfg.Usage.DBPath == "" {
		cfg.Usage.DBPath = DefaultUsageDBPath
	}
	if cfg.Usage.RetentionDays <= 0 {
		cfg.Usage.RetentionDays = DefaultRetentionDays
	}
	if cfg.Usage.PruneSchedule == "" {
		cfg.Usage.PruneSchedule = DefaultPruneSchedule
	}

	for i := range cfg.Providers {
		p := &cfg.Providers[i]
		if p.Type == "" {
			p.Type = "openai"
		}
		if p.DefaultModel == "" && len(p.Models) > 0 {
			p.DefaultModel = p.Models[0]
		}
		if p.Timeout <= 0 {
			p.Timeout = DefaultProviderTimeout
		}
	}
}
