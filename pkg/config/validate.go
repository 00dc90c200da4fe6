package config

import (
	"fmt"
	"strings"

	"meridian-llm/meridian/pkg/ratelimit"
	"meridian-llm/meridian/pkg/routing/strategies"
)

// ValidationError describes a single invalid configuration field.
type ValidationError struct {
	// Field is the dotted configuration path, e.g. "providers[0].name".
	Field string

	// Message explains what is wrong with the value.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config field %s: %s", e.Field, e.Message)
}

// ValidationErrors collects every problem found in one pass, so a bad
// config file is fixed in one edit instead of one failure at a time.
type ValidationErrors []*ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, v := range e {
		msgs[i] = v.Error()
	}
	return fmt.Sprintf("%d configuration error(s): %s", len(e), strings.Join(msgs, "; "))
}

var (
	validLogLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validLogFormats = map[string]bool{"json": true, "text": true}

	validRateLimitStrategies = map[string]bool{
		string(ratelimit.StrategySlidingWindow): true,
		string(ratelimit.StrategyFixedWindow):   true,
		string(ratelimit.StrategyTokenBucket):   true,
		string(ratelimit.StrategyLeakyBucket):   true,
	}

	validRoutingStrategies = map[string]bool{
		strategies.NameRoundRobin:         true,
		strategies.NameWeightedRoundRobin: true,
		strategies.NameResponseTime:       true,
		strategies.NameSmart:              true,
	}

	validProviderTypes = map[string]bool{"openai": true, "gemini": true}
)

// Validate checks cfg after defaults have been applied. It returns a
// ValidationErrors value listing every problem found, or nil.
func Validate(cfg *Config) error {
	var errs ValidationErrors

	add := func(field, format string, args ...any) {
		errs = append(errs, &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if cfg.Server.ListenAddress == "" {
		add("server.listen_address", "must not be empty")
	}

	if !validLogLevels[cfg.Logging.Level] {
		add("logging.level", "unknown level %q", cfg.Logging.Level)
	}
	if !validLogFormats[cfg.Logging.Format] {
		add("logging.format", "unknown format %q", cfg.Logging.Format)
	}

	if !validRateLimitStrategies[cfg.RateLimit.Strategy] {
		add("rate_limit.strategy", "unknown strategy %q", cfg.RateLimit.Strategy)
	}
	if !validRoutingStrategies[cfg.Routing.Strategy] {
		add("routing.strategy", "unknown strategy %q", cfg.Routing.Strategy)
	}
	if cfg.Routing.Attempts <= 0 {
		add("routing.attempts", "must be positive, got %d", cfg.Routing.Attempts)
	}

	if cfg.Usage.Enabled && cfg.Usage.DBPath == "" {
		add("usage.db_path", "must not be empty when usage recording is enabled")
	}

	if len(cfg.Providers) == 0 {
		add("providers", "at least one provider must be configured")
	}

	seen := make(map[string]bool, len(cfg.Providers))
	for i, p := range cfg.Providers {
		prefix := fmt.Sprintf("providers[%d]", i)

		if p.Name == "" {
			add(prefix+".name", "must not be empty")
		} else if seen[p.Name] {
			add(prefix+".name", "duplicate provider name %q", p.Name)
		}
		seen[p.Name] = true

		if !validProviderTypes[p.Type] {
			add(prefix+".type", "unknown type %q", p.Type)
		}
		if p.BaseURL == "" {
			add(prefix+".base_url", "must not be empty")
		} else if strings.HasSuffix(p.BaseURL, "/") {
			add(prefix+".base_url", "must not end with a slash")
		}
		if len(p.Models) == 0 {
			add(prefix+".models", "must list at least one model")
		}

		for model, spec := range p.RateLimits {
			if spec.RequestsPerMinute <= 0 {
				add(fmt.Sprintf("%s.rate_limits[%s].requests_per_minute", prefix, model),
					"must be positive, got %d", spec.RequestsPerMinute)
			}
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}
