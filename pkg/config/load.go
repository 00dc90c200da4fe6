package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads and parses the YAML file at path, applies defaults, resolves
// provider API key indirection, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)
	resolveAPIKeys(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// LoadWithEnvOverrides loads the file and then applies MERIDIAN_* overrides.
// Environment variables always take precedence over file values.
func LoadWithEnvOverrides(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}
	return cfg, nil
}

// resolveAPIKeys reads each provider's credential from its api_key_env
// variable when set. Conventional MERIDIAN_PROVIDERS_<NAME>_API_KEY
// variables are honored as well.
func resolveAPIKeys(cfg *Config) {
	for i := range cfg.Providers {
		p := &cfg.Providers[i]
		if p.APIKeyEnv != "" {
			if val := os.Getenv(p.APIKeyEnv); val != "" {
				p.APIKey = val
			}
		}
		envName := "MERIDIAN_PROVIDERS_" + strings.ToUpper(strings.ReplaceAll(p.Name, "-", "_")) + "_API_KEY"
		if val := os.Getenv(envName); val != "" {
			p.APIKey = val
		}
	}
}

// applyEnvOverrides applies MERIDIAN_SECTION_FIELD environment overrides.
func applyEnvOverrides(cfg *Config) {
	setString := func(name string, dst *string) {
		if val := os.Getenv(name); val != "" {
			*dst = val
		}
	}
	setDuration := func(name string, dst *time.Duration) {
		if val := os.Getenv(name); val != "" {
			if d, err := time.ParseDuration(val); err == nil {
				*dst = d
			}
		}
	}
	setInt := func(name string, dst *int) {
		if val := os.Getenv(name); val != "" {
			if i, err := strconv.Atoi(val); err == nil {
				*dst = i
			}
		}
	}
	setBool := func(name string, dst *bool) {
		if val := os.Getenv(name); val != "" {
			if b, err := strconv.ParseBool(val); err == nil {
				*dst = b
			}
		}
	}

	setString("MERIDIAN_SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	setDuration("MERIDIAN_SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	setDuration("MERIDIAN_SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	setDuration("MERIDIAN_SERVER_IDLE_TIMEOUT", &cfg.Server.IdleTimeout)
	setDuration("MERIDIAN_SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	setString("MERIDIAN_LOGGING_LEVEL", &cfg.Logging.Level)
	setString("MERIDIAN_LOGGING_FORMAT", &cfg.Logging.Format)

	setBool("MERIDIAN_METRICS_ENABLED", &cfg.Metrics.Enabled)
	setString("MERIDIAN_METRICS_PATH", &cfg.Metrics.Path)

	setString("MERIDIAN_RATE_LIMIT_STRATEGY", &cfg.RateLimit.Strategy)

	setString("MERIDIAN_ROUTING_STRATEGY", &cfg.Routing.Strategy)
	setInt("MERIDIAN_ROUTING_ATTEMPTS", &cfg.Routing.Attempts)
	setDuration("MERIDIAN_ROUTING_CIRCUIT_BREAKER_TIMEOUT", &cfg.Routing.CircuitBreakerTimeout)
	setDuration("MERIDIAN_ROUTING_SELECT_RETRY_DELAY", &cfg.Routing.SelectRetryDelay)

	setBool("MERIDIAN_USAGE_ENABLED", &cfg.Usage.Enabled)
	setString("MERIDIAN_USAGE_DB_PATH", &cfg.Usage.DBPath)
	setInt("MERIDIAN_USAGE_RETENTION_DAYS", &cfg.Usage.RetentionDays)
	setString("MERIDIAN_USAGE_PRUNE_SCHEDULE", &cfg.Usage.PruneSchedule)
}
