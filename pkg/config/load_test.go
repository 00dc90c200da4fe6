package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"meridian-llm/meridian/pkg/routing"
)

const sampleConfig = `
server:
  listen_address: ":9090"
logging:
  level: debug
  format: text
rate_limit:
  strategy: token_bucket
routing:
  strategy: smart
  attempts: 5
  circuit_breaker_timeout: 2m
usage:
  enabled: true
  db_path: /tmp/meridian-test.db
  retention_days: 7
providers:
  - name: groq
    type: openai
    base_url: https://api.groq.com/openai/v1
    api_key: file-key
    models:
      - llama-3.3-70b-versatile
      - llama-3.1-8b-instant
    capabilities:
      temperature: true
      top_p: true
    rate_limits:
      default:
        requests_per_minute: 30
        tokens_per_minute: 12000
      llama-3.1-8b-instant:
        requests_per_minute: 60
        requests_per_day: 14400
  - name: gemini
    type: gemini
    base_url: https://generativelanguage.googleapis.com/v1beta
    api_key_env: TEST_GEMINI_KEY
    models:
      - gemini-2.0-flash
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("TEST_GEMINI_KEY", "env-key")

	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.ListenAddress != ":9090" {
		t.Errorf("ListenAddress = %q", cfg.Server.ListenAddress)
	}
	// Unset fields picked up defaults.
	if cfg.Server.WriteTimeout != DefaultWriteTimeout {
		t.Errorf("WriteTimeout = %v, want default", cfg.Server.WriteTimeout)
	}
	if cfg.Metrics.Path != DefaultMetricsPath {
		t.Errorf("Metrics.Path = %q, want default", cfg.Metrics.Path)
	}
	if cfg.Routing.SelectRetryDelay != routing.DefaultSelectRetryDelay {
		t.Errorf("SelectRetryDelay = %v, want default", cfg.Routing.SelectRetryDelay)
	}

	if cfg.Routing.Strategy != "smart" || cfg.Routing.Attempts != 5 {
		t.Errorf("routing = %+v", cfg.Routing)
	}
	if cfg.Routing.CircuitBreakerTimeout != 2*time.Minute {
		t.Errorf("CircuitBreakerTimeout = %v", cfg.Routing.CircuitBreakerTimeout)
	}

	if len(cfg.Providers) != 2 {
		t.Fatalf("providers = %d, want 2", len(cfg.Providers))
	}
	groq := cfg.Providers[0]
	if groq.APIKey != "file-key" {
		t.Errorf("groq APIKey = %q", groq.APIKey)
	}
	if groq.DefaultModel != "llama-3.3-70b-versatile" {
		t.Errorf("groq DefaultModel = %q, want first model", groq.DefaultModel)
	}
	if spec := groq.RateLimits["llama-3.1-8b-instant"]; spec.RequestsPerMinute != 60 || spec.RequestsPerDay != 14400 {
		t.Errorf("per-model spec = %+v", spec)
	}

	// The gemini credential resolved through api_key_env.
	if cfg.Providers[1].APIKey != "env-key" {
		t.Errorf("gemini APIKey = %q, want env-key", cfg.Providers[1].APIKey)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load of a missing file did not fail")
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "providers: [unclosed")); err == nil {
		t.Error("Load of malformed YAML did not fail")
	}
}

func TestLoad_ProviderKeyConvention(t *testing.T) {
	t.Setenv("MERIDIAN_PROVIDERS_GROQ_API_KEY", "conventional-key")

	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Providers[0].APIKey != "conventional-key" {
		t.Errorf("groq APIKey = %q, want the MERIDIAN_PROVIDERS_GROQ_API_KEY value", cfg.Providers[0].APIKey)
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("MERIDIAN_SERVER_LISTEN_ADDRESS", ":7070")
	t.Setenv("MERIDIAN_ROUTING_STRATEGY", "response_time")
	t.Setenv("MERIDIAN_ROUTING_ATTEMPTS", "2")
	t.Setenv("MERIDIAN_ROUTING_CIRCUIT_BREAKER_TIMEOUT", "90s")
	t.Setenv("MERIDIAN_USAGE_ENABLED", "false")

	cfg, err := LoadWithEnvOverrides(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("LoadWithEnvOverrides: %v", err)
	}

	if cfg.Server.ListenAddress != ":7070" {
		t.Errorf("ListenAddress = %q", cfg.Server.ListenAddress)
	}
	if cfg.Routing.Strategy != "response_time" || cfg.Routing.Attempts != 2 {
		t.Errorf("routing = %+v", cfg.Routing)
	}
	if cfg.Routing.CircuitBreakerTimeout != 90*time.Second {
		t.Errorf("CircuitBreakerTimeout = %v", cfg.Routing.CircuitBreakerTimeout)
	}
	if cfg.Usage.Enabled {
		t.Error("usage override ignored")
	}
}

func TestLoadWithEnvOverrides_InvalidOverrideRejected(t *testing.T) {
	t.Setenv("MERIDIAN_ROUTING_STRATEGY", "coin_flip")

	_, err := LoadWithEnvOverrides(writeConfig(t, sampleConfig))
	if err == nil {
		t.Fatal("invalid override passed validation")
	}
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Errorf("error %v does not carry ValidationErrors", err)
	}
}
