package config

import (
	"strings"
	"testing"

	"meridian-llm/meridian/pkg/ratelimit"
)

// validConfig returns a minimal configuration that passes validation after
// defaults are applied.
func validConfig() *Config {
	cfg := &Config{
		Providers: []ProviderConfig{
			{
				Name:    "groq",
				Type:    "openai",
				BaseURL: "https://api.groq.com/openai/v1",
				Models:  []string{"llama-3.3-70b-versatile"},
			},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

func TestValidate_Valid(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestValidate_FieldErrors(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{
			name:      "empty listen address",
			mutate:    func(c *Config) { c.Server.ListenAddress = "" },
			wantField: "server.listen_address",
		},
		{
			name:      "bad log level",
			mutate:    func(c *Config) { c.Logging.Level = "verbose" },
			wantField: "logging.level",
		},
		{
			name:      "bad log format",
			mutate:    func(c *Config) { c.Logging.Format = "xml" },
			wantField: "logging.format",
		},
		{
			name:      "bad rate limit strategy",
			mutate:    func(c *Config) { c.RateLimit.Strategy = "queue" },
			wantField: "rate_limit.strategy",
		},
		{
			name:      "bad routing strategy",
			mutate:    func(c *Config) { c.Routing.Strategy = "coin_flip" },
			wantField: "routing.strategy",
		},
		{
			name:      "zero attempts",
			mutate:    func(c *Config) { c.Routing.Attempts = -1 },
			wantField: "routing.attempts",
		},
		{
			name: "usage enabled without db path",
			mutate: func(c *Config) {
				c.Usage.Enabled = true
				c.Usage.DBPath = ""
			},
			wantField: "usage.db_path",
		},
		{
			name:      "no providers",
			mutate:    func(c *Config) { c.Providers = nil },
			wantField: "providers",
		},
		{
			name:      "provider without name",
			mutate:    func(c *Config) { c.Providers[0].Name = "" },
			wantField: "providers[0].name",
		},
		{
			name:      "unknown provider type",
			mutate:    func(c *Config) { c.Providers[0].Type = "grpc" },
			wantField: "providers[0].type",
		},
		{
			name:      "base url with trailing slash",
			mutate:    func(c *Config) { c.Providers[0].BaseURL = "https://api.groq.com/" },
			wantField: "providers[0].base_url",
		},
		{
			name:      "provider without models",
			mutate:    func(c *Config) { c.Providers[0].Models = nil },
			wantField: "providers[0].models",
		},
		{
			name: "duplicate provider names",
			mutate: func(c *Config) {
				c.Providers = append(c.Providers, c.Providers[0])
			},
			wantField: "providers[1].name",
		},
		{
			name: "rate limit spec without rpm",
			mutate: func(c *Config) {
				c.Providers[0].RateLimits = map[string]ratelimit.Spec{"default": {}}
			},
			wantField: "providers[0].rate_limits[default].requests_per_minute",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("Validate passed an invalid config")
			}
			if !strings.Contains(err.Error(), tt.wantField) {
				t.Errorf("error %q does not mention %q", err, tt.wantField)
			}
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "verbose"
	cfg.Routing.Strategy = "coin_flip"
	cfg.Providers[0].BaseURL = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Validate passed an invalid config")
	}
	verrs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("error has type %T, want ValidationErrors", err)
	}
	if len(verrs) != 3 {
		t.Errorf("collected %d errors, want 3: %v", len(verrs), verrs)
	}
}
