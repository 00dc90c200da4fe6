package providers

import (
	"strings"
	"testing"

	"meridian-llm/meridian/pkg/ratelimit"
)

func registryConfigs() []Config {
	return []Config{
		{
			Name:    "groq",
			Type:    TypeOpenAI,
			BaseURL: "http://groq.invalid",
			APIKey:  "k1",
			Models:  []string{"llama-3.3-70b-versatile"},
		},
		{
			Name:    "gemini",
			Type:    TypeGemini,
			BaseURL: "http://gemini.invalid",
			APIKey:  "k2",
			Models:  []string{"gemini-2.0-flash"},
		},
	}
}

func TestRegistry_Configure(t *testing.T) {
	r := NewRegistry(testLimiter(t))
	defer r.Close()

	if err := r.Configure(registryConfigs()); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	names := r.Names()
	if len(names) != 2 || names[0] != "groq" || names[1] != "gemini" {
		t.Errorf("Names = %v, want configuration order [groq gemini]", names)
	}

	p, ok := r.Get("groq")
	if !ok {
		t.Fatal("Get(groq) missing")
	}
	if _, isOpenAI := p.(*OpenAICompatible); !isOpenAI {
		t.Errorf("groq adapter has type %T", p)
	}
	if p, _ := r.Get("gemini"); p == nil {
		t.Fatal("Get(gemini) missing")
	} else if _, isGemini := p.(*Gemini); !isGemini {
		t.Errorf("gemini adapter has type %T", p)
	}

	if _, ok := r.Get("missing"); ok {
		t.Error("Get(missing) reported a provider")
	}
}

func TestRegistry_ConfigureRejectsDuplicates(t *testing.T) {
	r := NewRegistry(testLimiter(t))
	defer r.Close()

	cfgs := registryConfigs()
	cfgs[1].Name = "groq"

	err := r.Configure(cfgs)
	if err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("Configure error = %v, want duplicate name rejection", err)
	}
	if got := r.Names(); len(got) != 0 {
		t.Errorf("failed Configure left providers behind: %v", got)
	}
}

func TestRegistry_ConfigureFailureLeavesPreviousSet(t *testing.T) {
	r := NewRegistry(testLimiter(t))
	defer r.Close()

	if err := r.Configure(registryConfigs()); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	bad := []Config{{Name: "broken", Type: "carrier-pigeon", BaseURL: "http://x.invalid", Models: []string{"m"}}}
	if err := r.Configure(bad); err == nil {
		t.Fatal("Configure accepted an unknown adapter type")
	}

	// The previous generation must still be intact.
	if names := r.Names(); len(names) != 2 {
		t.Errorf("Names after failed reload = %v", names)
	}
}

func TestRegistry_AvailableFiltersMissingKeys(t *testing.T) {
	r := NewRegistry(testLimiter(t))
	defer r.Close()

	cfgs := registryConfigs()
	cfgs[1].APIKey = ""
	if err := r.Configure(cfgs); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	available := r.Available()
	if len(available) != 1 || available[0].Name() != "groq" {
		names := make([]string, 0, len(available))
		for _, p := range available {
			names = append(names, p.Name())
		}
		t.Errorf("Available = %v, want [groq]", names)
	}

	av := r.Availability()
	if av["groq"].Available != true || av["gemini"].Available != false {
		t.Errorf("Availability = %v", av)
	}
	if av["gemini"].Reason == "" {
		t.Error("unavailable provider carries no reason")
	}
}

func TestRegistry_StatsSnapshot(t *testing.T) {
	r := NewRegistry(testLimiter(t))
	defer r.Close()

	if err := r.Configure(registryConfigs()); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	stats := r.Stats()
	if len(stats) != 2 {
		t.Fatalf("Stats covers %d providers, want 2", len(stats))
	}
	for name, s := range stats {
		if s.TotalRequests != 0 {
			t.Errorf("fresh provider %q has nonzero stats: %+v", name, s)
		}
	}
}

func TestRegistry_CloseEmpties(t *testing.T) {
	r := NewRegistry(testLimiter(t))

	if err := r.Configure(registryConfigs()); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if names := r.Names(); len(names) != 0 {
		t.Errorf("Names after Close = %v", names)
	}
}

func TestConfig_SpecFor(t *testing.T) {
	cfg := Config{
		RateLimits: map[string]ratelimit.Spec{
			"default":          {RequestsPerMinute: 30},
			"llama-3.1-8b-fast": {RequestsPerMinute: 60},
		},
	}

	if got := cfg.specFor("llama-3.1-8b-fast").RequestsPerMinute; got != 60 {
		t.Errorf("model-specific spec rpm = %d, want 60", got)
	}
	if got := cfg.specFor("other").RequestsPerMinute; got != 30 {
		t.Errorf("default spec rpm = %d, want 30", got)
	}

	// No configured limits at all falls back to the conservative spec.
	empty := Config{}
	fallback := empty.specFor("anything")
	if fallback.RequestsPerMinute != 10 || fallback.TokensPerMinute != 10000 {
		t.Errorf("fallback spec = %+v, want 10 rpm / 10000 tpm", fallback)
	}
}
