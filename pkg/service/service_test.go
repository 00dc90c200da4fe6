package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"meridian-llm/meridian/pkg/config"
	"meridian-llm/meridian/pkg/providers"
	"meridian-llm/meridian/pkg/ratelimit"
	"meridian-llm/meridian/pkg/routing"
)

func chatBackend(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		if status != http.StatusOK {
			io.WriteString(w, `{"error":{"message":"backend unavailable"}}`)
			return
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": content}},
			},
			"usage": map[string]int{
				"prompt_tokens":     12,
				"completion_tokens": 34,
				"total_tokens":      46,
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)
	return server
}

func testServiceConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()

	cfg := &config.Config{
		Providers: []config.ProviderConfig{{
			Name:    "groq",
			Type:    "openai",
			BaseURL: baseURL,
			APIKey:  "test-key",
			Models:  []string{"llama-3.3-70b-versatile"},
			Capabilities: config.CapabilityConfig{
				Temperature: true,
				TopP:        true,
			},
			RateLimits: map[string]ratelimit.Spec{
				"default": {RequestsPerMinute: 30, TokensPerMinute: 12000},
			},
		}},
	}
	cfg.Usage.Enabled = true
	cfg.Usage.DBPath = filepath.Join(t.TempDir(), "usage.db")
	config.ApplyDefaults(cfg)
	return cfg
}

func newTestService(t *testing.T, cfg *config.Config) *Service {
	t.Helper()

	svc, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	return svc
}

// ============================================================================
// Completion Flow Tests
// ============================================================================

func TestService_CompleteEndToEnd(t *testing.T) {
	backend := chatBackend(t, http.StatusOK, "routed response")
	svc := newTestService(t, testServiceConfig(t, backend.URL))

	resp, err := svc.Complete(context.Background(), &providers.CompletionRequest{
		Query: "what is the capital of France?",
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	if resp.Content != "routed response" {
		t.Errorf("Content = %q, want %q", resp.Content, "routed response")
	}
	if resp.Provider != "groq" {
		t.Errorf("Provider = %q, want groq", resp.Provider)
	}
	if resp.RequestID == "" {
		t.Error("RequestID should be assigned")
	}
	if resp.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", resp.Attempts)
	}
	if resp.Usage.TotalTokens != 46 {
		t.Errorf("Usage.TotalTokens = %d, want 46", resp.Usage.TotalTokens)
	}
}

func TestService_CompleteRecordsUsage(t *testing.T) {
	backend := chatBackend(t, http.StatusOK, "ok")
	svc := newTestService(t, testServiceConfig(t, backend.URL))
	ctx := context.Background()

	if _, err := svc.Complete(ctx, &providers.CompletionRequest{Query: "q"}); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	report := svc.Status(ctx)
	if len(report.Usage) != 1 {
		t.Fatalf("Status().Usage = %v, want one provider summary", report.Usage)
	}
	sum := report.Usage[0]
	if sum.Provider != "groq" || sum.Requests != 1 || sum.Successes != 1 {
		t.Errorf("usage summary = %+v", sum)
	}
	if sum.PromptTokens != 12 || sum.CompletionTokens != 34 {
		t.Errorf("token accounting = %d/%d, want 12/34", sum.PromptTokens, sum.CompletionTokens)
	}
}

func TestService_CompleteRejectsInvalidRequest(t *testing.T) {
	backend := chatBackend(t, http.StatusOK, "ok")
	svc := newTestService(t, testServiceConfig(t, backend.URL))

	_, err := svc.Complete(context.Background(), &providers.CompletionRequest{Query: "   "})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("Complete() error = %v, want ErrInvalidRequest", err)
	}
}

func TestService_CompleteExhaustsFailingBackend(t *testing.T) {
	backend := chatBackend(t, http.StatusInternalServerError, "")
	svc := newTestService(t, testServiceConfig(t, backend.URL))

	_, err := svc.Complete(context.Background(), &providers.CompletionRequest{Query: "q"})
	if !errors.Is(err, routing.ErrAllAttemptsFailed) {
		t.Fatalf("Complete() error = %v, want ErrAllAttemptsFailed", err)
	}

	report := svc.Status(context.Background())
	if report.Router.FailedRequests != 1 {
		t.Errorf("FailedRequests = %d, want 1", report.Router.FailedRequests)
	}
}

func TestService_RateLimitDenialMetric(t *testing.T) {
	backend := chatBackend(t, http.StatusOK, "ok")
	cfg := testServiceConfig(t, backend.URL)
	cfg.Providers[0].RateLimits = map[string]ratelimit.Spec{
		"default": {RequestsPerMinute: 1, BurstLimit: 1},
	}
	svc := newTestService(t, cfg)
	ctx := context.Background()

	if _, err := svc.Complete(ctx, &providers.CompletionRequest{Query: "first"}); err != nil {
		t.Fatalf("first Complete() error = %v", err)
	}
	_, err := svc.Complete(ctx, &providers.CompletionRequest{Query: "second"})
	if !providers.IsRateLimited(err) {
		t.Fatalf("second Complete() error = %v, want rate limit denial", err)
	}

	rec := httptest.NewRecorder()
	svc.Metrics().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	if !strings.Contains(body, `meridian_rate_limit_denials_total{dimension="requests_per_minute",provider="groq"}`) {
		t.Errorf("exposition missing denial counter for groq, body:\n%s", body)
	}
}

// ============================================================================
// Surface Tests
// ============================================================================

func TestService_ProvidersListing(t *testing.T) {
	backend := chatBackend(t, http.StatusOK, "ok")
	svc := newTestService(t, testServiceConfig(t, backend.URL))

	infos := svc.Providers()
	if len(infos) != 1 {
		t.Fatalf("Providers() = %v, want one entry", infos)
	}
	info := infos[0]
	if info.Name != "groq" || !info.Available {
		t.Errorf("provider info = %+v, want available groq", info)
	}
	if info.DefaultModel != "llama-3.3-70b-versatile" {
		t.Errorf("DefaultModel = %q", info.DefaultModel)
	}
}

func TestService_StatusIncludesRateLimits(t *testing.T) {
	backend := chatBackend(t, http.StatusOK, "ok")
	svc := newTestService(t, testServiceConfig(t, backend.URL))

	report := svc.Status(context.Background())
	if report.RoutingStrategy == "" || report.RateLimitStrategy == "" {
		t.Errorf("strategies missing from report: %+v", report)
	}
	ps, ok := report.Providers["groq"]
	if !ok {
		t.Fatal("report should include the groq provider")
	}
	snap, ok := ps.RateLimits["llama-3.3-70b-versatile"]
	if !ok {
		t.Fatal("report should include per-model rate limit snapshots")
	}
	if _, ok := snap[ratelimit.DimRequestsPerMinute]; !ok {
		t.Error("snapshot should cover the request-per-minute dimension")
	}
}

func TestService_Reload(t *testing.T) {
	backend := chatBackend(t, http.StatusOK, "ok")
	cfg := testServiceConfig(t, backend.URL)
	svc := newTestService(t, cfg)

	next := testServiceConfig(t, backend.URL)
	next.Providers[0].Name = "cerebras"
	if err := svc.Reload(next); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	infos := svc.Providers()
	if len(infos) != 1 || infos[0].Name != "cerebras" {
		t.Errorf("Providers() after reload = %v, want cerebras", infos)
	}
}

func TestService_New_RejectsBadStrategy(t *testing.T) {
	backend := chatBackend(t, http.StatusOK, "ok")
	cfg := testServiceConfig(t, backend.URL)
	cfg.Routing.Strategy = "fortune_teller"

	if _, err := New(cfg); err == nil {
		t.Fatal("New() with unknown routing strategy should fail")
	}
}
