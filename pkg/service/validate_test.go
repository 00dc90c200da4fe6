package service

import (
	"errors"
	"testing"

	"meridian-llm/meridian/pkg/providers"
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

// ============================================================================
// Request Validation Tests
// ============================================================================

func TestNormalizeRequest_AppliesDefaults(t *testing.T) {
	req := &providers.CompletionRequest{Query: "  hello  "}

	if err := normalizeRequest(req); err != nil {
		t.Fatalf("normalizeRequest() error = %v", err)
	}

	if req.Query != "hello" {
		t.Errorf("Query = %q, want trimmed %q", req.Query, "hello")
	}
	if req.MaxTokens != DefaultMaxTokens {
		t.Errorf("MaxTokens = %d, want %d", req.MaxTokens, DefaultMaxTokens)
	}
	if req.Temperature == nil || *req.Temperature != DefaultTemperature {
		t.Errorf("Temperature = %v, want %v", req.Temperature, DefaultTemperature)
	}
	if req.TopP == nil || *req.TopP != DefaultTopP {
		t.Errorf("TopP = %v, want %v", req.TopP, DefaultTopP)
	}
	if req.TopK == nil || *req.TopK != DefaultTopK {
		t.Errorf("TopK = %v, want %v", req.TopK, DefaultTopK)
	}
}

func TestNormalizeRequest_PreservesExplicitValues(t *testing.T) {
	req := &providers.CompletionRequest{
		Query:       "hello",
		MaxTokens:   100,
		Temperature: floatPtr(1.5),
		TopP:        floatPtr(0.5),
		TopK:        intPtr(10),
	}

	if err := normalizeRequest(req); err != nil {
		t.Fatalf("normalizeRequest() error = %v", err)
	}

	if req.MaxTokens != 100 || *req.Temperature != 1.5 || *req.TopP != 0.5 || *req.TopK != 10 {
		t.Errorf("explicit values were changed: %+v", req)
	}
}

func TestNormalizeRequest_Rejections(t *testing.T) {
	tests := []struct {
		name      string
		req       *providers.CompletionRequest
		wantField string
	}{
		{"empty query", &providers.CompletionRequest{}, "query"},
		{"whitespace query", &providers.CompletionRequest{Query: "   "}, "query"},
		{"negative max tokens", &providers.CompletionRequest{Query: "q", MaxTokens: -1}, "max_tokens"},
		{"excessive max tokens", &providers.CompletionRequest{Query: "q", MaxTokens: MaxTokensCeiling + 1}, "max_tokens"},
		{"temperature too high", &providers.CompletionRequest{Query: "q", Temperature: floatPtr(2.5)}, "temperature"},
		{"temperature negative", &providers.CompletionRequest{Query: "q", Temperature: floatPtr(-0.1)}, "temperature"},
		{"top_p above one", &providers.CompletionRequest{Query: "q", TopP: floatPtr(1.1)}, "top_p"},
		{"top_k zero", &providers.CompletionRequest{Query: "q", TopK: intPtr(0)}, "top_k"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := normalizeRequest(tt.req)
			if err == nil {
				t.Fatal("normalizeRequest() should fail")
			}
			if !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("errors.Is(err, ErrInvalidRequest) = false for %v", err)
			}
			var reqErr *RequestError
			if !errors.As(err, &reqErr) {
				t.Fatalf("error %v is not a *RequestError", err)
			}
			if reqErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", reqErr.Field, tt.wantField)
			}
		})
	}
}

func TestNormalizeRequest_MaxTokensCeilingExact(t *testing.T) {
	req := &providers.CompletionRequest{Query: "q", MaxTokens: MaxTokensCeiling}
	if err := normalizeRequest(req); err != nil {
		t.Errorf("MaxTokens at the ceiling should be accepted, got %v", err)
	}
}
