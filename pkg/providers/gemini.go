package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"meridian-llm/meridian/pkg/ratelimit"
)

// Gemini speaks the Google generateContent wire format.
type Gemini struct {
	*httpAdapter
}

// NewGemini creates an adapter for the Gemini API.
func NewGemini(cfg Config, limiter *ratelimit.Manager) *Gemini {
	cfg.applyDefaults()
	return &Gemini{httpAdapter: newHTTPAdapter(cfg, limiter)}
}

// geminiResponse is the subset of the generateContent response we consume.
type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// Generate implements Provider.
func (p *Gemini) Generate(ctx context.Context, req *CompletionRequest) (*CompletionResult, error) {
	start := p.now()
	model := p.cfg.resolveModel(req.Model)

	if p.cfg.APIKey == "" {
		p.recordOutcome(false, p.now().Sub(start), 0)
		return nil, &ProviderError{Provider: p.cfg.Name, Message: ErrNoAPIKey.Error(), Cause: ErrNoAPIKey}
	}

	if err := p.admit(model); err != nil {
		p.recordOutcome(false, p.now().Sub(start), 0)
		return nil, err
	}

	payload := map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]string{{"text": req.Query}}},
		},
	}
	if gc := p.generationConfig(req); len(gc) > 0 {
		payload["generationConfig"] = gc
	}

	// The key goes in a header, never the URL: request URLs end up in
	// transport errors and logs verbatim.
	url := fmt.Sprintf("%s/models/%s:generateContent", p.cfg.BaseURL, model)
	headers := map[string]string{"x-goog-api-key": p.cfg.APIKey}

	data, status, err := p.post(ctx, url, headers, payload)
	latency := p.now().Sub(start)
	if err != nil {
		p.recordOutcome(false, latency, 0)
		return nil, err
	}

	if status == http.StatusTooManyRequests {
		p.recordOutcome(false, latency, 0)
		return nil, &RateLimitError{Provider: p.cfg.Name, Upstream: true}
	}
	if status < 200 || status > 299 {
		p.recordOutcome(false, latency, 0)
		return nil, &ProviderError{Provider: p.cfg.Name, StatusCode: status, Message: errorBody(data)}
	}

	var parsed geminiResponse
	if err := json.Unmarshal(data, &parsed); err != nil ||
		len(parsed.Candidates) == 0 ||
		len(parsed.Candidates[0].Content.Parts) == 0 {
		p.recordOutcome(false, latency, 0)
		return nil, &ProviderError{
			Provider: p.cfg.Name,
			Message:  fmt.Sprintf("%v: no candidate in response", ErrMalformedResponse),
			Cause:    ErrMalformedResponse,
		}
	}

	usage := TokenUsage{
		PromptTokens:     parsed.UsageMetadata.PromptTokenCount,
		CompletionTokens: parsed.UsageMetadata.CandidatesTokenCount,
		TotalTokens:      parsed.UsageMetadata.TotalTokenCount,
	}

	tokens := usage.Total()
	p.recordTokens(model, tokens)
	p.recordOutcome(true, latency, tokens)

	return &CompletionResult{
		Content:  parsed.Candidates[0].Content.Parts[0].Text,
		Provider: p.cfg.Name,
		Model:    model,
		Usage:    usage,
		Latency:  latency,
	}, nil
}

// generationConfig maps supported sampling parameters to the Gemini
// generationConfig shape.
func (p *Gemini) generationConfig(req *CompletionRequest) map[string]any {
	gc := make(map[string]any)
	if p.cfg.Capabilities.Temperature && req.Temperature != nil {
		gc["temperature"] = *req.Temperature
	}
	if p.cfg.Capabilities.TopP && req.TopP != nil {
		gc["topP"] = *req.TopP
	}
	if p.cfg.Capabilities.TopK && req.TopK != nil {
		gc["topK"] = *req.TopK
	}
	if req.MaxTokens > 0 {
		gc["maxOutputTokens"] = req.MaxTokens
	}
	if len(req.Stop) > 0 {
		gc["stopSequences"] = req.Stop
	}
	return gc
}
