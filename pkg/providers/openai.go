package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"meridian-llm/meridian/pkg/ratelimit"
)

// OpenAICompatible speaks the chat-completions wire format shared by Groq,
// Cerebras, SambaNova, OpenRouter and most other hosted backends.
type OpenAICompatible struct {
	*httpAdapter
}

// NewOpenAICompatible creates an adapter for an OpenAI-compatible backend.
func NewOpenAICompatible(cfg Config, limiter *ratelimit.Manager) *OpenAICompatible {
	cfg.applyDefaults()
	return &OpenAICompatible{httpAdapter: newHTTPAdapter(cfg, limiter)}
}

// chatMessage is one entry in the chat-completions messages array.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the subset of the chat-completions response we consume.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage TokenUsage `json:"usage"`
}

// Generate implements Provider.
func (p *OpenAICompatible) Generate(ctx context.Context, req *CompletionRequest) (*CompletionResult, error) {
	start := p.now()
	model := p.cfg.resolveModel(req.Model)

	if p.cfg.APIKey == "" {
		p.recordOutcome(false, p.now().Sub(start), 0)
		return nil, &ProviderError{Provider: p.cfg.Name, Message: ErrNoAPIKey.Error(), Cause: ErrNoAPIKey}
	}

	// Consuming admission check; the pre-flight CheckAvailability probe
	// never replaces this.
	if err := p.admit(model); err != nil {
		p.recordOutcome(false, p.now().Sub(start), 0)
		return nil, err
	}

	payload := map[string]any{
		"model": model,
		"messages": []chatMessage{
			{Role: "user", Content: req.Query},
		},
	}
	p.applySampling(payload, req)

	headers := map[string]string{
		"Authorization": "Bearer " + p.cfg.APIKey,
	}

	data, status, err := p.post(ctx, p.cfg.BaseURL+"/chat/completions", headers, payload)
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

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil || len(parsed.Choices) == 0 {
		p.recordOutcome(false, latency, 0)
		return nil, &ProviderError{
			Provider: p.cfg.Name,
			Message:  fmt.Sprintf("%v: no completion in response", ErrMalformedResponse),
			Cause:    ErrMalformedResponse,
		}
	}

	tokens := parsed.Usage.Total()
	p.recordTokens(model, tokens)
	p.recordOutcome(true, latency, tokens)

	return &CompletionResult{
		Content:  parsed.Choices[0].Message.Content,
		Provider: p.cfg.Name,
		Model:    model,
		Usage:    parsed.Usage,
		Latency:  latency,
	}, nil
}

// applySampling adds the sampling parameters the backend declares support
// for. Unsupported parameters are omitted entirely.
func (p *OpenAICompatible) applySampling(payload map[string]any, req *CompletionRequest) {
	if req.MaxTokens > 0 {
		payload["max_tokens"] = req.MaxTokens
	}
	if p.cfg.Capabilities.Temperature && req.Temperature != nil {
		payload["temperature"] = *req.Temperature
	}
	if p.cfg.Capabilities.TopP && req.TopP != nil {
		payload["top_p"] = *req.TopP
	}
	if p.cfg.Capabilities.TopK && req.TopK != nil {
		payload["top_k"] = *req.TopK
	}
	if len(req.Stop) > 0 {
		payload["stop"] = req.Stop
	}
}
