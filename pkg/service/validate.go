package service

import (
	"errors"
	"fmt"
	"strings"

	"meridian-llm/meridian/pkg/providers"
)

// Request defaults and bounds applied before routing.
const (
	DefaultMaxTokens   = 2048
	MaxTokensCeiling   = 8192
	DefaultTemperature = 0.7
	DefaultTopP        = 0.9
	DefaultTopK        = 40
)

// ErrInvalidRequest matches every request validation failure via errors.Is.
var ErrInvalidRequest = errors.New("invalid request")

// RequestError reports a single invalid request field.
type RequestError struct {
	Field   string
	Message string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("invalid request: %s: %s", e.Field, e.Message)
}

// Is reports true for ErrInvalidRequest so handlers can map any
// validation failure to a 400 without knowing the field.
func (e *RequestError) Is(target error) bool {
	return target == ErrInvalidRequest
}

// normalizeRequest validates req in place and fills unset sampling
// parameters with service defaults.
func normalizeRequest(req *providers.CompletionRequest) error {
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return &RequestError{Field: "query", Message: "cannot be empty"}
	}

	switch {
	case req.MaxTokens == 0:
		req.MaxTokens = DefaultMaxTokens
	case req.MaxTokens < 0:
		return &RequestError{Field: "max_tokens", Message: "must be positive"}
	case req.MaxTokens > MaxTokensCeiling:
		return &RequestError{
			Field:   "max_tokens",
			Message: fmt.Sprintf("cannot exceed %d", MaxTokensCeiling),
		}
	}

	if req.Temperature == nil {
		t := DefaultTemperature
		req.Temperature = &t
	} else if *req.Temperature < 0 || *req.Temperature > 2 {
		return &RequestError{Field: "temperature", Message: "must be between 0.0 and 2.0"}
	}

	if req.TopP == nil {
		p := DefaultTopP
		req.TopP = &p
	} else if *req.TopP < 0 || *req.TopP > 1 {
		return &RequestError{Field: "top_p", Message: "must be between 0.0 and 1.0"}
	}

	if req.TopK == nil {
		k := DefaultTopK
		req.TopK = &k
	} else if *req.TopK < 1 {
		return &RequestError{Field: "top_k", Message: "must be at least 1"}
	}

	return nil
}
