package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"meridian-llm/meridian/pkg/providers"
	"meridian-llm/meridian/pkg/routing"
	"meridian-llm/meridian/pkg/service"
)

// errorResponse is the JSON envelope for every error status.
type errorResponse struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, errType, message string) {
	writeJSON(w, status, errorResponse{Error: errorDetail{Type: errType, Message: message}})
}

// handleCompletion decodes the request body, routes it, and writes the
// completion envelope.
func (s *Server) handleCompletion(w http.ResponseWriter, r *http.Request) {
	var req providers.CompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	resp, err := s.svc.Complete(r.Context(), &req)
	if err != nil {
		s.writeCompletionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeCompletionError maps service and routing errors onto status codes.
func (s *Server) writeCompletionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case providers.IsRateLimited(err):
		writeError(w, http.StatusTooManyRequests, "rate_limited", err.Error())
	case errors.Is(err, routing.ErrNoProviders):
		writeError(w, http.StatusServiceUnavailable, "no_providers", err.Error())
	case errors.Is(err, routing.ErrAllAttemptsFailed):
		writeError(w, http.StatusBadGateway, "all_providers_failed", err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, statusClientClosedRequest, "request_cancelled", "request cancelled")
	default:
		s.logger.Error("completion handler error",
			"request_id", RequestID(r.Context()),
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "an internal error occurred")
	}
}

// statusClientClosedRequest is nginx's non-standard 499.
const statusClientClosedRequest = 499

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"providers": s.svc.Providers(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Status(r.Context()))
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Monitor().Overview())
}

func (s *Server) handleProviderAnalytics(w http.ResponseWriter, r *http.Request) {
	report, err := s.svc.Monitor().Report(r.PathValue("provider"))
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown_provider", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
