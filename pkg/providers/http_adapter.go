package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"meridian-llm/meridian/pkg/ratelimit"
)

const (
	// maxTransientAttempts bounds the adapter-internal retry loop for
	// timeouts and connection failures. This is the only retry below the
	// router layer.
	maxTransientAttempts = 3

	// transientBackoffBase is the first retry delay; it doubles per
	// attempt up to transientBackoffCap.
	transientBackoffBase = time.Second
	transientBackoffCap  = 8 * time.Second

	// maxErrorBodyBytes caps how much of an error response body is
	// carried into error messages.
	maxErrorBodyBytes = 512
)

// httpAdapter is the shared base for HTTP backend adapters. It owns the
// pooled HTTP client, the rolling statistics, and the adapter's interaction
// with the rate limiter. Concrete adapters embed it and implement Generate.
type httpAdapter struct {
	cfg     Config
	client  *http.Client
	limiter *ratelimit.Manager
	logger  *slog.Logger

	statsMu sync.Mutex
	stats   Stats

	// now and sleep are replaceable in tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func newHTTPAdapter(cfg Config, limiter *ratelimit.Manager) *httpAdapter {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: cfg.ConnectTimeout,
		}).DialContext,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}

	return &httpAdapter{
		cfg: cfg,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		limiter: limiter,
		logger:  slog.Default().With("component", "providers", "provider", cfg.Name),
		now:     time.Now,
		sleep:   sleepContext,
	}
}

// Name implements Provider.
func (a *httpAdapter) Name() string { return a.cfg.Name }

// Models implements Provider.
func (a *httpAdapter) Models() []string { return a.cfg.Models }

// DefaultModel implements Provider.
func (a *httpAdapter) DefaultModel() string {
	if a.cfg.DefaultModel != "" {
		return a.cfg.DefaultModel
	}
	if len(a.cfg.Models) > 0 {
		return a.cfg.Models[0]
	}
	return ""
}

// Capabilities implements Provider.
func (a *httpAdapter) Capabilities() Capabilities { return a.cfg.Capabilities }

// Stats implements Provider.
func (a *httpAdapter) Stats() Stats {
	a.statsMu.Lock()
	defer a.statsMu.Unlock()
	return a.stats
}

// Close implements Provider.
func (a *httpAdapter) Close() error {
	a.client.CloseIdleConnections()
	return nil
}

// limitKey builds the rate limiter tracking key for a model.
func (a *httpAdapter) limitKey(model string) string {
	if model == "" {
		model = "default"
	}
	return a.cfg.Name + ":" + model
}

// CheckAvailability implements Provider. It fails closed when no credential
// is configured and otherwise peeks at the rate limiter without consuming.
func (a *httpAdapter) CheckAvailability(model string) Availability {
	if a.cfg.APIKey == "" {
		return Availability{Available: false, Reason: "api key not configured"}
	}

	if model == "" {
		model = a.DefaultModel()
	}
	spec := a.cfg.specFor(model)
	if err := spec.Normalize(); err != nil {
		return Availability{Available: false, Reason: err.Error()}
	}

	snap := a.limiter.Status(a.limitKey(model), spec)
	for dim, st := range snap {
		if st.Remaining <= 0 {
			av := Availability{
				Available: false,
				Reason:    fmt.Sprintf("rate limit exhausted: %s at %d/%d", dim, st.Current, st.Limit),
			}
			if !st.Reset.IsZero() {
				av.RetryAfter = st.Reset.Sub(a.now())
			}
			return av
		}
	}

	return Availability{Available: true}
}

// RateLimitStatus implements Provider.
func (a *httpAdapter) RateLimitStatus(model string) ratelimit.Snapshot {
	if model == "" {
		model = a.DefaultModel()
	}
	spec := a.cfg.specFor(model)
	if err := spec.Normalize(); err != nil {
		return ratelimit.Snapshot{}
	}
	return a.limiter.Status(a.limitKey(model), spec)
}

// admit performs the real, consuming rate-limit check for a call to model.
// It returns a *RateLimitError when any dimension denies admission.
func (a *httpAdapter) admit(model string) error {
	spec := a.cfg.specFor(model)
	if err := spec.Normalize(); err != nil {
		return &ProviderError{Provider: a.cfg.Name, Message: "invalid rate limit spec", Cause: err}
	}

	result := a.limiter.Check(a.limitKey(model), spec, 0)
	if !result.Allowed {
		return &RateLimitError{
			Provider:   a.cfg.Name,
			Dimension:  result.Dimension,
			Current:    result.Current,
			Limit:      result.Limit,
			RetryAfter: result.RetryAfter,
		}
	}
	return nil
}

// recordTokens charges post-hoc token usage for a completed call.
func (a *httpAdapter) recordTokens(model string, tokens int) {
	if tokens <= 0 {
		return
	}
	a.limiter.RecordTokens(a.limitKey(model), int64(tokens))
}

// recordOutcome folds one completed call into the rolling statistics using
// an incremental mean for latency.
func (a *httpAdapter) recordOutcome(success bool, latency time.Duration, tokens int) {
	a.statsMu.Lock()
	defer a.statsMu.Unlock()

	a.stats.TotalRequests++
	a.stats.LastRequest = a.now()
	if success {
		a.stats.SuccessfulRequests++
	} else {
		a.stats.FailedRequests++
	}
	a.stats.TotalTokens += int64(tokens)

	n := a.stats.TotalRequests
	if n == 1 {
		a.stats.AverageLatency = latency
	} else {
		a.stats.AverageLatency += (latency - a.stats.AverageLatency) / time.Duration(n)
	}
}

// post sends a JSON payload and returns the response body and status code.
// Timeouts and connection failures are retried with exponential backoff up
// to maxTransientAttempts; the last failure surfaces as a *TransientError.
// Non-2xx statuses are returned to the caller for wire-format-specific
// handling, not treated as transport errors.
func (a *httpAdapter) post(ctx context.Context, url string, headers map[string]string, payload any) ([]byte, int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, &ProviderError{Provider: a.cfg.Name, Message: "failed to encode request", Cause: err}
	}

	var lastErr error
	for attempt := 1; attempt <= maxTransientAttempts; attempt++ {
		if attempt > 1 {
			backoff := min(transientBackoffBase<<(attempt-2), transientBackoffCap)
			a.logger.Debug("retrying transient failure",
				"attempt", attempt,
				"backoff", backoff,
				"error", lastErr,
			)
			if err := a.sleep(ctx, backoff); err != nil {
				return nil, 0, err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, 0, &ProviderError{Provider: a.cfg.Name, Message: "failed to build request", Cause: err}
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range a.cfg.Headers {
			req.Header.Set(k, v)
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := a.client.Do(req)
		if err != nil {
			if isTransportTransient(err) {
				lastErr = err
				continue
			}
			return nil, 0, &ProviderError{Provider: a.cfg.Name, Message: "request failed", Cause: err}
		}

		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			if isTransportTransient(readErr) {
				lastErr = readErr
				continue
			}
			return nil, 0, &ProviderError{Provider: a.cfg.Name, Message: "failed to read response", Cause: readErr}
		}

		return data, resp.StatusCode, nil
	}

	return nil, 0, &TransientError{Provider: a.cfg.Name, Attempts: maxTransientAttempts, Cause: lastErr}
}

// isTransportTransient classifies network errors worth retrying inside the
// adapter: timeouts and connection-level failures.
func isTransportTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// errorBody trims a response body for inclusion in an error message.
func errorBody(data []byte) string {
	if len(data) > maxErrorBodyBytes {
		data = data[:maxErrorBodyBytes]
	}
	return string(bytes.TrimSpace(data))
}

// sleepContext waits for d or until ctx is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
