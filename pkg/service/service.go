package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"meridian-llm/meridian/pkg/config"
	"meridian-llm/meridian/pkg/monitor"
	"meridian-llm/meridian/pkg/providers"
	"meridian-llm/meridian/pkg/ratelimit"
	"meridian-llm/meridian/pkg/routing"
	"meridian-llm/meridian/pkg/routing/strategies"
	"meridian-llm/meridian/pkg/telemetry/metrics"
	"meridian-llm/meridian/pkg/usage"
)

// CompletionResponse is the API envelope for a routed completion.
type CompletionResponse struct {
	RequestID string               `json:"request_id"`
	Content   string               `json:"content"`
	Provider  string               `json:"provider"`
	Model     string               `json:"model"`
	Usage     providers.TokenUsage `json:"usage"`
	Latency   time.Duration        `json:"latency"`
	Attempts  int                  `json:"attempts"`
	Strategy  string               `json:"strategy"`
	Timestamp time.Time            `json:"timestamp"`
}

// ProviderInfo is one entry of the provider listing surface.
type ProviderInfo struct {
	Name         string                 `json:"name"`
	Models       []string               `json:"models"`
	DefaultModel string                 `json:"default_model"`
	Available    bool                   `json:"available"`
	Reason       string                 `json:"reason,omitempty"`
	Stats        providers.Stats        `json:"stats"`
	Capabilities providers.Capabilities `json:"capabilities"`
}

// ProviderStatus is the per-provider slice of a status report.
type ProviderStatus struct {
	Available  bool                          `json:"available"`
	Reason     string                        `json:"reason,omitempty"`
	Stats      providers.Stats               `json:"stats"`
	RateLimits map[string]ratelimit.Snapshot `json:"rate_limits"`
}

// StatusReport is the aggregate health surface.
type StatusReport struct {
	Timestamp         time.Time                       `json:"timestamp"`
	RoutingStrategy   string                          `json:"routing_strategy"`
	RateLimitStrategy string                          `json:"rate_limit_strategy"`
	Router            routing.Stats                   `json:"router"`
	Circuits          map[string]routing.CircuitState `json:"circuits"`
	Providers         map[string]ProviderStatus       `json:"providers"`
	Usage             []usage.ProviderSummary         `json:"usage,omitempty"`
}

// Service composes the limiter, registry, router and accounting layers.
type Service struct {
	cfg      *config.Config
	limiter  *ratelimit.Manager
	registry *providers.Registry
	router   *routing.Router
	store    *usage.Store
	pruner   *usage.Scheduler
	metrics  *metrics.Collector
	monitor  *monitor.Monitor
	logger   *slog.Logger

	now func() time.Time
}

// New builds the full service from configuration. The returned service
// must be closed to release the usage store and pooled connections.
func New(cfg *config.Config) (*Service, error) {
	limiter, err := ratelimit.NewManager(ratelimit.Strategy(cfg.RateLimit.Strategy))
	if err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	registry := providers.NewRegistry(limiter)
	if err := registry.Configure(providerConfigs(cfg)); err != nil {
		return nil, fmt.Errorf("providers: %w", err)
	}

	strategy, err := strategies.New(cfg.Routing.Strategy)
	if err != nil {
		registry.Close()
		return nil, fmt.Errorf("routing strategy: %w", err)
	}

	router := routing.NewRouter(registry, strategy, routing.Options{
		Attempts:         cfg.Routing.Attempts,
		CircuitTimeout:   cfg.Routing.CircuitBreakerTimeout,
		SelectRetryDelay: cfg.Routing.SelectRetryDelay,
	})

	svc := &Service{
		cfg:      cfg,
		limiter:  limiter,
		registry: registry,
		router:   router,
		metrics:  metrics.NewCollector(),
		monitor:  monitor.New(registry, router.Breaker()),
		logger:   slog.Default().With("component", "service"),
		now:      time.Now,
	}

	if cfg.Usage.Enabled {
		store, err := usage.NewStore(cfg.Usage.DBPath)
		if err != nil {
			registry.Close()
			return nil, fmt.Errorf("usage store: %w", err)
		}
		svc.store = store
		svc.pruner = usage.NewScheduler(store, usage.RetentionConfig{
			RetentionDays: cfg.Usage.RetentionDays,
			Schedule:      cfg.Usage.PruneSchedule,
		})
	}

	return svc, nil
}

// Start launches background jobs (usage retention). It returns immediately.
func (s *Service) Start(ctx context.Context) error {
	if s.pruner != nil {
		if err := s.pruner.Start(ctx); err != nil {
			return fmt.Errorf("usage retention: %w", err)
		}
	}
	return nil
}

// Complete validates req, routes it through the load balancer, and records
// the outcome. Sampling parameters left unset are filled with defaults.
func (s *Service) Complete(ctx context.Context, req *providers.CompletionRequest) (*CompletionResponse, error) {
	if err := normalizeRequest(req); err != nil {
		return nil, err
	}

	requestID := uuid.NewString()
	start := s.now()

	result, err := s.router.Route(ctx, &routing.Request{
		RequestID: requestID,
		Model:     req.Model,
	}, req)

	elapsed := s.now().Sub(start)

	if err != nil {
		var denial *providers.RateLimitError
		if errors.As(err, &denial) {
			dimension := string(denial.Dimension)
			if denial.Upstream {
				dimension = "upstream"
			}
			s.metrics.RecordRateLimitDenial(denial.Provider, dimension)
		}
		s.recordOutcome(ctx, requestID, req.Model, "", "error", routedAttempts(result, err), elapsed, providers.TokenUsage{})
		s.logger.Error("completion failed",
			"request_id", requestID,
			"model", req.Model,
			"error", err,
		)
		return nil, err
	}

	comp := result.Completion
	s.recordOutcome(ctx, requestID, comp.Model, result.ProviderName, "success", result.Attempts, elapsed, comp.Usage)

	s.logger.Info("completion served",
		"request_id", requestID,
		"provider", result.ProviderName,
		"model", comp.Model,
		"attempts", result.Attempts,
		"latency", comp.Latency,
	)

	return &CompletionResponse{
		RequestID: requestID,
		Content:   comp.Content,
		Provider:  result.ProviderName,
		Model:     comp.Model,
		Usage:     comp.Usage,
		Latency:   comp.Latency,
		Attempts:  result.Attempts,
		Strategy:  result.Strategy,
		Timestamp: s.now(),
	}, nil
}

// routedAttempts extracts the attempt count from a failed route when the
// router could report one.
func routedAttempts(result *routing.Result, err error) int {
	if result != nil {
		return result.Attempts
	}
	var exhausted *routing.ExhaustedError
	if errors.As(err, &exhausted) {
		return exhausted.Attempts
	}
	var noProvider *routing.NoProviderError
	if errors.As(err, &noProvider) {
		return noProvider.Attempts
	}
	return 0
}

func (s *Service) recordOutcome(ctx context.Context, requestID, model, provider, status string, attempts int, elapsed time.Duration, tokens providers.TokenUsage) {
	s.metrics.RecordRequest(provider, model, status, elapsed, attempts)
	if status == "success" {
		s.metrics.RecordTokens(provider, model, tokens.PromptTokens, tokens.CompletionTokens)
	}
	s.refreshGauges()

	if s.store == nil {
		return
	}
	rec := usage.Record{
		RequestID:        requestID,
		Timestamp:        s.now(),
		Provider:         provider,
		Model:            model,
		Status:           status,
		Attempts:         attempts,
		Latency:          elapsed,
		PromptTokens:     tokens.PromptTokens,
		CompletionTokens: tokens.CompletionTokens,
	}
	if err := s.store.Record(ctx, rec); err != nil {
		s.logger.Warn("failed to record usage", "request_id", requestID, "error", err)
	}
}

// refreshGauges pushes current availability and circuit state into the
// metrics collector.
func (s *Service) refreshGauges() {
	circuits := s.router.Breaker().Snapshot()
	for _, p := range s.registry.All() {
		name := p.Name()
		s.metrics.SetProviderAvailable(name, p.CheckAvailability("").Available)
		s.metrics.SetCircuitOpen(name, circuits[name].Open)
	}
}

// Providers lists every configured provider with its live availability.
func (s *Service) Providers() []ProviderInfo {
	all := s.registry.All()
	out := make([]ProviderInfo, 0, len(all))
	for _, p := range all {
		av := p.CheckAvailability("")
		out = append(out, ProviderInfo{
			Name:         p.Name(),
			Models:       p.Models(),
			DefaultModel: p.DefaultModel(),
			Available:    av.Available,
			Reason:       av.Reason,
			Stats:        p.Stats(),
			Capabilities: p.Capabilities(),
		})
	}
	return out
}

// Status builds the aggregate health report.
func (s *Service) Status(ctx context.Context) *StatusReport {
	report := &StatusReport{
		Timestamp:         s.now(),
		RoutingStrategy:   s.router.StrategyName(),
		RateLimitStrategy: string(s.limiter.Strategy()),
		Router:            s.router.Stats(),
		Circuits:          s.router.Breaker().Snapshot(),
		Providers:         make(map[string]ProviderStatus),
	}

	for _, p := range s.registry.All() {
		av := p.CheckAvailability("")
		ps := ProviderStatus{
			Available:  av.Available,
			Reason:     av.Reason,
			Stats:      p.Stats(),
			RateLimits: make(map[string]ratelimit.Snapshot),
		}
		for _, model := range p.Models() {
			ps.RateLimits[model] = p.RateLimitStatus(model)
		}
		report.Providers[p.Name()] = ps
	}

	if s.store != nil {
		since := s.now().Add(-24 * time.Hour)
		summaries, err := s.store.Summarize(ctx, since)
		if err != nil {
			s.logger.Warn("failed to summarize usage", "error", err)
		} else {
			report.Usage = summaries
		}
	}

	return report
}

// Reload swaps the provider set from a freshly loaded configuration.
// Routing and server settings are not hot-reloaded.
func (s *Service) Reload(cfg *config.Config) error {
	if err := s.registry.Configure(providerConfigs(cfg)); err != nil {
		return fmt.Errorf("reload providers: %w", err)
	}
	s.cfg = cfg
	s.logger.Info("configuration reloaded", "providers", len(cfg.Providers))
	return nil
}

// Monitor exposes the analytics surface.
func (s *Service) Monitor() *monitor.Monitor { return s.monitor }

// Metrics exposes the Prometheus collector for the HTTP layer.
func (s *Service) Metrics() *metrics.Collector { return s.metrics }

// Close stops background jobs and releases adapters and the usage store.
func (s *Service) Close() error {
	if s.pruner != nil {
		s.pruner.Stop()
	}
	var firstErr error
	if err := s.registry.Close(); err != nil {
		firstErr = err
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
