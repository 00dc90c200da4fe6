// Package metrics exposes Prometheus metrics for requests, providers, rate
// limiting and circuit state, registered on a private registry so tests and
// embedding applications never collide with the global default.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metric namespace for everything this service exports.
const namespace = "meridian"

// latencyBuckets covers LLM completion latencies, which routinely run into
// tens of seconds.
var latencyBuckets = []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60}

// Collector owns every metric the service records.
type Collector struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestAttempts prometheus.Histogram
	tokensTotal     *prometheus.CounterVec

	providerAvailable *prometheus.GaugeVec
	circuitOpen       *prometheus.GaugeVec

	rateLimitDenials *prometheus.CounterVec
}

// NewCollector creates the collector and registers all metrics on a fresh
// registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),

		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Completed requests by provider, model and status.",
			},
			[]string{"provider", "model", "status"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "End-to-end request latency in seconds.",
				Buckets:   latencyBuckets,
			},
			[]string{"provider", "model"},
		),

		requestAttempts: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_attempts",
				Help:      "Attempts consumed per request, including the successful one.",
				Buckets:   []float64{1, 2, 3},
			},
		),

		tokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tokens_total",
				Help:      "Tokens consumed by provider, model and kind (prompt or completion).",
			},
			[]string{"provider", "model", "kind"},
		),

		providerAvailable: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "provider_available",
				Help:      "Provider availability probe result (1=available, 0=unavailable).",
			},
			[]string{"provider"},
		),

		circuitOpen: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_open",
				Help:      "Circuit breaker state per provider (1=open, 0=closed).",
			},
			[]string{"provider"},
		),

		rateLimitDenials: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_denials_total",
				Help:      "Admission denials by provider and blocking dimension.",
			},
			[]string{"provider", "dimension"},
		),
	}

	c.registry.MustRegister(
		c.requestsTotal,
		c.requestDuration,
		c.requestAttempts,
		c.tokensTotal,
		c.providerAvailable,
		c.circuitOpen,
		c.rateLimitDenials,
	)

	return c
}

// RecordRequest records one completed request.
func (c *Collector) RecordRequest(provider, model, status string, duration time.Duration, attempts int) {
	c.requestsTotal.WithLabelValues(provider, model, status).Inc()
	c.requestDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
	c.requestAttempts.Observe(float64(attempts))
}

// RecordTokens records token consumption for a completed request.
func (c *Collector) RecordTokens(provider, model string, prompt, completion int) {
	if prompt > 0 {
		c.tokensTotal.WithLabelValues(provider, model, "prompt").Add(float64(prompt))
	}
	if completion > 0 {
		c.tokensTotal.WithLabelValues(provider, model, "completion").Add(float64(completion))
	}
}

// SetProviderAvailable updates the availability gauge for a provider.
func (c *Collector) SetProviderAvailable(provider string, available bool) {
	v := 0.0
	if available {
		v = 1.0
	}
	c.providerAvailable.WithLabelValues(provider).Set(v)
}

// SetCircuitOpen updates the circuit state gauge for a provider.
func (c *Collector) SetCircuitOpen(provider string, open bool) {
	v := 0.0
	if open {
		v = 1.0
	}
	c.circuitOpen.WithLabelValues(provider).Set(v)
}

// RecordRateLimitDenial records one admission denial.
func (c *Collector) RecordRateLimitDenial(provider, dimension string) {
	c.rateLimitDenials.WithLabelValues(provider, dimension).Inc()
}
