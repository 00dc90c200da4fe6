// Package server is the HTTP front door for the completion service.
//
// It exposes the completion endpoint, the provider and status surfaces,
// the rate limit analytics reports, a health probe, and the Prometheus
// exposition endpoint. All domain logic lives in pkg/service; handlers
// here only decode requests, invoke the service, and map errors to
// status codes.
//
// # Routes
//
//   - POST /api/v1/completions - Route a completion through the balancer
//   - GET /api/v1/providers - List configured providers and availability
//   - GET /api/v1/status - Aggregate health, circuits and quota snapshots
//   - GET /api/v1/analytics - System-wide rate limit analytics
//   - GET /api/v1/analytics/{provider} - Per-provider analytics
//   - GET /health - Liveness probe
//   - GET /metrics - Prometheus exposition (path configurable)
//
// # Middleware Chain
//
// Requests pass through, outermost first: panic recovery, request ID
// assignment, request logging.
//
// # Graceful Shutdown
//
// Start blocks until the context is cancelled or a SIGTERM/SIGINT
// arrives, then drains in-flight connections within the configured
// shutdown timeout.
package server
