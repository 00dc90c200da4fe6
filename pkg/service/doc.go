// Package service wires the limiter, provider registry, router, usage
// store and metrics into one completion service.
//
// The service owns request validation and defaulting, assigns request
// identifiers, routes each completion through the load balancer, and
// records the outcome in the usage store and the metrics collector. The
// HTTP layer in pkg/server is a thin front door over this package.
//
// # Hot Reload
//
// Reload swaps the provider set atomically through the registry; in-flight
// requests finish against the adapters they started with. Routing strategy
// and server settings are fixed at startup.
package service
