// Package monitor builds rate limit analytics from live limiter snapshots.
//
// It combines per-model quota snapshots, provider statistics, and circuit
// breaker state into reports: current utilization per dimension, graded
// warnings as usage approaches configured limits, linear usage projections,
// and actionable recommendations when a deployment is under pressure.
//
// Reports are computed on demand from live state; the monitor holds no
// state of its own.
package monitor
