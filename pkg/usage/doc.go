// Package usage persists per-request accounting records in SQLite.
//
// Every routed completion produces one row: which provider served it, how
// many attempts it took, latency, and token counts. The store backs the
// status and analytics surfaces and is pruned on a cron schedule so the
// database stays bounded over long deployments.
//
// # Storage
//
// The store uses a single SQLite database file (modernc.org/sqlite, pure
// Go driver) opened in WAL mode with a single writer connection. This is
// a single-instance service; no external database is required.
package usage
