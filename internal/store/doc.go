// Package store provides the SQLite-backed call log: one row per invocation,
// written through the runtime.Sink interface.
//
// The log is append-only. Appending an id that already exists is a no-op, so
// a retried write after a lost acknowledgement cannot duplicate a record.
//
// # Ordering
//
// All reads use ORDER BY seq ASC, id ASC COLLATE BINARY. seq comes from the
// runtime's logical clock; started_at is informational only.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - Single connection: SQLite has one writer; concurrent Append calls queue
package store
