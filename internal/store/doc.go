// Package store keeps a SQLite log of generation runs.
//
// Each run records the module, the spec fingerprint, the configuration (as
// canonical JSON and its hash), the generator and IR versions, and one row
// per artifact with its path, kind, size and SHA-256. The log is an audit
// trail: it proves that regenerating the same spec with the same
// configuration yields the same bytes. It is never consulted to skip work.
//
// # Ordering
//
// Runs carry a logical sequence number (seq) assigned at insert time. All
// queries order by seq, then id, then path with COLLATE BINARY so results
// are identical across machines; wall-clock time is not stored.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
