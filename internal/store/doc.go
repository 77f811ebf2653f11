// Package store provides durable storage for the matchstick decision log.
//
// Every persisted evaluation records the canonical subject, the rulebook
// content hash it was matched against, and the ordered list of firings
// (which clauses ran, in seq order). The log is append-only: writes are
// content-addressed and idempotent, so re-writing the same decision is a
// no-op rather than a duplicate.
//
// The log exists for two reasons:
//   - Provenance: `matchstick trace` reconstructs what fired and why.
//   - Determinism verification: the engine is deterministic, so replaying
//     stored subjects against the same rulebook must reproduce the stored
//     firings exactly. A divergence means the rulebook changed (the stored
//     rulebook hash no longer matches) or the log was modified.
//
// Uses SQLite with WAL mode for concurrent read access and a single-writer
// connection pool.
package store
