// Package audit implements the append-only, day-partitioned audit trail.
// Each entry is chained to its predecessor with a BLAKE2b-256 hash so that
// Verify can detect edits made to a partition outside the public API.
package audit
