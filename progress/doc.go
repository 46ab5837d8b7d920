// Package progress keeps the cumulative task counters reported by the
// orchestrator. Components apply deltas; readers take snapshots.
package progress
