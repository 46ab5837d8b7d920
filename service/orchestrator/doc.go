// Package orchestrator admits tasks, gates them through the policy engine and
// approval store, keeps admitted tasks in a priority queue and dispatches them
// to registered executors from a ticker driven loop. Failed tasks are parked
// in a bounded dead-letter list until an operator retries them.
package orchestrator
