// Package executor bridges tasks dispatched by the orchestrator with the
// business modules that implement them. Modules register an Executor under
// their name; the Service resolves it, bounds the call with a timeout and
// turns panics into errors.
package executor
