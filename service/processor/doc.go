// Package processor hosts the workers that drain a messaging queue. Every
// worker consumes one message at a time, hands it to the configured handler
// and acknowledges or rejects it depending on the handler outcome.
package processor
