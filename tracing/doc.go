// Package tracing wires OpenTelemetry into taskgate. Spans are started with
// StartSpan/EndSpan; metric instruments come from the global meter so an
// application that never calls Init pays only for no-op providers.
package tracing
