package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "taskgate"

// Metrics holds the orchestrator metric instruments.
type Metrics struct {
	TasksSubmitted metric.Int64Counter
	TasksCompleted metric.Int64Counter
	TasksFailed    metric.Int64Counter
	TasksRejected  metric.Int64Counter
	Anomalies      metric.Int64Counter
	TaskDuration   metric.Float64Histogram
}

// NewMetrics creates all metric instruments on the global meter.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.TasksSubmitted, err = meter.Int64Counter("taskgate.tasks.submitted",
		metric.WithDescription("Number of tasks submitted"))
	if err != nil {
		return nil, err
	}

	m.TasksCompleted, err = meter.Int64Counter("taskgate.tasks.completed",
		metric.WithDescription("Number of tasks completed"))
	if err != nil {
		return nil, err
	}

	m.TasksFailed, err = meter.Int64Counter("taskgate.tasks.failed",
		metric.WithDescription("Number of tasks failed"))
	if err != nil {
		return nil, err
	}

	m.TasksRejected, err = meter.Int64Counter("taskgate.tasks.rejected",
		metric.WithDescription("Number of tasks rejected by an approver"))
	if err != nil {
		return nil, err
	}

	m.Anomalies, err = meter.Int64Counter("taskgate.anomalies",
		metric.WithDescription("Number of anomalies detected"))
	if err != nil {
		return nil, err
	}

	m.TaskDuration, err = meter.Float64Histogram("taskgate.task.duration_seconds",
		metric.WithDescription("Task execution duration in seconds"))
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Add increments counter by one with the module attribute. Nil metrics are ignored.
func (m *Metrics) Add(ctx context.Context, counter metric.Int64Counter, module string) {
	if m == nil || counter == nil {
		return
	}
	counter.Add(ctx, 1, metric.WithAttributes(attribute.String("module", module)))
}

// Observe records a task duration.
func (m *Metrics) Observe(ctx context.Context, seconds float64, module string) {
	if m == nil || m.TaskDuration == nil {
		return
	}
	m.TaskDuration.Record(ctx, seconds, metric.WithAttributes(attribute.String("module", module)))
}
