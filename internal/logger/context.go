package logger

import (
	"context"
	"log/slog"
)

type contextKey struct{}

var taskIDKey = contextKey{}

// WithTaskID returns a context carrying the task identifier being processed.
func WithTaskID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, taskIDKey, id)
}

// TaskID extracts the task identifier from ctx, or "".
func TaskID(ctx context.Context) string {
	id, _ := ctx.Value(taskIDKey).(string)
	return id
}

// FromContext decorates l with the task id carried by ctx, if any.
func FromContext(ctx context.Context, l *slog.Logger) *slog.Logger {
	l = OrDefault(l)
	if id := TaskID(ctx); id != "" {
		return l.With("task_id", id)
	}
	return l
}
