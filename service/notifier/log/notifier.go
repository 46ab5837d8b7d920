// Package log implements a notifier.Notifier writing structured log records.
package log

import (
	"context"
	"log/slog"

	"github.com/viant/taskgate/internal/logger"
	"github.com/viant/taskgate/service/notifier"
)

const providerName = "log"

func init() {
	notifier.Register(providerName, func(map[string]string) (notifier.Notifier, error) {
		return New(nil), nil
	})
}

// Notifier logs notifications.
type Notifier struct {
	logger *slog.Logger
}

// New creates a log notifier; nil uses slog.Default().
func New(l *slog.Logger) *Notifier {
	return &Notifier{logger: logger.OrDefault(l)}
}

func (n *Notifier) Name() string { return providerName }

func (n *Notifier) Send(ctx context.Context, notification notifier.Notification) error {
	level := slog.LevelInfo
	switch notification.Level {
	case notifier.LevelWarning:
		level = slog.LevelWarn
	case notifier.LevelCritical:
		level = slog.LevelError
	}
	attrs := []any{"source", notification.Source, "message", notification.Message}
	if notification.TaskID != "" {
		attrs = append(attrs, "task_id", notification.TaskID)
	}
	for k, v := range notification.Meta {
		attrs = append(attrs, k, v)
	}
	n.logger.Log(ctx, level, notification.Title, attrs...)
	return nil
}
