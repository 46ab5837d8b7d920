// Package notifier defines the notification port, a factory registry for
// adapters and a Dispatcher fanning notifications out through an outbox queue.
package notifier

import (
	"context"
	"errors"
	"time"
)

// ErrNotConfigured is returned when a notifier is not properly configured.
var ErrNotConfigured = errors.New("notifier: not configured")

// Notification levels.
const (
	LevelInfo     = "info"
	LevelWarning  = "warning"
	LevelCritical = "critical"
)

// Notification is the payload sent through a Notifier.
type Notification struct {
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Level     string            `json:"level"`
	Source    string            `json:"source"` // e.g. "approval.required", "anomaly.detected"
	TaskID    string            `json:"taskId,omitempty"`
	Meta      map[string]string `json:"meta,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

// Notifier is the port interface for sending notifications.
type Notifier interface {
	// Name returns the unique identifier of this notifier (e.g. "log", "nats").
	Name() string

	// Send delivers a notification.
	Send(ctx context.Context, notification Notification) error
}
