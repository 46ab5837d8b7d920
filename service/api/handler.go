// Package api exposes the orchestrator, approval store, audit trail and
// anomaly monitor over HTTP under /api/v1.
package api

import (
	"context"
	"log/slog"

	"github.com/viant/taskgate/internal/logger"
	"github.com/viant/taskgate/model/task"
	"github.com/viant/taskgate/service/anomaly"
	"github.com/viant/taskgate/service/approval"
	"github.com/viant/taskgate/service/audit"
	"github.com/viant/taskgate/service/orchestrator"
)

// DefaultBodyLimit caps request bodies.
const DefaultBodyLimit int64 = 1 << 20

// Orchestrator is the subset of orchestrator.Service served over HTTP.
type Orchestrator interface {
	SubmitTask(ctx context.Context, t *task.Task) (*orchestrator.SubmitResult, error)
	Task(id string) (*task.Task, error)
	DeadLetters() []*task.Task
	RetryDeadLetterQueue(ctx context.Context) ([]*orchestrator.SubmitResult, error)
	Stats() orchestrator.Stats
}

// Monitor is the subset of anomaly.Monitor served over HTTP.
type Monitor interface {
	Evaluate(ctx context.Context) (*anomaly.Report, error)
	Pause(ctx context.Context, reason string) error
	Resume(ctx context.Context) error
	Paused() bool
	PauseReason() string
}

// Handler serves the HTTP API.
type Handler struct {
	orchestrator Orchestrator
	approvals    approval.Service
	auditor      audit.Service
	monitor      Monitor
	logger       *slog.Logger
	bodyLimit    int64
}

// Option customises a Handler.
type Option func(*Handler)

// WithLogger sets the handler logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// WithBodyLimit caps request bodies at n bytes.
func WithBodyLimit(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.bodyLimit = n
		}
	}
}

// New creates a Handler.
func New(orch Orchestrator, approvals approval.Service, auditor audit.Service, monitor Monitor, opts ...Option) *Handler {
	h := &Handler{
		orchestrator: orch,
		approvals:    approvals,
		auditor:      auditor,
		monitor:      monitor,
		bodyLimit:    DefaultBodyLimit,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = logger.OrDefault(h.logger)
	return h
}
