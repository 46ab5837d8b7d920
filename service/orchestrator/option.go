package orchestrator

import (
	"log/slog"

	"github.com/viant/taskgate/progress"
	"github.com/viant/taskgate/service/notifier"
	"github.com/viant/taskgate/tracing"
)

// Pauser exposes the system-wide kill switch.
type Pauser interface {
	Paused() bool
}

// Option customises the orchestrator.
type Option func(*Service)

// WithConfig replaces the default configuration.
func WithConfig(config Config) Option {
	return func(s *Service) {
		s.config = config
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithNotifier sets the notifier told about tasks awaiting approval.
func WithNotifier(n notifier.Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithPauser sets the kill switch consulted before every dispatch.
func WithPauser(p Pauser) Option {
	return func(s *Service) {
		s.pauser = p
	}
}

// WithMetrics enables metric counters.
func WithMetrics(m *tracing.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithProgress shares a stats tracker.
func WithProgress(p *progress.Progress) Option {
	return func(s *Service) {
		s.progress = p
	}
}
