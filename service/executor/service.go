package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/viant/taskgate/internal/logger"
	"github.com/viant/taskgate/model/task"
)

// Listener is invoked once a task run completes, whether or not it returned
// an error.
type Listener func(t *task.Task, output interface{}, err error, elapsed time.Duration)

// LogListener returns a listener writing one debug record per run.
func LogListener(l *slog.Logger) Listener {
	l = logger.OrDefault(l)
	return func(t *task.Task, output interface{}, err error, elapsed time.Duration) {
		if t == nil {
			return
		}
		l.Debug("task executed", "task_id", t.ID, "task", t.Name(), "elapsed", elapsed, "error", err)
	}
}

// Option is used to customise the executor service.
type Option func(*Service)

// WithListener overrides the listener invoked after every run. Passing nil
// disables the callback.
func WithListener(l Listener) Option {
	return func(s *Service) {
		s.listener = l
	}
}

// WithLogger sets the logger receiving panic stacks.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithTimeout bounds every run.
func WithTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		s.timeout = timeout
	}
}

// Service runs tasks through the registry.
type Service struct {
	registry *Registry
	timeout  time.Duration
	listener Listener
	logger   *slog.Logger
}

// Registry returns the backing registry.
func (s *Service) Registry() *Registry {
	return s.registry
}

// Run resolves the executor of t.Module and invokes it.
func (s *Service) Run(ctx context.Context, t *task.Task) (interface{}, error) {
	started := time.Now()
	output, err := s.run(ctx, t)
	if s.listener != nil {
		s.listener(t, output, err, time.Since(started))
	}
	return output, err
}

func (s *Service) run(ctx context.Context, t *task.Task) (interface{}, error) {
	executor := s.registry.Lookup(t.Module)
	if executor == nil {
		return nil, fmt.Errorf("%w: %s", ErrExecutorNotFound, t.Module)
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	type outcome struct {
		output interface{}
		err    error
	}
	done := make(chan outcome, 1)
	snapshot := t.Clone()
	go func() {
		var ret outcome
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("executor panicked", "task_id", t.ID, "module", t.Module, "panic", r, "stack", string(debug.Stack()))
				ret = outcome{err: fmt.Errorf("%w: %v", ErrPanic, r)}
			}
			done <- ret
		}()
		ret.output, ret.err = executor.Execute(ctx, snapshot)
	}()

	select {
	case ret := <-done:
		if ret.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) && errors.Is(ret.err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s: %s", ErrTimeout, s.timeout, t.Name())
		}
		return ret.output, ret.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s: %s", ErrTimeout, s.timeout, t.Name())
		}
		return nil, ctx.Err()
	}
}

// New creates an executor service over registry.
func New(registry *Registry, opts ...Option) *Service {
	if registry == nil {
		registry = NewRegistry()
	}
	s := &Service{registry: registry}
	for _, o := range opts {
		o(s)
	}
	s.logger = logger.OrDefault(s.logger)
	return s
}
