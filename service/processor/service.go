package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/viant/taskgate/internal/logger"
	"github.com/viant/taskgate/service/messaging"
)

// Config represents processor configuration
type Config struct {
	// WorkerCount is the number of workers consuming the queue
	WorkerCount int

	// Backoff is the pause after a transient consume error
	Backoff time.Duration
}

// DefaultConfig returns the default processor configuration
func DefaultConfig() Config {
	return Config{
		WorkerCount: 1,
		Backoff:     100 * time.Millisecond,
	}
}

// Handler processes a single payload. A nil error acknowledges the message;
// anything else rejects it so the queue can retry.
type Handler[T any] func(ctx context.Context, payload *T) error

// Service runs workers over a queue
type Service[T any] struct {
	config  Config
	queue   messaging.Queue[T]
	handler Handler[T]
	logger  *slog.Logger

	mux      sync.Mutex
	workerWg sync.WaitGroup
	cancel   context.CancelFunc
	started  bool
}

type worker[T any] struct {
	id      int
	service *Service[T]
	ctx     context.Context
}

// New creates a processor
func New[T any](queue messaging.Queue[T], handler Handler[T], options ...Option[T]) (*Service[T], error) {
	if queue == nil {
		return nil, fmt.Errorf("message queue is required")
	}
	if handler == nil {
		return nil, fmt.Errorf("handler is required")
	}
	s := &Service[T]{
		config:  DefaultConfig(),
		queue:   queue,
		handler: handler,
	}
	for _, opt := range options {
		opt(s)
	}
	if s.config.WorkerCount <= 0 {
		s.config.WorkerCount = 1
	}
	s.logger = logger.OrDefault(s.logger)
	return s, nil
}

// Start launches the workers; they stop when ctx is done or Shutdown is called.
func (s *Service[T]) Start(ctx context.Context) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	if s.started {
		return fmt.Errorf("processor already started")
	}
	s.started = true
	ctx, s.cancel = context.WithCancel(ctx)
	for i := 0; i < s.config.WorkerCount; i++ {
		w := &worker[T]{id: i, service: s, ctx: ctx}
		s.workerWg.Add(1)
		go w.run()
	}
	return nil
}

// Shutdown stops the workers and waits for in-flight messages.
func (s *Service[T]) Shutdown() {
	s.mux.Lock()
	cancel := s.cancel
	s.mux.Unlock()
	if cancel != nil {
		cancel()
	}
	s.workerWg.Wait()
}

func (w *worker[T]) run() {
	defer w.service.workerWg.Done()
	for {
		msg, err := w.service.queue.Consume(w.ctx)
		if err != nil {
			if w.ctx.Err() != nil || errors.Is(err, messaging.ErrClosed) {
				return
			}
			w.service.logger.Warn("consume failed", "worker", w.id, "error", err)
			select {
			case <-w.ctx.Done():
				return
			case <-time.After(w.service.config.Backoff):
			}
			continue
		}
		if msg == nil {
			continue
		}
		if pErr := w.service.process(w.ctx, msg); pErr != nil {
			w.service.logger.Warn("failed to settle message", "worker", w.id, "error", pErr)
		}
	}
}

func (s *Service[T]) process(ctx context.Context, msg messaging.Message[T]) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = msg.Nack(fmt.Errorf("handler panic: %v", r))
		}
	}()
	if hErr := s.handler(ctx, msg.T()); hErr != nil {
		return msg.Nack(hErr)
	}
	return msg.Ack()
}
