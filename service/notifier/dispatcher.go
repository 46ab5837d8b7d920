package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/viant/taskgate/internal/clock"
	"github.com/viant/taskgate/internal/logger"
	"github.com/viant/taskgate/internal/resilience"
	"github.com/viant/taskgate/service/messaging"
	"github.com/viant/taskgate/service/processor"
)

// Dispatcher implements Notifier by writing to an outbox queue. Workers
// drain the outbox and deliver each notification to every sink. A failed
// delivery rejects the message, so sinks that already succeeded may see it
// again on retry.
type Dispatcher struct {
	outbox    messaging.Queue[Notification]
	sinks     []Notifier
	breakers  map[string]*resilience.Breaker
	processor *processor.Service[Notification]
	logger    *slog.Logger
	workers   int

	maxFailures  int
	resetTimeout time.Duration
}

// DispatcherOption customises a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatcherLogger sets the structured logger.
func WithDispatcherLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = l }
}

// WithWorkers sets the number of delivery workers.
func WithWorkers(n int) DispatcherOption {
	return func(d *Dispatcher) { d.workers = n }
}

// WithBreaker configures the per-sink circuit breakers.
func WithBreaker(maxFailures int, resetTimeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.maxFailures = maxFailures
		d.resetTimeout = resetTimeout
	}
}

// NewDispatcher creates a dispatcher over outbox delivering to sinks.
func NewDispatcher(outbox messaging.Queue[Notification], sinks []Notifier, opts ...DispatcherOption) (*Dispatcher, error) {
	d := &Dispatcher{
		outbox:       outbox,
		sinks:        sinks,
		breakers:     make(map[string]*resilience.Breaker, len(sinks)),
		workers:      1,
		maxFailures:  5,
		resetTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = logger.OrDefault(d.logger)
	for _, sink := range sinks {
		d.breakers[sink.Name()] = resilience.NewBreaker(d.maxFailures, d.resetTimeout)
	}
	var err error
	d.processor, err = processor.New[Notification](outbox, d.deliver,
		processor.WithWorkers[Notification](d.workers),
		processor.WithLogger[Notification](d.logger))
	if err != nil {
		return nil, fmt.Errorf("notifier: %w", err)
	}
	return d, nil
}

// Name implements Notifier.
func (d *Dispatcher) Name() string { return "dispatcher" }

// Send implements Notifier; it only enqueues.
func (d *Dispatcher) Send(ctx context.Context, notification Notification) error {
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = clock.Now()
	}
	return d.outbox.Publish(ctx, &notification)
}

// Start launches delivery workers.
func (d *Dispatcher) Start(ctx context.Context) error {
	return d.processor.Start(ctx)
}

// Shutdown stops delivery workers.
func (d *Dispatcher) Shutdown() {
	d.processor.Shutdown()
}

func (d *Dispatcher) deliver(ctx context.Context, notification *Notification) error {
	var errs []error
	for _, sink := range d.sinks {
		breaker := d.breakers[sink.Name()]
		err := breaker.Execute(func() error {
			return sink.Send(ctx, *notification)
		})
		if err != nil {
			d.logger.Warn("notification send failed", "provider", sink.Name(), "title", notification.Title, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
			continue
		}
		d.logger.Debug("notification sent", "provider", sink.Name(), "title", notification.Title)
	}
	return errors.Join(errs...)
}

var _ Notifier = (*Dispatcher)(nil)
