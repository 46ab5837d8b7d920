package processor

import (
	"log/slog"
)

// Option customises a Service.
type Option[T any] func(*Service[T])

// WithWorkers sets the number of worker goroutines
func WithWorkers[T any](count int) Option[T] {
	return func(s *Service[T]) {
		if count > 0 {
			s.config.WorkerCount = count
		}
	}
}

// WithConfig replaces the whole configuration
func WithConfig[T any](config Config) Option[T] {
	return func(s *Service[T]) {
		s.config = config
	}
}

// WithLogger sets the structured logger
func WithLogger[T any](l *slog.Logger) Option[T] {
	return func(s *Service[T]) {
		s.logger = l
	}
}
