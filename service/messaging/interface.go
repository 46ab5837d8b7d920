package messaging

import (
	"context"
	"errors"
)

// ErrClosed is returned by Publish and Consume once a queue has been closed.
var ErrClosed = errors.New("messaging: queue closed")

// Queue is a work queue of T payloads with at-least-once delivery.
type Queue[T any] interface {
	// Publish enqueues a copy of t.
	Publish(ctx context.Context, t *T) error

	// Consume blocks until a message is available or ctx is done.
	Consume(ctx context.Context) (Message[T], error)
}

// Message is a delivered payload awaiting acknowledgement.
type Message[T any] interface {
	// T returns the payload.
	T() *T

	// Ack marks the message processed.
	Ack() error

	// Nack reports a failed delivery; the queue retries it or moves it to
	// its dead letter area once retries are exhausted.
	Nack(err error) error
}

// ErrAlreadyProcessed is returned when Ack or Nack is called twice on a message.
var ErrAlreadyProcessed = errors.New("messaging: message already processed")
