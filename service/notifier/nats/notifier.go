// Package nats implements a notifier.Notifier publishing JSON notifications
// on a core NATS subject.
package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/viant/taskgate/service/notifier"
)

const providerName = "nats"

// DefaultSubject is used when no subject is configured.
const DefaultSubject = "taskgate.notifications"

func init() {
	notifier.Register(providerName, func(config map[string]string) (notifier.Notifier, error) {
		if config["url"] == "" {
			return nil, notifier.ErrNotConfigured
		}
		return Connect(config["url"], config["subject"])
	})
}

// Notifier publishes notifications to NATS.
type Notifier struct {
	nc      *nats.Conn
	subject string
}

// Connect establishes a NATS connection.
func Connect(url, subject string) (*Notifier, error) {
	nc, err := nats.Connect(url, nats.Name("taskgate-notifier"))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return New(nc, subject), nil
}

// New wraps an existing connection.
func New(nc *nats.Conn, subject string) *Notifier {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Notifier{nc: nc, subject: subject}
}

func (n *Notifier) Name() string { return providerName }

// Subject returns the publish subject.
func (n *Notifier) Subject() string { return n.subject }

func (n *Notifier) Send(_ context.Context, notification notifier.Notification) error {
	if n.nc == nil {
		return notifier.ErrNotConfigured
	}
	data, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := n.nc.Publish(n.subject, data); err != nil {
		return fmt.Errorf("nats publish %s: %w", n.subject, err)
	}
	return nil
}

// Close drains and closes the connection.
func (n *Notifier) Close() error {
	if n.nc == nil {
		return nil
	}
	return n.nc.Drain()
}
