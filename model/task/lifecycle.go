package task

import (
	"fmt"
	"time"
)

func (t *Task) transition(to Status, allowed ...Status) error {
	for _, from := range allowed {
		if t.Status == from {
			t.Status = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, displayStatus(t.Status), to)
}

func displayStatus(s Status) string {
	if s == "" {
		return "new"
	}
	return string(s)
}

// Enqueue admits a new task that did not need approval.
func (t *Task) Enqueue(at time.Time) error {
	if err := t.transition(StatusQueued, ""); err != nil {
		return err
	}
	t.QueuedAt = &at
	return nil
}

// Hold parks a new task until a human decision is recorded.
func (t *Task) Hold() error {
	return t.transition(StatusPendingApproval, "")
}

// Approve moves a held task to queued.
func (t *Task) Approve(at time.Time) error {
	if err := t.transition(StatusQueued, StatusPendingApproval); err != nil {
		return err
	}
	t.DecidedAt = &at
	t.QueuedAt = &at
	return nil
}

// Reject terminates a held task. reason defaults to "rejected".
func (t *Task) Reject(at time.Time, reason string) error {
	if err := t.transition(StatusRejected, StatusPendingApproval); err != nil {
		return err
	}
	if reason == "" {
		reason = "rejected"
	}
	t.DecidedAt = &at
	t.CompletedAt = &at
	t.Error = reason
	return nil
}

// Start marks a queued task as running.
func (t *Task) Start(at time.Time) error {
	if err := t.transition(StatusRunning, StatusQueued); err != nil {
		return err
	}
	t.StartedAt = &at
	return nil
}

// Complete records a successful execution.
func (t *Task) Complete(at time.Time, result interface{}) error {
	if err := t.transition(StatusCompleted, StatusRunning); err != nil {
		return err
	}
	t.CompletedAt = &at
	t.Result = result
	t.Error = ""
	return nil
}

// Fail records a failed execution.
func (t *Task) Fail(at time.Time, err error) error {
	if tErr := t.transition(StatusFailed, StatusRunning); tErr != nil {
		return tErr
	}
	t.CompletedAt = &at
	if err != nil {
		t.Error = err.Error()
	}
	return nil
}

// Requeue resets a failed task so it can be submitted again.
func (t *Task) Requeue() error {
	if t.Status != StatusFailed {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, displayStatus(t.Status), "requeue")
	}
	t.RetryCount++
	t.Status = ""
	t.Error = ""
	t.Result = nil
	t.QueuedAt = nil
	t.StartedAt = nil
	t.CompletedAt = nil
	t.DecidedAt = nil
	return nil
}

// Terminal reports whether no further transition is expected.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusRejected:
		return true
	}
	return false
}
