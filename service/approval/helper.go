package approval

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DecisionFunc decides what to do with a pending request.
// Return (true,  "") to approve
//
//	(false, "…") to reject with reason.
type DecisionFunc func(r *Request) (approved bool, reason string)

// AutoDecider starts a goroutine that polls Pending and applies fn to
// every request. It returns stop() – call it (or cancel ctx) to exit.
func AutoDecider(ctx context.Context,
	svc Service,
	fn DecisionFunc,
	interval time.Duration) (stop func()) {

	if interval <= 0 {
		interval = 20 * time.Millisecond
	}
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				requests, _ := svc.Pending(ctx)
				for _, r := range requests {
					ok, reason := fn(r)
					_, _ = svc.Respond(ctx, r.TaskID, ok, reason)
				}
			}
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

// AutoApprove automatically approves all pending requests
func AutoApprove(ctx context.Context,
	svc Service,
	interval time.Duration) func() {
	return AutoDecider(ctx, svc,
		func(*Request) (bool, string) { return true, "" }, interval)
}

// AutoReject automatically rejects all pending requests with the given reason
func AutoReject(ctx context.Context,
	svc Service,
	reason string,
	interval time.Duration) func() {
	return AutoDecider(ctx, svc,
		func(*Request) (bool, string) { return false, reason }, interval)
}

// WaitForDecision polls Status until the latest request of taskID is decided or timeout elapses.
func WaitForDecision(ctx context.Context, svc Service, taskID string, timeout time.Duration) (*TaskStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		status, err := svc.Status(ctx, taskID)
		if err != nil {
			return nil, err
		}
		if status.Found && status.Status.Decided() {
			return status, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for decision on task %s: %w", taskID, ctx.Err())
		case <-ticker.C:
		}
	}
}

// PendingFilter narrows ListPending.
type PendingFilter func(r *Request) bool

// WithCategory keeps requests of the given task category.
func WithCategory(category string) PendingFilter {
	return func(r *Request) bool { return r.Category == category }
}

// WithApprovalType keeps requests gated by the given policy rule.
func WithApprovalType(approvalType string) PendingFilter {
	return func(r *Request) bool { return r.ApprovalType == approvalType }
}

// ListPending returns pending requests accepted by every filter.
func ListPending(ctx context.Context, svc Service, filters ...PendingFilter) ([]*Request, error) {
	requests, err := svc.Pending(ctx)
	if err != nil {
		return nil, err
	}
	ret := make([]*Request, 0, len(requests))
outer:
	for _, r := range requests {
		for _, filter := range filters {
			if !filter(r) {
				continue outer
			}
		}
		ret = append(ret, r)
	}
	return ret, nil
}
