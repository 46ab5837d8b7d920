package approval

import (
	"context"

	"github.com/viant/taskgate/model/task"
	"github.com/viant/taskgate/policy"
)

// Service defines the approval store contract.
type Service interface {
	// Submit records the policy outcome of t: an automatic approval, or a new pending request.
	Submit(ctx context.Context, t *task.Task, evaluation policy.Evaluation) (*SubmitResult, error)

	// Respond decides the latest request of taskID exactly once.
	Respond(ctx context.Context, taskID string, approved bool, notes string) (*Response, error)

	// Pending lists pending requests ordered by creation time.
	Pending(ctx context.Context) ([]*Request, error)

	// Status returns the latest request state of taskID.
	Status(ctx context.Context, taskID string) (*TaskStatus, error)
}
