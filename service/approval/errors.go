package approval

import "errors"

var (
	// ErrDuplicatePending is returned by Submit when the task already has a pending request.
	ErrDuplicatePending = errors.New("approval: task already has a pending request")

	// ErrNotFound is returned by Respond when the task has no request.
	ErrNotFound = errors.New("approval: request not found")

	// ErrAlreadyDecided is returned by Respond when the latest request is no longer pending.
	ErrAlreadyDecided = errors.New("approval: request already decided")
)
