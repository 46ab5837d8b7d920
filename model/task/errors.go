package task

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned when a lifecycle method is called from a state that does not allow it.
var ErrInvalidTransition = errors.New("task: invalid status transition")

// ValidationError describes a malformed task. It is returned by Validate and
// propagated unchanged from submission.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid task: %s %s", e.Field, e.Message)
}
