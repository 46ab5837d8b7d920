package orchestrator

import "errors"

var (
	// ErrTaskActive is returned by SubmitTask when a task with the same id is queued or running.
	ErrTaskActive = errors.New("orchestrator: task is already queued or running")

	// ErrTaskNotFound is returned by Task for unknown ids.
	ErrTaskNotFound = errors.New("orchestrator: task not found")

	// ErrAlreadyStarted is returned by a second Start call.
	ErrAlreadyStarted = errors.New("orchestrator: already started")
)
