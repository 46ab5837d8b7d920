package executor

import (
	"errors"
	"fmt"
)

var (
	ErrExecutorNotFound = errors.New("executor not found for module")
	ErrTimeout          = errors.New("execution timed out")
	ErrPanic            = errors.New("executor panicked")
	ErrUnknownAction    = errors.New("unknown action")
)

// UnknownAction reports an action the module does not implement.
func UnknownAction(module, action string) error {
	return fmt.Errorf("%w: %s/%s", ErrUnknownAction, module, action)
}
