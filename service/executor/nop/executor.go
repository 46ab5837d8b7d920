// Package nop provides an executor that does nothing.
package nop

import (
	"context"

	"github.com/viant/taskgate/model/task"
)

// Module is the registry name of the nop executor.
const Module = "nop"

// Executor completes every task immediately without output.
type Executor struct{}

// New creates a nop executor.
func New() *Executor {
	return &Executor{}
}

// Execute implements executor.Executor.
func (e *Executor) Execute(ctx context.Context, _ *task.Task) (interface{}, error) {
	return nil, ctx.Err()
}
