// Package printer provides an executor writing task messages to a writer.
package printer

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/viant/taskgate/model/task"
	"github.com/viant/taskgate/service/executor"
)

// Module is the registry name of the printer executor.
const Module = "printer"

// Input is read from task data.
type Input struct {
	Message string `json:"message"`
}

// Output reports what was printed.
type Output struct {
	Printed int `json:"printed"`
}

// Executor prints the message of "print" tasks.
type Executor struct {
	w   io.Writer
	mux sync.Mutex
}

// New creates a printer; nil writes to standard output.
func New(w io.Writer) *Executor {
	if w == nil {
		w = os.Stdout
	}
	return &Executor{w: w}
}

// Execute implements executor.Executor.
func (e *Executor) Execute(_ context.Context, t *task.Task) (interface{}, error) {
	switch strings.ToLower(t.Action) {
	case "print":
	default:
		return nil, executor.UnknownAction(Module, t.Action)
	}
	input := &Input{}
	if err := executor.DecodeData(t, input); err != nil {
		return nil, err
	}
	if input.Message == "" {
		input.Message = t.Name()
	}
	e.mux.Lock()
	defer e.mux.Unlock()
	n, err := fmt.Fprintln(e.w, input.Message)
	if err != nil {
		return nil, err
	}
	return &Output{Printed: n}, nil
}
