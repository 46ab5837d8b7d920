package executor

import (
	"context"
	"sort"
	"sync"

	"github.com/viant/taskgate/model/task"
)

// Executor runs a task on behalf of a module.
type Executor interface {
	Execute(ctx context.Context, t *task.Task) (interface{}, error)
}

// Func adapts a function to Executor.
type Func func(ctx context.Context, t *task.Task) (interface{}, error)

// Execute calls f.
func (f Func) Execute(ctx context.Context, t *task.Task) (interface{}, error) {
	return f(ctx, t)
}

// Registry maps module names to executors
type Registry struct {
	executors map[string]Executor
	mux       sync.RWMutex
}

// Lookup returns the executor registered for module
func (r *Registry) Lookup(module string) Executor {
	r.mux.RLock()
	defer r.mux.RUnlock()
	return r.executors[module]
}

// Register registers (or replaces) the executor of module
func (r *Registry) Register(module string, executor Executor) {
	r.mux.Lock()
	defer r.mux.Unlock()
	r.executors[module] = executor
}

// Names returns registered module names, sorted.
func (r *Registry) Names() []string {
	r.mux.RLock()
	defer r.mux.RUnlock()
	ret := make([]string, 0, len(r.executors))
	for name := range r.executors {
		ret = append(ret, name)
	}
	sort.Strings(ret)
	return ret
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{executors: make(map[string]Executor)}
}
