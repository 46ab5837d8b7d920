package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/taskgate/model/task"
)

func TestService_Run(t *testing.T) {
	testCases := []struct {
		name      string
		module    string
		executor  Func
		timeout   time.Duration
		expectOut interface{}
		expectErr error
	}{
		{
			name:   "success",
			module: "docs",
			executor: func(ctx context.Context, t *task.Task) (interface{}, error) {
				return "ok:" + t.Action, nil
			},
			expectOut: "ok:list",
		},
		{
			name:   "executor error",
			module: "docs",
			executor: func(ctx context.Context, t *task.Task) (interface{}, error) {
				return nil, errors.New("boom")
			},
		},
		{
			name:      "unknown module",
			module:    "missing",
			expectErr: ErrExecutorNotFound,
		},
		{
			name:   "panic",
			module: "docs",
			executor: func(ctx context.Context, t *task.Task) (interface{}, error) {
				panic("bad state")
			},
			expectErr: ErrPanic,
		},
		{
			name:    "timeout",
			module:  "docs",
			timeout: 20 * time.Millisecond,
			executor: func(ctx context.Context, t *task.Task) (interface{}, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			},
			expectErr: ErrTimeout,
		},
		{
			name:    "executor ignoring context",
			module:  "docs",
			timeout: 20 * time.Millisecond,
			executor: func(ctx context.Context, t *task.Task) (interface{}, error) {
				time.Sleep(200 * time.Millisecond)
				return "late", nil
			},
			expectErr: ErrTimeout,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			registry := NewRegistry()
			if tc.executor != nil {
				registry.Register("docs", tc.executor)
			}
			var calls int
			svc := New(registry, WithTimeout(tc.timeout), WithListener(func(*task.Task, interface{}, error, time.Duration) { calls++ }))

			out, err := svc.Run(context.Background(), &task.Task{ID: "t1", Module: tc.module, Action: "list"})
			assert.Equal(t, 1, calls)
			switch {
			case tc.expectErr != nil:
				assert.ErrorIs(t, err, tc.expectErr)
			case tc.expectOut == nil:
				assert.Error(t, err)
			default:
				require.NoError(t, err)
				assert.Equal(t, tc.expectOut, out)
			}
		})
	}
}

func TestRegistry_Names(t *testing.T) {
	registry := NewRegistry()
	noop := Func(func(context.Context, *task.Task) (interface{}, error) { return nil, nil })
	registry.Register("reports", noop)
	registry.Register("docs", noop)
	registry.Register("docs", noop)

	assert.Equal(t, []string{"docs", "reports"}, registry.Names())
	assert.NotNil(t, registry.Lookup("docs"))
	assert.Nil(t, registry.Lookup("payments"))
}
