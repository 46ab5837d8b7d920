package orchestrator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/taskgate/model/task"
	"github.com/viant/taskgate/policy"
	"github.com/viant/taskgate/service/approval"
	memApproval "github.com/viant/taskgate/service/approval/memory"
	"github.com/viant/taskgate/service/audit"
	"github.com/viant/taskgate/service/executor"
	"github.com/viant/taskgate/service/notifier"
)

type harness struct {
	svc       *Service
	approvals *approval.Store
	trail     *audit.Trail
	registry  *executor.Registry
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	engine, err := policy.New(nil)
	require.NoError(t, err)
	trail := audit.New(audit.NewMemoryStore())
	approvals := memApproval.New(trail)
	registry := executor.NewRegistry()
	config := DefaultConfig()
	config.PollingInterval = 10 * time.Millisecond
	config.ExecutionTimeout = time.Second
	svc, err := New(engine, approvals, trail, registry, append([]Option{WithConfig(config)}, opts...)...)
	require.NoError(t, err)
	return &harness{svc: svc, approvals: approvals, trail: trail, registry: registry}
}

// step runs one loop iteration and waits until dispatched tasks finish.
func (h *harness) step(t *testing.T) {
	t.Helper()
	h.svc.Tick(context.Background())
	require.Eventually(t, func() bool { return len(h.svc.Running()) == 0 }, time.Second, time.Millisecond)
	h.svc.inflight.Wait()
}

type pauser struct{ paused atomic.Bool }

func (p *pauser) Paused() bool { return p.paused.Load() }

type recordingNotifier struct {
	sent chan notifier.Notification
}

func (r *recordingNotifier) Name() string { return "recording" }

func (r *recordingNotifier) Send(_ context.Context, n notifier.Notification) error {
	r.sent <- n
	return errors.New("sink down")
}

func TestService_PriorityOrder(t *testing.T) {
	engine, err := policy.New(nil)
	require.NoError(t, err)
	trail := audit.New(audit.NewMemoryStore())
	registry := executor.NewRegistry()
	config := DefaultConfig()
	config.Weights = task.Weights{Impact: 1}
	svc, err := New(engine, memApproval.New(trail), trail, registry, WithConfig(config))
	require.NoError(t, err)
	h := &harness{svc: svc, trail: trail, registry: registry}

	var mu sync.Mutex
	var order []string
	registry.Register("docs", executor.Func(func(ctx context.Context, t *task.Task) (interface{}, error) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, t.ID)
		return nil, nil
	}))

	ctx := context.Background()
	for _, item := range []struct {
		id     string
		impact int
	}{{"p3", 3}, {"p7", 7}, {"p5", 5}} {
		result, err := svc.SubmitTask(ctx, &task.Task{ID: item.id, Module: "docs", Action: "list", Category: "document_management", Impact: item.impact})
		require.NoError(t, err)
		assert.Equal(t, task.StatusQueued, result.Status)
		assert.EqualValues(t, item.impact, result.Priority)
	}
	queued := svc.Queued()
	require.Len(t, queued, 3)
	assert.Equal(t, "p7", queued[0].ID)

	for i := 0; i < 3; i++ {
		h.step(t)
	}
	assert.Equal(t, []string{"p7", "p5", "p3"}, order)
	assert.Len(t, svc.History(), 3)
	assert.Equal(t, 3, svc.Stats().Completed)
}

func TestService_SubmitTask(t *testing.T) {
	testCases := []struct {
		name         string
		task         *task.Task
		expectStatus task.Status
		expectReason string
		expectType   string
		expectErr    bool
		violations   int
	}{
		{
			name:         "auto approved category",
			task:         &task.Task{Module: "docs", Action: "list", Category: "document_management"},
			expectStatus: task.StatusQueued,
			expectType:   policy.ApprovalTypeAuto,
		},
		{
			name:         "financial keyword",
			task:         &task.Task{Module: "pay", Action: "transfer", Data: map[string]interface{}{"amount": 500}},
			expectStatus: task.StatusPendingApproval,
			expectReason: "financial",
			expectType:   policy.ApprovalTypeFinancial,
			violations:   1,
		},
		{
			name:         "gated category",
			task:         &task.Task{Module: "hr", Action: "offer", Category: "hiring"},
			expectStatus: task.StatusPendingApproval,
			expectReason: "hiring",
			expectType:   policy.ApprovalTypeCategory,
		},
		{
			name:      "missing module",
			task:      &task.Task{Action: "list"},
			expectErr: true,
		},
		{
			name:      "score out of range",
			task:      &task.Task{Module: "docs", Action: "list", Impact: 11},
			expectErr: true,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			result, err := h.svc.SubmitTask(context.Background(), tc.task)
			if tc.expectErr {
				var validation *task.ValidationError
				assert.True(t, errors.As(err, &validation))
				assert.Empty(t, h.svc.Queued())
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, result.TaskID)
			assert.Equal(t, tc.expectStatus, result.Status)
			assert.Equal(t, tc.expectType, result.ApprovalType)
			assert.Contains(t, result.Reason, tc.expectReason)
			assert.Len(t, result.Violations, tc.violations)
			assert.Empty(t, tc.task.Status, "caller task is not modified")

			stored, err := h.svc.Task(result.TaskID)
			require.NoError(t, err)
			assert.Equal(t, tc.expectStatus, stored.Status)
		})
	}
}

func TestService_EndToEnd(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	docs, err := h.svc.SubmitTask(ctx, &task.Task{Module: "docs", Action: "list", Category: "document_management"})
	require.NoError(t, err)
	assert.Equal(t, task.StatusQueued, docs.Status)
	status, err := h.approvals.Status(ctx, docs.TaskID)
	require.NoError(t, err)
	assert.False(t, status.Found, "no approval request for auto-approved tasks")

	pay, err := h.svc.SubmitTask(ctx, &task.Task{Module: "pay", Action: "transfer", Data: map[string]interface{}{"amount": 500}})
	require.NoError(t, err)
	assert.Equal(t, task.StatusPendingApproval, pay.Status)
	assert.Contains(t, pay.Reason, "financial")

	pending, err := h.approvals.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, pay.TaskID, pending[0].TaskID)
	assert.Len(t, h.svc.Awaiting(), 1)
}

func TestService_DuplicateSubmission(t *testing.T) {
	testCases := []struct {
		name      string
		task      task.Task
		expectErr error
	}{
		{name: "pending approval", task: task.Task{ID: "dup", Module: "pay", Action: "a", Category: "financial"}, expectErr: approval.ErrDuplicatePending},
		{name: "queued", task: task.Task{ID: "dup", Module: "docs", Action: "list", Category: "document_management"}, expectErr: ErrTaskActive},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			first := tc.task
			_, err := h.svc.SubmitTask(context.Background(), &first)
			require.NoError(t, err)
			second := tc.task
			_, err = h.svc.SubmitTask(context.Background(), &second)
			assert.ErrorIs(t, err, tc.expectErr)
		})
	}
}

func TestService_ApprovalDecisions(t *testing.T) {
	testCases := []struct {
		name         string
		approve      bool
		notes        string
		flags        map[string]bool
		expectStatus task.Status
		expectError  string
		expectRuns   int32
	}{
		{
			name:         "approved runs",
			approve:      true,
			flags:        map[string]bool{"dual_authorization": true},
			expectStatus: task.StatusCompleted,
			expectRuns:   1,
		},
		{
			name:         "approved without required flag fails at dispatch",
			approve:      true,
			expectStatus: task.StatusFailed,
			expectError:  "dual authorization",
		},
		{
			name:         "rejected with notes",
			approve:      false,
			notes:        "too risky",
			expectStatus: task.StatusRejected,
			expectError:  "too risky",
		},
		{
			name:         "rejected without notes",
			approve:      false,
			expectStatus: task.StatusRejected,
			expectError:  "rejected",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			var runs atomic.Int32
			h.registry.Register("pay", executor.Func(func(ctx context.Context, t *task.Task) (interface{}, error) {
				runs.Add(1)
				return "paid", nil
			}))
			ctx := context.Background()
			result, err := h.svc.SubmitTask(ctx, &task.Task{ID: "t1", Module: "pay", Action: "settle-invoice", Category: "financial", Flags: tc.flags})
			require.NoError(t, err)
			require.Equal(t, task.StatusPendingApproval, result.Status)

			h.step(t)
			assert.Len(t, h.svc.Awaiting(), 1, "undecided tasks stay tracked")

			_, err = h.approvals.Respond(ctx, "t1", tc.approve, tc.notes)
			require.NoError(t, err)
			h.step(t)

			stored, err := h.svc.Task("t1")
			require.NoError(t, err)
			assert.Equal(t, tc.expectStatus, stored.Status)
			assert.Contains(t, stored.Error, tc.expectError)
			assert.NotNil(t, stored.DecidedAt)
			assert.Equal(t, tc.expectRuns, runs.Load())
			assert.Empty(t, h.svc.Awaiting())
			if tc.expectStatus == task.StatusFailed {
				assert.Len(t, h.svc.DeadLetters(), 1)
			}
		})
	}
}

func TestService_DeadLetterRoundTrip(t *testing.T) {
	h := newHarness(t)
	var calls atomic.Int32
	h.registry.Register("docs", executor.Func(func(ctx context.Context, t *task.Task) (interface{}, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("disk full")
		}
		return "ok", nil
	}))
	ctx := context.Background()
	_, err := h.svc.SubmitTask(ctx, &task.Task{ID: "t1", Module: "docs", Action: "list", Category: "document_management"})
	require.NoError(t, err)
	h.step(t)

	dead := h.svc.DeadLetters()
	require.Len(t, dead, 1)
	assert.Equal(t, task.StatusFailed, dead[0].Status)
	assert.Equal(t, "disk full", dead[0].Error)

	results, err := h.svc.RetryDeadLetterQueue(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, task.StatusQueued, results[0].Status)
	assert.Empty(t, h.svc.DeadLetters())

	retried, err := h.svc.Task("t1")
	require.NoError(t, err)
	assert.Equal(t, 1, retried.RetryCount)
	assert.Empty(t, retried.Error)

	h.step(t)
	done, err := h.svc.Task("t1")
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, done.Status)
	assert.Equal(t, "ok", done.Result)

	entries, err := h.trail.TodayLogs(ctx)
	require.NoError(t, err)
	var phases []string
	for _, entry := range entries {
		if entry.Type != audit.TypeExecution {
			continue
		}
		payload := &audit.ExecutionPayload{}
		require.NoError(t, entry.Decode(payload))
		phases = append(phases, payload.Status)
	}
	assert.Equal(t, []string{audit.ExecutionStarted, audit.ExecutionFailed, audit.ExecutionStarted, audit.ExecutionCompleted}, phases)
	stats := h.svc.Stats()
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Retried)
}

func TestService_ExecutorFailures(t *testing.T) {
	testCases := []struct {
		name        string
		module      string
		executor    executor.Func
		expectError string
	}{
		{name: "missing executor", module: "ghost", expectError: "executor not found"},
		{
			name:   "panic",
			module: "docs",
			executor: func(ctx context.Context, t *task.Task) (interface{}, error) {
				panic("nil map")
			},
			expectError: "panicked",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			if tc.executor != nil {
				h.registry.Register(tc.module, tc.executor)
			}
			result, err := h.svc.SubmitTask(context.Background(), &task.Task{Module: tc.module, Action: "list", Category: "document_management"})
			require.NoError(t, err)
			h.step(t)

			stored, err := h.svc.Task(result.TaskID)
			require.NoError(t, err)
			assert.Equal(t, task.StatusFailed, stored.Status)
			assert.Contains(t, stored.Error, tc.expectError)
			assert.NotContains(t, stored.Error, "goroutine")
			assert.Len(t, h.svc.DeadLetters(), 1)
		})
	}
}

func TestService_Pause(t *testing.T) {
	p := &pauser{}
	p.paused.Store(true)
	h := newHarness(t, WithPauser(p))
	h.registry.Register("docs", executor.Func(func(ctx context.Context, t *task.Task) (interface{}, error) { return nil, nil }))
	_, err := h.svc.SubmitTask(context.Background(), &task.Task{Module: "docs", Action: "list", Category: "document_management"})
	require.NoError(t, err)

	h.step(t)
	assert.Len(t, h.svc.Queued(), 1)
	assert.True(t, h.svc.Stats().Paused)

	p.paused.Store(false)
	h.step(t)
	assert.Empty(t, h.svc.Queued())
	assert.Len(t, h.svc.History(), 1)
}

func TestService_NotifiesPendingTasks(t *testing.T) {
	sink := &recordingNotifier{sent: make(chan notifier.Notification, 1)}
	h := newHarness(t, WithNotifier(sink))
	result, err := h.svc.SubmitTask(context.Background(), &task.Task{Module: "pay", Action: "refund"})
	require.NoError(t, err)
	assert.Equal(t, task.StatusPendingApproval, result.Status)

	select {
	case n := <-sink.sent:
		assert.Equal(t, result.TaskID, n.TaskID)
		assert.Equal(t, result.RequestID, n.Meta["requestId"])
		assert.Equal(t, notifier.LevelWarning, n.Level)
	case <-time.After(time.Second):
		t.Fatal("notification not sent")
	}
}

func TestService_StartShutdown(t *testing.T) {
	h := newHarness(t)
	h.registry.Register("docs", executor.Func(func(ctx context.Context, t *task.Task) (interface{}, error) { return "ok", nil }))
	done := make(chan error, 1)
	go func() { done <- h.svc.Start(context.Background()) }()

	_, err := h.svc.SubmitTask(context.Background(), &task.Task{Module: "docs", Action: "list", Category: "document_management"})
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return len(h.svc.History()) == 1 }, time.Second, 5*time.Millisecond)

	h.svc.Shutdown()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
}

func TestService_HistoryBounded(t *testing.T) {
	engine, err := policy.New(nil)
	require.NoError(t, err)
	trail := audit.New(audit.NewMemoryStore())
	registry := executor.NewRegistry()
	registry.Register("docs", executor.Func(func(ctx context.Context, t *task.Task) (interface{}, error) { return nil, nil }))
	config := DefaultConfig()
	config.Workers = 5
	config.CompletedLimit = 2
	svc, err := New(engine, memApproval.New(trail), trail, registry, WithConfig(config))
	require.NoError(t, err)
	h := &harness{svc: svc, trail: trail, registry: registry}

	for i := 0; i < 4; i++ {
		_, err := svc.SubmitTask(context.Background(), &task.Task{Module: "docs", Action: "list", Category: "document_management"})
		require.NoError(t, err)
	}
	h.step(t)
	assert.Len(t, svc.History(), 2)
	assert.Equal(t, 4, svc.Stats().Completed)
}
