package taskgate_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/taskgate"
	"github.com/viant/taskgate/internal/clock"
	"github.com/viant/taskgate/model/task"
	"github.com/viant/taskgate/service/approval"
	"github.com/viant/taskgate/service/executor"
	"github.com/viant/taskgate/service/notifier"
)

type recorder struct {
	mux  sync.Mutex
	sent []notifier.Notification
}

func (r *recorder) Name() string { return "recorder" }

func (r *recorder) Send(_ context.Context, n notifier.Notification) error {
	r.mux.Lock()
	defer r.mux.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

func (r *recorder) titles() []string {
	r.mux.Lock()
	defer r.mux.Unlock()
	var ret []string
	for _, n := range r.sent {
		ret = append(ret, n.Title)
	}
	return ret
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *taskgate.Config {
	cfg := taskgate.DefaultConfig()
	cfg.Orchestrator.PollingInterval = 10 * time.Millisecond
	cfg.Anomaly.Interval = time.Hour
	cfg.Notifier.Providers = nil
	return cfg
}

func TestService_EndToEnd(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := &recorder{}
	var billed sync.WaitGroup
	billed.Add(1)
	srv, err := taskgate.New(ctx, testConfig(),
		taskgate.WithLogger(quietLogger()),
		taskgate.WithNotifier(sink),
		taskgate.WithExecutor("billing", executor.Func(func(ctx context.Context, t *task.Task) (interface{}, error) {
			defer billed.Done()
			return map[string]interface{}{"refunded": t.Data["amount"]}, nil
		})))
	require.NoError(t, err)
	assert.Equal(t, []string{"billing", "nop", "printer", "storage"}, srv.Executors().Names())

	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	report, err := srv.Orchestrator().SubmitTask(ctx, &task.Task{Module: "nop", Action: "ping", Category: "monitoring"})
	require.NoError(t, err)
	assert.Equal(t, task.StatusQueued, report.Status)

	refund, err := srv.Orchestrator().SubmitTask(ctx, &task.Task{
		Module:   "billing",
		Action:   "refund",
		Category: "financial",
		Data:     map[string]interface{}{"amount": 42},
		Flags:    map[string]bool{"dual_authorization": true},
	})
	require.NoError(t, err)
	assert.Equal(t, task.StatusPendingApproval, refund.Status)
	require.Eventually(t, func() bool { return len(sink.titles()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Contains(t, sink.titles()[0], "Approval required")

	_, err = srv.Approvals().Respond(ctx, refund.TaskID, true, "go ahead")
	require.NoError(t, err)
	billed.Wait()
	require.Eventually(t, func() bool { return srv.Stats().Completed == 2 }, time.Second, 5*time.Millisecond)

	completed, err := srv.Orchestrator().Task(refund.TaskID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, completed.Status)

	summary, err := srv.Auditor().DailySummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Proposals)
	assert.Equal(t, 2, summary.Approvals)
	assert.Equal(t, 2, summary.Completed)
	require.NoError(t, srv.Auditor().Verify(ctx, clock.Today()))

	require.NoError(t, srv.Shutdown(ctx))
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Start did not return after Shutdown")
	}
}

func TestService_FileSystemBackend(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.Storage.Backend = taskgate.BackendFS
	cfg.Storage.BaseURL = t.TempDir()
	cfg.Notifier.Outbox = taskgate.BackendFS

	first, err := taskgate.New(ctx, cfg, taskgate.WithLogger(quietLogger()))
	require.NoError(t, err)
	result, err := first.Orchestrator().SubmitTask(ctx, &task.Task{ID: "hire-1", Module: "hr", Action: "offer", Category: "hiring"})
	require.NoError(t, err)
	require.Equal(t, task.StatusPendingApproval, result.Status)
	require.NoError(t, first.Shutdown(ctx))

	second, err := taskgate.New(ctx, cfg, taskgate.WithLogger(quietLogger()))
	require.NoError(t, err)
	defer func() { _ = second.Shutdown(ctx) }()

	pending, err := second.Approvals().Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "hire-1", pending[0].TaskID)

	_, err = second.Approvals().Respond(ctx, "hire-1", false, "")
	require.NoError(t, err)
	status, err := second.Approvals().Status(ctx, "hire-1")
	require.NoError(t, err)
	assert.Equal(t, approval.StatusRejected, status.Status)

	entries, err := second.Auditor().TodayLogs(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	require.NoError(t, second.Auditor().Verify(ctx, clock.Today()))
}

func TestService_Handler(t *testing.T) {
	ctx := context.Background()
	srv, err := taskgate.New(ctx, testConfig(), taskgate.WithLogger(quietLogger()))
	require.NoError(t, err)
	defer func() { _ = srv.Shutdown(ctx) }()

	server := httptest.NewServer(srv.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/v1/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Storage.Backend = "sqlite"
	_, err := taskgate.New(context.Background(), cfg, taskgate.WithLogger(quietLogger()))
	assert.Error(t, err)
}
