package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/taskgate/internal/idgen"
	"github.com/viant/taskgate/model/task"
	"github.com/viant/taskgate/policy"
	"github.com/viant/taskgate/service/approval"
	"github.com/viant/taskgate/service/approval/postgres"
	"github.com/viant/taskgate/service/audit"
	"github.com/viant/taskgate/service/dao"
)

// setupStore runs migrations and returns a Store. Skipped unless TASKGATE_TEST_DSN is set.
func setupStore(t *testing.T) *postgres.Store {
	t.Helper()
	dsn := os.Getenv("TASKGATE_TEST_DSN")
	if dsn == "" {
		t.Skip("requires TASKGATE_TEST_DSN")
	}
	ctx := context.Background()
	require.NoError(t, postgres.RunMigrations(ctx, dsn))
	pool, err := postgres.NewPool(ctx, postgres.PoolConfig{DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return postgres.NewStore(pool)
}

func TestStore_RoundTrip(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	taskID := idgen.New()

	svc, err := approval.New(ctx, store, audit.New(audit.NewMemoryStore()))
	require.NoError(t, err)

	submitted := &task.Task{ID: taskID, Module: "payments", Action: "transfer", Title: "pay"}
	result, err := svc.Submit(ctx, submitted, policy.Evaluation{RequiresApproval: true, Reason: "financial safeguard: matched keyword 'pay'", ApprovalType: policy.ApprovalTypeFinancial})
	require.NoError(t, err)
	require.True(t, result.Pending)

	byTask, err := store.List(ctx, dao.NewParameter(dao.ParamTaskID, taskID))
	require.NoError(t, err)
	require.Len(t, byTask, 1)
	assert.Equal(t, approval.StatusPending, byTask[0].Status)
	require.NotNil(t, byTask[0].Task)
	assert.Equal(t, "transfer", byTask[0].Task.Action)

	_, err = svc.Respond(ctx, taskID, true, "ok")
	require.NoError(t, err)

	loaded, err := store.Load(ctx, result.RequestID)
	require.NoError(t, err)
	assert.Equal(t, approval.StatusApproved, loaded.Status)
	assert.Equal(t, "ok", loaded.Notes)
	assert.NotNil(t, loaded.DecidedAt)

	require.NoError(t, store.Delete(ctx, result.RequestID))
	_, err = store.Load(ctx, result.RequestID)
	assert.ErrorIs(t, err, dao.ErrNotFound)
}
