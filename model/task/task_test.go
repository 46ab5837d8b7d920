package task

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTask_Validate(t *testing.T) {
	testCases := []struct {
		name      string
		task      Task
		wantField string
	}{
		{name: "valid defaults", task: Task{Module: "docs", Action: "list"}},
		{name: "missing module", task: Task{Action: "list"}, wantField: "module"},
		{name: "missing action", task: Task{Module: "docs"}, wantField: "action"},
		{name: "impact too high", task: Task{Module: "docs", Action: "list", Impact: 11}, wantField: "impact"},
		{name: "risk negative", task: Task{Module: "docs", Action: "list", Risk: -1}, wantField: "risk"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			aTask := tc.task
			aTask.Normalize()
			err := aTask.Validate()
			if tc.wantField == "" {
				assert.NoError(t, err)
				assert.Equal(t, DefaultScore, aTask.Impact)
				return
			}
			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tc.wantField, vErr.Field)
		})
	}
}

func TestWeights_Score(t *testing.T) {
	testCases := []struct {
		name   string
		task   Task
		expect float64
	}{
		{name: "defaults", task: Task{Impact: 5, Urgency: 5, Effort: 5, Risk: 5}, expect: 2.0},
		{name: "high impact", task: Task{Impact: 10, Urgency: 10, Effort: 1, Risk: 1}, expect: 6.7},
		{name: "costly", task: Task{Impact: 1, Urgency: 1, Effort: 10, Risk: 10}, expect: -2.3},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.expect, DefaultWeights().Score(&tc.task), 1e-9)
		})
	}
}

func TestTask_Lifecycle(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("happy path", func(t *testing.T) {
		aTask := &Task{Module: "docs", Action: "list"}
		require.NoError(t, aTask.Enqueue(now))
		require.NoError(t, aTask.Start(now))
		require.NoError(t, aTask.Complete(now, "ok"))
		assert.Equal(t, StatusCompleted, aTask.Status)
		assert.Equal(t, "ok", aTask.Result)
		assert.True(t, aTask.Status.Terminal())
	})

	t.Run("approval then reject", func(t *testing.T) {
		aTask := &Task{Module: "pay", Action: "transfer"}
		require.NoError(t, aTask.Hold())
		require.NoError(t, aTask.Reject(now, ""))
		assert.Equal(t, StatusRejected, aTask.Status)
		assert.Equal(t, "rejected", aTask.Error)
		assert.ErrorIs(t, aTask.Approve(now), ErrInvalidTransition)
	})

	t.Run("cannot start held task", func(t *testing.T) {
		aTask := &Task{Module: "pay", Action: "transfer"}
		require.NoError(t, aTask.Hold())
		assert.ErrorIs(t, aTask.Start(now), ErrInvalidTransition)
		require.NoError(t, aTask.Approve(now))
		assert.NoError(t, aTask.Start(now))
	})

	t.Run("requeue failed", func(t *testing.T) {
		aTask := &Task{Module: "docs", Action: "list"}
		assert.ErrorIs(t, aTask.Requeue(), ErrInvalidTransition)
		require.NoError(t, aTask.Enqueue(now))
		require.NoError(t, aTask.Start(now))
		require.NoError(t, aTask.Fail(now, errors.New("boom")))
		assert.Equal(t, "boom", aTask.Error)
		require.NoError(t, aTask.Requeue())
		assert.Equal(t, 1, aTask.RetryCount)
		assert.Equal(t, Status(""), aTask.Status)
		assert.Empty(t, aTask.Error)
	})
}

func TestTask_Clone(t *testing.T) {
	aTask := &Task{Module: "docs", Data: map[string]interface{}{"a": 1}, Flags: map[string]bool{"x": true}}
	clone := aTask.Clone()
	clone.Data["a"] = 2
	clone.Flags["x"] = false
	assert.Equal(t, 1, aTask.Data["a"])
	assert.True(t, aTask.HasFlag("x"))
}
