package fs

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/taskgate/internal/clock"
	"github.com/viant/taskgate/service/audit"
)

func TestStore_AppendRead(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := New(ctx, dir)
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		payload, _ := json.Marshal(audit.SystemPayload{Event: "tick"})
		require.NoError(t, store.Append(ctx, "2026-01-02", &audit.Entry{ID: "e", Seq: int64(i), Type: audit.TypeSystem, Payload: payload}))
	}
	entries, err := store.Read(ctx, "2026-01-02")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, int64(3), entries[2].Seq)

	empty, err := store.Read(ctx, "2026-01-01")
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, store.Append(ctx, "2026-01-03", &audit.Entry{ID: "f", Seq: 1, Type: audit.TypeSystem}))
	assert.ErrorIs(t, store.Append(ctx, "2026-01-02", &audit.Entry{ID: "g"}), audit.ErrPartitionClosed)

	reopened, err := New(ctx, dir)
	require.NoError(t, err)
	days, err := reopened.Days(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-01-02", "2026-01-03"}, days)
	assert.ErrorIs(t, reopened.Append(ctx, "2026-01-02", &audit.Entry{ID: "h"}), audit.ErrPartitionClosed)

	old, err := reopened.Read(ctx, "2026-01-02")
	require.NoError(t, err)
	assert.Len(t, old, 3)
}

func TestStore_TrailSurvivesRestart(t *testing.T) {
	now := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	prev := clock.NowFunc
	clock.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { clock.NowFunc = prev })

	ctx := context.Background()
	dir := t.TempDir()
	store, err := New(ctx, dir)
	require.NoError(t, err)
	trail := audit.New(store)
	_, err = trail.LogProposal(ctx, &audit.ProposalPayload{TaskID: "t1"})
	require.NoError(t, err)

	store2, err := New(ctx, dir)
	require.NoError(t, err)
	trail2 := audit.New(store2)
	entry, err := trail2.LogApproval(ctx, &audit.ApprovalPayload{TaskID: "t1", Decision: audit.DecisionApproved, Approved: true})
	require.NoError(t, err)
	assert.Equal(t, int64(2), entry.Seq)
	assert.NoError(t, trail2.Verify(ctx, "2026-02-10"))

	summary, err := trail2.DailySummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2026-02-10", summary.Date)
	assert.Equal(t, 0, summary.PendingApprovals)
	assert.Equal(t, 2, summary.TotalActions)
}

func TestStore_SharedLocation(t *testing.T) {
	now := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	prev := clock.NowFunc
	clock.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { clock.NowFunc = prev })

	ctx := context.Background()
	dir := t.TempDir()
	serveStore, err := New(ctx, dir)
	require.NoError(t, err)
	cliStore, err := New(ctx, dir)
	require.NoError(t, err)
	serve := audit.New(serveStore)
	cli := audit.New(cliStore)

	_, err = serve.LogSystem(ctx, &audit.SystemPayload{Event: "serve-1"})
	require.NoError(t, err)
	decision, err := cli.LogApproval(ctx, &audit.ApprovalPayload{TaskID: "t1", Decision: audit.DecisionApproved, Approved: true})
	require.NoError(t, err)
	assert.Equal(t, int64(2), decision.Seq)
	last, err := serve.LogSystem(ctx, &audit.SystemPayload{Event: "serve-2"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), last.Seq)
	assert.Equal(t, decision.Hash, last.PrevHash)

	reopened, err := New(ctx, dir)
	require.NoError(t, err)
	entries, err := reopened.Read(ctx, "2026-03-05")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, []audit.EntryType{audit.TypeSystem, audit.TypeApproval, audit.TypeSystem},
		[]audit.EntryType{entries[0].Type, entries[1].Type, entries[2].Type})
	assert.NoError(t, audit.New(reopened).Verify(ctx, "2026-03-05"))

	fromServe, err := serve.TodayLogs(ctx)
	require.NoError(t, err)
	assert.Len(t, fromServe, 3)
}

func TestStore_Append_ChainConflict(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	first, err := New(ctx, dir)
	require.NoError(t, err)
	second, err := New(ctx, dir)
	require.NoError(t, err)

	require.NoError(t, first.Append(ctx, "2026-03-06", &audit.Entry{ID: "a", Seq: 1, Hash: "h1"}))
	assert.ErrorIs(t, second.Append(ctx, "2026-03-06", &audit.Entry{ID: "b", Seq: 1, Hash: "h2"}), audit.ErrChainConflict)
	require.NoError(t, second.Append(ctx, "2026-03-06", &audit.Entry{ID: "b", Seq: 2, PrevHash: "h1", Hash: "h2"}))

	entries, err := first.Read(ctx, "2026-03-06")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestStore_IndentedPayloadVerifies(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := New(ctx, dir)
	require.NoError(t, err)
	trail := audit.New(store)
	_, err = trail.Log(ctx, &audit.Entry{Type: audit.TypeSystem, Payload: json.RawMessage(`{"event": "x", "message": "a & b"}`)})
	require.NoError(t, err)
	require.NoError(t, trail.Verify(ctx, clock.Today()))

	reopened, err := New(ctx, dir)
	require.NoError(t, err)
	assert.NoError(t, audit.New(reopened).Verify(ctx, clock.Today()))
}
