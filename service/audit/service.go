package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/viant/taskgate/internal/clock"
	"github.com/viant/taskgate/internal/idgen"
	"github.com/viant/taskgate/internal/logger"
)

// Service is the append-only audit trail.
type Service interface {
	Log(ctx context.Context, entry *Entry) (*Entry, error)
	LogProposal(ctx context.Context, payload *ProposalPayload) (*Entry, error)
	LogApproval(ctx context.Context, payload *ApprovalPayload) (*Entry, error)
	LogExecution(ctx context.Context, payload *ExecutionPayload) (*Entry, error)
	LogSystem(ctx context.Context, payload *SystemPayload) (*Entry, error)
	TodayLogs(ctx context.Context) ([]*Entry, error)
	Logs(ctx context.Context, day string) ([]*Entry, error)
	Since(ctx context.Context, since time.Time) ([]*Entry, error)
	DailySummary(ctx context.Context) (*Summary, error)
	Verify(ctx context.Context, day string) error
}

// DefaultRecentActions is the number of entries reported in Summary.RecentActions.
const DefaultRecentActions = 10

// Option customises a Trail.
type Option func(*Trail)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Trail) { t.logger = l }
}

// WithRecentActions sets the number of recent entries in daily summaries.
func WithRecentActions(n int) Option {
	return func(t *Trail) { t.recent = n }
}

// Trail implements Service over a PartitionStore. Appends are serialized.
type Trail struct {
	store  PartitionStore
	logger *slog.Logger
	recent int

	mu       sync.Mutex
	day      string
	seq      int64
	lastHash string
}

// New creates a Trail.
func New(store PartitionStore, opts ...Option) *Trail {
	ret := &Trail{store: store, recent: DefaultRecentActions}
	for _, opt := range opts {
		opt(ret)
	}
	ret.logger = logger.OrDefault(ret.logger)
	return ret
}

// maxChainRetries bounds how often Log re-reads the partition tail after
// another writer appended first.
const maxChainRetries = 5

// Log assigns identity, timestamp and chain fields, appends the entry and
// returns a copy of what was stored. The payload must be valid JSON; it is
// hashed and stored in the compact, HTML-escaped form encoding/json writes.
func (t *Trail) Log(ctx context.Context, entry *Entry) (*Entry, error) {
	if entry == nil || entry.Type == "" {
		return nil, fmt.Errorf("audit: entry type is required")
	}
	stored := entry.Clone()
	if len(stored.Payload) > 0 {
		compact := bytes.Buffer{}
		if err := json.Compact(&compact, stored.Payload); err != nil {
			return nil, fmt.Errorf("audit: invalid payload: %w", err)
		}
		escaped := bytes.Buffer{}
		json.HTMLEscape(&escaped, compact.Bytes())
		stored.Payload = escaped.Bytes()
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	now := clock.Now()
	day := clock.Day(now)
	if day != t.day {
		if err := t.resume(ctx, day); err != nil {
			return nil, err
		}
	}
	stored.ID = idgen.New()
	stored.Timestamp = now
	for attempt := 0; ; attempt++ {
		stored.Seq = t.seq + 1
		stored.PrevHash = t.lastHash
		stored.Hash = chainHash(stored.PrevHash, stored)
		err := t.store.Append(ctx, day, stored)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrChainConflict) || attempt >= maxChainRetries {
			return nil, fmt.Errorf("audit append %s: %w", day, err)
		}
		t.logger.Debug("audit tail moved, resuming", "day", day, "seq", stored.Seq)
		if err := t.resume(ctx, day); err != nil {
			return nil, err
		}
	}
	t.seq = stored.Seq
	t.lastHash = stored.Hash
	t.logger.Debug("audit entry", "type", stored.Type, "task_id", stored.TaskID, "seq", stored.Seq)
	return stored.Clone(), nil
}

// resume loads the chain tail of day, so restarts continue the sequence.
func (t *Trail) resume(ctx context.Context, day string) error {
	entries, err := t.store.Read(ctx, day)
	if err != nil {
		return fmt.Errorf("audit read %s: %w", day, err)
	}
	t.day, t.seq, t.lastHash = day, 0, ""
	if n := len(entries); n > 0 {
		t.seq = entries[n-1].Seq
		t.lastHash = entries[n-1].Hash
	}
	return nil
}

func (t *Trail) logPayload(ctx context.Context, kind EntryType, taskID string, payload interface{}) (*Entry, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("audit: marshal %s payload: %w", kind, err)
	}
	return t.Log(ctx, &Entry{Type: kind, TaskID: taskID, Payload: data})
}

// LogProposal records a task gated behind approval.
func (t *Trail) LogProposal(ctx context.Context, payload *ProposalPayload) (*Entry, error) {
	return t.logPayload(ctx, TypeProposal, payload.TaskID, payload)
}

// LogApproval records an approval decision.
func (t *Trail) LogApproval(ctx context.Context, payload *ApprovalPayload) (*Entry, error) {
	return t.logPayload(ctx, TypeApproval, payload.TaskID, payload)
}

// LogExecution records an execution phase.
func (t *Trail) LogExecution(ctx context.Context, payload *ExecutionPayload) (*Entry, error) {
	return t.logPayload(ctx, TypeExecution, payload.TaskID, payload)
}

// LogSystem records a system event.
func (t *Trail) LogSystem(ctx context.Context, payload *SystemPayload) (*Entry, error) {
	return t.logPayload(ctx, TypeSystem, "", payload)
}

// TodayLogs returns the current UTC day's entries.
func (t *Trail) TodayLogs(ctx context.Context) ([]*Entry, error) {
	return t.store.Read(ctx, clock.Today())
}

// Logs returns the entries of day (2006-01-02).
func (t *Trail) Logs(ctx context.Context, day string) ([]*Entry, error) {
	if !ValidDay(day) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDay, day)
	}
	return t.store.Read(ctx, day)
}

// Since returns entries with a timestamp at or after since, across day partitions.
func (t *Trail) Since(ctx context.Context, since time.Time) ([]*Entry, error) {
	days, err := t.store.Days(ctx)
	if err != nil {
		return nil, err
	}
	first := clock.Day(since)
	var ret []*Entry
	for _, day := range days {
		if day < first {
			continue
		}
		entries, err := t.store.Read(ctx, day)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if !entry.Timestamp.Before(since) {
				ret = append(ret, entry)
			}
		}
	}
	return ret, nil
}

// DailySummary summarizes today's entries.
func (t *Trail) DailySummary(ctx context.Context) (*Summary, error) {
	entries, err := t.TodayLogs(ctx)
	if err != nil {
		return nil, err
	}
	summary := Summarize(entries, t.recent)
	summary.Date = clock.Today()
	return summary, nil
}

// Verify recomputes the hash chain of day.
func (t *Trail) Verify(ctx context.Context, day string) error {
	entries, err := t.Logs(ctx, day)
	if err != nil {
		return err
	}
	prev := ""
	for i, entry := range entries {
		if entry.Seq != int64(i+1) {
			return fmt.Errorf("%w: day %s expected seq %d, got %d", ErrTampered, day, i+1, entry.Seq)
		}
		if entry.PrevHash != prev || chainHash(prev, entry) != entry.Hash {
			return fmt.Errorf("%w: day %s seq %d", ErrTampered, day, entry.Seq)
		}
		prev = entry.Hash
	}
	return nil
}

var _ Service = (*Trail)(nil)
