package task

import (
	"time"
)

// Status represents a task lifecycle state.
type Status string

const (
	StatusQueued          Status = "queued"
	StatusPendingApproval Status = "pending_approval"
	StatusRunning         Status = "running"
	StatusCompleted       Status = "completed"
	StatusFailed          Status = "failed"
	StatusRejected        Status = "rejected"
)

// DefaultScore is assigned to impact/urgency/effort/risk when left unset.
const DefaultScore = 5

const (
	minScore = 1
	maxScore = 10
)

// Task is a unit of work submitted for admission and execution.
type Task struct {
	ID          string                 `json:"id" yaml:"id"`
	Module      string                 `json:"module" yaml:"module"`
	Action      string                 `json:"action" yaml:"action"`
	Category    string                 `json:"category,omitempty" yaml:"category,omitempty"`
	Title       string                 `json:"title,omitempty" yaml:"title,omitempty"`
	Description string                 `json:"description,omitempty" yaml:"description,omitempty"`
	Data        map[string]interface{} `json:"data,omitempty" yaml:"data,omitempty"`
	Impact      int                    `json:"impact,omitempty" yaml:"impact,omitempty"`
	Urgency     int                    `json:"urgency,omitempty" yaml:"urgency,omitempty"`
	Effort      int                    `json:"effort,omitempty" yaml:"effort,omitempty"`
	Risk        int                    `json:"risk,omitempty" yaml:"risk,omitempty"`
	Flags       map[string]bool        `json:"flags,omitempty" yaml:"flags,omitempty"`

	Priority    float64     `json:"priority"`
	Status      Status      `json:"status,omitempty"`
	SubmittedAt time.Time   `json:"submittedAt"`
	QueuedAt    *time.Time  `json:"queuedAt,omitempty"`
	StartedAt   *time.Time  `json:"startedAt,omitempty"`
	CompletedAt *time.Time  `json:"completedAt,omitempty"`
	DecidedAt   *time.Time  `json:"decidedAt,omitempty"`
	Error       string      `json:"error,omitempty"`
	Result      interface{} `json:"result,omitempty"`
	RetryCount  int         `json:"retryCount"`
}

// Name returns the best human readable label of the task.
func (t *Task) Name() string {
	if t.Title != "" {
		return t.Title
	}
	if t.Action == "" {
		return t.Module
	}
	return t.Module + "." + t.Action
}

// HasFlag reports whether the named flag is set.
func (t *Task) HasFlag(name string) bool {
	return t.Flags[name]
}

// Normalize fills default scores.
func (t *Task) Normalize() {
	for _, score := range []*int{&t.Impact, &t.Urgency, &t.Effort, &t.Risk} {
		if *score == 0 {
			*score = DefaultScore
		}
	}
}

// Validate checks required fields and score ranges. It must be called after Normalize.
func (t *Task) Validate() error {
	if t.Module == "" {
		return &ValidationError{Field: "module", Message: "is required"}
	}
	if t.Action == "" {
		return &ValidationError{Field: "action", Message: "is required"}
	}
	scores := []struct {
		name  string
		value int
	}{
		{"impact", t.Impact},
		{"urgency", t.Urgency},
		{"effort", t.Effort},
		{"risk", t.Risk},
	}
	for _, s := range scores {
		if s.value < minScore || s.value > maxScore {
			return &ValidationError{Field: s.name, Message: "must be between 1 and 10"}
		}
	}
	return nil
}

// Clone returns a copy that does not share maps with t. Result is shared.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	ret := *t
	if t.Data != nil {
		ret.Data = make(map[string]interface{}, len(t.Data))
		for k, v := range t.Data {
			ret.Data[k] = v
		}
	}
	if t.Flags != nil {
		ret.Flags = make(map[string]bool, len(t.Flags))
		for k, v := range t.Flags {
			ret.Flags[k] = v
		}
	}
	ret.QueuedAt = cloneTime(t.QueuedAt)
	ret.StartedAt = cloneTime(t.StartedAt)
	ret.CompletedAt = cloneTime(t.CompletedAt)
	ret.DecidedAt = cloneTime(t.DecidedAt)
	return &ret
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
