package approval

import (
	"time"

	"github.com/viant/taskgate/model/task"
	"github.com/viant/taskgate/service/dao"
)

// Status of an approval request.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Decided reports whether s is terminal.
func (s Status) Decided() bool {
	return s == StatusApproved || s == StatusRejected
}

// Request links a gated task to a human decision.
type Request struct {
	ID             string     `json:"id"`
	TaskID         string     `json:"taskId"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	Category       string     `json:"category,omitempty"`
	Recommendation string     `json:"recommendation"`
	ApprovalType   string     `json:"approvalType"`
	Status         Status     `json:"status"`
	CreatedAt      time.Time  `json:"createdAt"`
	DecidedAt      *time.Time `json:"decidedAt,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	Task           *task.Task `json:"task,omitempty"`
}

// SubmitResult is returned by Submit.
type SubmitResult struct {
	Approved  bool   `json:"approved"`
	Pending   bool   `json:"pending"`
	RequestID string `json:"requestId,omitempty"`
}

// Response is returned by Respond.
type Response struct {
	Success   bool   `json:"success"`
	Approved  bool   `json:"approved"`
	RequestID string `json:"requestId"`
}

// TaskStatus describes the latest request of a task.
type TaskStatus struct {
	Found       bool       `json:"found"`
	RequestID   string     `json:"requestId,omitempty"`
	Status      Status     `json:"status,omitempty"`
	SubmittedAt time.Time  `json:"submittedAt,omitempty"`
	RespondedAt *time.Time `json:"respondedAt,omitempty"`
	Notes       string     `json:"notes,omitempty"`
}

// RequestKey is the dao key selector for Request.
func RequestKey(r *Request) string { return r.ID }

// RequestField exposes Request fields to dao List parameters.
func RequestField(r *Request, name string) (string, bool) {
	switch name {
	case dao.ParamStatus:
		return string(r.Status), true
	case dao.ParamTaskID:
		return r.TaskID, true
	}
	return "", false
}

func (r *Request) taskStatus() *TaskStatus {
	return &TaskStatus{
		Found:       true,
		RequestID:   r.ID,
		Status:      r.Status,
		SubmittedAt: r.CreatedAt,
		RespondedAt: r.DecidedAt,
		Notes:       r.Notes,
	}
}
