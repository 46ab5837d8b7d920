package audit

import (
	"encoding/json"
	"time"
)

// EntryType classifies an audit entry.
type EntryType string

const (
	TypeProposal  EntryType = "proposal"
	TypeApproval  EntryType = "approval"
	TypeExecution EntryType = "execution"
	TypeSystem    EntryType = "system"
)

// Approval decisions recorded in ApprovalPayload.
const (
	DecisionAuto     = "auto"
	DecisionApproved = "approved"
	DecisionRejected = "rejected"
)

// Execution phases recorded in ExecutionPayload.
const (
	ExecutionStarted   = "started"
	ExecutionCompleted = "completed"
	ExecutionFailed    = "failed"
)

// Entry is one immutable fact. ID, Timestamp, Seq, PrevHash and Hash are
// assigned by the log.
type Entry struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Type      EntryType       `json:"type"`
	TaskID    string          `json:"taskId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Seq       int64           `json:"seq"`
	PrevHash  string          `json:"prevHash,omitempty"`
	Hash      string          `json:"hash"`
}

// Decode unmarshals the payload into v.
func (e *Entry) Decode(v interface{}) error {
	if len(e.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(e.Payload, v)
}

// Clone returns a deep copy.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	ret := *e
	if e.Payload != nil {
		ret.Payload = append(json.RawMessage(nil), e.Payload...)
	}
	return &ret
}

// ProposalPayload records a task gated behind human approval.
type ProposalPayload struct {
	TaskID       string  `json:"taskId"`
	RequestID    string  `json:"requestId"`
	Title        string  `json:"title,omitempty"`
	Module       string  `json:"module"`
	Action       string  `json:"action"`
	Category     string  `json:"category,omitempty"`
	Reason       string  `json:"reason"`
	ApprovalType string  `json:"approvalType"`
	Priority     float64 `json:"priority"`
}

// ApprovalPayload records an approval decision, automatic or human.
type ApprovalPayload struct {
	TaskID       string `json:"taskId"`
	RequestID    string `json:"requestId,omitempty"`
	Decision     string `json:"decision"`
	Approved     bool   `json:"approved"`
	ApprovalType string `json:"approvalType,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

// ExecutionPayload records an execution phase.
type ExecutionPayload struct {
	TaskID     string `json:"taskId"`
	Module     string `json:"module"`
	Action     string `json:"action"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"durationMs,omitempty"`
	RetryCount int    `json:"retryCount,omitempty"`
}

// SystemPayload records a system level event such as a pause.
type SystemPayload struct {
	Event   string                 `json:"event"`
	Message string                 `json:"message,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Summary is the daily report computed by Summarize.
type Summary struct {
	Date             string   `json:"date"`
	TotalActions     int      `json:"totalActions"`
	Proposals        int      `json:"proposals"`
	Approvals        int      `json:"approvals"`
	Executions       int      `json:"executions"`
	Completed        int      `json:"completed"`
	Failed           int      `json:"failed"`
	PendingApprovals int      `json:"pendingApprovals"`
	RecentActions    []*Entry `json:"recentActions"`
}
