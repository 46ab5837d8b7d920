package api

import (
	"errors"
	"net/http"

	"github.com/viant/taskgate/internal/clock"
	"github.com/viant/taskgate/model/task"
	"github.com/viant/taskgate/service/anomaly"
	"github.com/viant/taskgate/service/approval"
	"github.com/viant/taskgate/service/audit"
	"github.com/viant/taskgate/service/orchestrator"
)

// SubmitTask handles POST /api/v1/tasks.
func (h *Handler) SubmitTask(w http.ResponseWriter, r *http.Request) {
	t, ok := readJSON[task.Task](w, r, h.bodyLimit)
	if !ok {
		return
	}
	result, err := h.orchestrator.SubmitTask(r.Context(), &t)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, result)
}

// GetTask handles GET /api/v1/tasks/{id}.
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	t, err := h.orchestrator.Task(urlParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// GetStats handles GET /api/v1/stats.
func (h *Handler) GetStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.orchestrator.Stats())
}

// ListApprovals handles GET /api/v1/approvals. Optional category and
// approvalType query parameters narrow the pending list.
func (h *Handler) ListApprovals(w http.ResponseWriter, r *http.Request) {
	var filters []approval.PendingFilter
	if category := r.URL.Query().Get("category"); category != "" {
		filters = append(filters, approval.WithCategory(category))
	}
	if approvalType := r.URL.Query().Get("approvalType"); approvalType != "" {
		filters = append(filters, approval.WithApprovalType(approvalType))
	}
	pending, err := approval.ListPending(r.Context(), h.approvals, filters...)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if pending == nil {
		pending = []*approval.Request{}
	}
	writeJSON(w, http.StatusOK, pending)
}

// GetApproval handles GET /api/v1/approvals/{taskID}.
func (h *Handler) GetApproval(w http.ResponseWriter, r *http.Request) {
	status, err := h.approvals.Status(r.Context(), urlParam(r, "taskID"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if !status.Found {
		h.writeServiceError(w, approval.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

type respondRequest struct {
	Approved *bool  `json:"approved"`
	Notes    string `json:"notes"`
}

// RespondApproval handles POST /api/v1/approvals/{taskID}/respond.
func (h *Handler) RespondApproval(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[respondRequest](w, r, h.bodyLimit)
	if !ok {
		return
	}
	if req.Approved == nil {
		writeError(w, http.StatusBadRequest, "approved is required")
		return
	}
	response, err := h.approvals.Respond(r.Context(), urlParam(r, "taskID"), *req.Approved, req.Notes)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

// ListDeadLetters handles GET /api/v1/dead-letters.
func (h *Handler) ListDeadLetters(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.orchestrator.DeadLetters())
}

type retryResponse struct {
	Retried []*orchestrator.SubmitResult `json:"retried"`
	Error   string                       `json:"error,omitempty"`
}

// RetryDeadLetters handles POST /api/v1/dead-letters/retry. Partial failures
// still report the tasks that were resubmitted.
func (h *Handler) RetryDeadLetters(w http.ResponseWriter, r *http.Request) {
	results, err := h.orchestrator.RetryDeadLetterQueue(r.Context())
	response := retryResponse{Retried: results}
	if response.Retried == nil {
		response.Retried = []*orchestrator.SubmitResult{}
	}
	if err != nil {
		h.logger.Warn("dead letter retry incomplete", "error", err)
		response.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, response)
}

// AuditLogs handles GET /api/v1/audit/today. A day query parameter selects
// another partition.
func (h *Handler) AuditLogs(w http.ResponseWriter, r *http.Request) {
	var entries []*audit.Entry
	var err error
	if day := r.URL.Query().Get("day"); day != "" {
		entries, err = h.auditor.Logs(r.Context(), day)
	} else {
		entries, err = h.auditor.TodayLogs(r.Context())
	}
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if entries == nil {
		entries = []*audit.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// AuditSummary handles GET /api/v1/audit/summary.
func (h *Handler) AuditSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.auditor.DailySummary(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

type verifyResponse struct {
	Day   string `json:"day"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// AuditVerify handles GET /api/v1/audit/verify.
func (h *Handler) AuditVerify(w http.ResponseWriter, r *http.Request) {
	day := r.URL.Query().Get("day")
	if day == "" {
		day = clock.Today()
	}
	err := h.auditor.Verify(r.Context(), day)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, verifyResponse{Day: day, Valid: true})
	case errors.Is(err, audit.ErrTampered):
		writeJSON(w, http.StatusConflict, verifyResponse{Day: day, Error: err.Error()})
	default:
		h.writeServiceError(w, err)
	}
}

type healthResponse struct {
	*anomaly.Report
	PauseReason string             `json:"pauseReason,omitempty"`
	Stats       orchestrator.Stats `json:"stats"`
}

// Health handles GET /api/v1/health. It evaluates every anomaly check
// without pausing or alerting and answers 503 when the system is unhealthy.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	report, err := h.monitor.Evaluate(r.Context())
	if err != nil {
		h.logger.Warn("health check incomplete", "error", err)
	}
	if report == nil {
		h.writeServiceError(w, err)
		return
	}
	status := http.StatusOK
	if !report.SystemHealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, healthResponse{
		Report:      report,
		PauseReason: h.monitor.PauseReason(),
		Stats:       h.orchestrator.Stats(),
	})
}

type pauseRequest struct {
	Reason string `json:"reason"`
}

type systemResponse struct {
	Paused bool   `json:"paused"`
	Reason string `json:"reason,omitempty"`
}

// Pause handles POST /api/v1/system/pause. The body is optional.
func (h *Handler) Pause(w http.ResponseWriter, r *http.Request) {
	req := pauseRequest{}
	if r.ContentLength != 0 {
		var ok bool
		if req, ok = readJSON[pauseRequest](w, r, h.bodyLimit); !ok {
			return
		}
	}
	if req.Reason == "" {
		req.Reason = "manual pause"
	}
	if err := h.monitor.Pause(r.Context(), req.Reason); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, systemResponse{Paused: h.monitor.Paused(), Reason: h.monitor.PauseReason()})
}

// Resume handles POST /api/v1/system/resume.
func (h *Handler) Resume(w http.ResponseWriter, r *http.Request) {
	if err := h.monitor.Resume(r.Context()); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, systemResponse{Paused: h.monitor.Paused()})
}
