package approval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/viant/taskgate/internal/clock"
	"github.com/viant/taskgate/internal/idgen"
	"github.com/viant/taskgate/internal/logger"
	"github.com/viant/taskgate/model/task"
	"github.com/viant/taskgate/policy"
	"github.com/viant/taskgate/service/audit"
	"github.com/viant/taskgate/service/cache"
	"github.com/viant/taskgate/service/dao"
)

// Store implements Service over any dao backend. It keeps a taskID ->
// request IDs index and serializes writes per task.
type Store struct {
	dao      dao.Service[string, Request]
	auditor  audit.Service
	logger   *slog.Logger
	cache    cache.Cache
	cacheTTL time.Duration

	mu    sync.RWMutex
	index map[string][]string
	locks *keyedMutex
}

// New creates a Store and rebuilds its index from the backend.
func New(ctx context.Context, requests dao.Service[string, Request], auditor audit.Service, opts ...Option) (*Store, error) {
	if requests == nil {
		return nil, fmt.Errorf("approval: request dao is required")
	}
	if auditor == nil {
		return nil, fmt.Errorf("approval: auditor is required")
	}
	ret := &Store{
		dao:     requests,
		auditor: auditor,
		index:   map[string][]string{},
		locks:   newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(ret)
	}
	ret.logger = logger.OrDefault(ret.logger)
	all, err := requests.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("approval: rebuild index: %w", err)
	}
	sortByCreated(all)
	for _, r := range all {
		ret.index[r.TaskID] = append(ret.index[r.TaskID], r.ID)
	}
	return ret, nil
}

// Submit implements Service.
func (s *Store) Submit(ctx context.Context, t *task.Task, evaluation policy.Evaluation) (*SubmitResult, error) {
	if t == nil || t.ID == "" {
		return nil, fmt.Errorf("approval: task id is required")
	}
	if !evaluation.RequiresApproval {
		_, err := s.auditor.LogApproval(ctx, &audit.ApprovalPayload{
			TaskID:       t.ID,
			Decision:     audit.DecisionAuto,
			Approved:     true,
			ApprovalType: evaluation.ApprovalType,
			Notes:        evaluation.Reason,
		})
		if err != nil {
			return nil, err
		}
		return &SubmitResult{Approved: true}, nil
	}

	unlock := s.locks.Lock(t.ID)
	defer unlock()

	existing, err := s.requests(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	for _, r := range existing {
		if r.Status == StatusPending {
			return nil, fmt.Errorf("%w: task %s request %s", ErrDuplicatePending, t.ID, r.ID)
		}
	}
	request := &Request{
		ID:             idgen.WithPrefix("apr"),
		TaskID:         t.ID,
		Title:          t.Name(),
		Description:    t.Description,
		Category:       t.Category,
		Recommendation: evaluation.Reason,
		ApprovalType:   evaluation.ApprovalType,
		Status:         StatusPending,
		CreatedAt:      clock.Now(),
		Task:           t.Clone(),
	}
	if err := s.dao.Save(ctx, request); err != nil {
		return nil, fmt.Errorf("approval: save request: %w", err)
	}
	s.mu.Lock()
	s.index[t.ID] = append(s.index[t.ID], request.ID)
	s.mu.Unlock()

	if _, err := s.auditor.LogProposal(ctx, &audit.ProposalPayload{
		TaskID:       t.ID,
		RequestID:    request.ID,
		Title:        request.Title,
		Module:       t.Module,
		Action:       t.Action,
		Category:     t.Category,
		Reason:       evaluation.Reason,
		ApprovalType: evaluation.ApprovalType,
		Priority:     t.Priority,
	}); err != nil {
		s.discard(ctx, request)
		return nil, fmt.Errorf("approval: record proposal: %w", err)
	}
	s.logger.Info("approval requested", "task_id", t.ID, "request_id", request.ID, "type", evaluation.ApprovalType)
	return &SubmitResult{Pending: true, RequestID: request.ID}, nil
}

// Respond implements Service.
func (s *Store) Respond(ctx context.Context, taskID string, approved bool, notes string) (*Response, error) {
	unlock := s.locks.Lock(taskID)
	defer unlock()

	request, err := s.latest(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, fmt.Errorf("%w: task %s", ErrNotFound, taskID)
	}
	if request.Status != StatusPending {
		return nil, fmt.Errorf("%w: task %s is %s", ErrAlreadyDecided, taskID, request.Status)
	}
	previous := *request
	now := clock.Now()
	request.Status = StatusRejected
	decision := audit.DecisionRejected
	if approved {
		request.Status = StatusApproved
		decision = audit.DecisionApproved
	}
	request.DecidedAt = &now
	request.Notes = notes
	if err := s.dao.Save(ctx, request); err != nil {
		return nil, fmt.Errorf("approval: save decision: %w", err)
	}
	if _, err := s.auditor.LogApproval(ctx, &audit.ApprovalPayload{
		TaskID:       taskID,
		RequestID:    request.ID,
		Decision:     decision,
		Approved:     approved,
		ApprovalType: request.ApprovalType,
		Notes:        notes,
	}); err != nil {
		if rerr := s.dao.Save(ctx, &previous); rerr != nil {
			s.logger.Error("decision rollback failed", "task_id", taskID, "request_id", request.ID, "error", rerr)
		}
		return nil, fmt.Errorf("approval: record decision: %w", err)
	}
	s.cacheStatus(ctx, request)
	s.logger.Info("approval decided", "task_id", taskID, "request_id", request.ID, "approved", approved)
	return &Response{Success: true, Approved: approved, RequestID: request.ID}, nil
}

// discard removes a request whose proposal could not be recorded.
func (s *Store) discard(ctx context.Context, request *Request) {
	if err := s.dao.Delete(ctx, request.ID); err != nil {
		s.logger.Error("request rollback failed", "task_id", request.TaskID, "request_id", request.ID, "error", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.index[request.TaskID]
	for i, id := range ids {
		if id == request.ID {
			s.index[request.TaskID] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	if len(s.index[request.TaskID]) == 0 {
		delete(s.index, request.TaskID)
	}
}

// Pending implements Service.
func (s *Store) Pending(ctx context.Context) ([]*Request, error) {
	all, err := s.dao.List(ctx, dao.NewParameter(dao.ParamStatus, string(StatusPending)))
	if err != nil {
		return nil, err
	}
	ret := make([]*Request, 0, len(all))
	for _, r := range all {
		if r.Status == StatusPending {
			ret = append(ret, r)
		}
	}
	sortByCreated(ret)
	return ret, nil
}

// Status implements Service.
func (s *Store) Status(ctx context.Context, taskID string) (*TaskStatus, error) {
	ids := s.indexed(taskID)
	if n := len(ids); n > 0 {
		if status, ok := s.cachedStatus(ctx, ids[n-1]); ok {
			return status, nil
		}
	}
	request, err := s.latest(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return &TaskStatus{}, nil
	}
	s.cacheStatus(ctx, request)
	return request.taskStatus(), nil
}

// Request loads a request by id.
func (s *Store) Request(ctx context.Context, id string) (*Request, error) {
	request, err := s.dao.Load(ctx, id)
	if errors.Is(err, dao.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return request, err
}

func (s *Store) indexed(taskID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.index[taskID]...)
}

// requests returns the task's requests, oldest first. When the index has no
// entry the backend is queried, which picks up requests created by another
// process sharing the same backend.
func (s *Store) requests(ctx context.Context, taskID string) ([]*Request, error) {
	ids := s.indexed(taskID)
	if len(ids) == 0 {
		found, err := s.dao.List(ctx, dao.NewParameter(dao.ParamTaskID, taskID))
		if err != nil {
			return nil, err
		}
		var ret []*Request
		for _, r := range found {
			if r.TaskID == taskID {
				ret = append(ret, r)
			}
		}
		sortByCreated(ret)
		s.mu.Lock()
		if len(s.index[taskID]) == 0 {
			for _, r := range ret {
				s.index[taskID] = append(s.index[taskID], r.ID)
			}
		}
		s.mu.Unlock()
		return ret, nil
	}
	ret := make([]*Request, 0, len(ids))
	for _, id := range ids {
		r, err := s.dao.Load(ctx, id)
		if err != nil {
			if errors.Is(err, dao.ErrNotFound) {
				continue
			}
			return nil, err
		}
		ret = append(ret, r)
	}
	return ret, nil
}

func (s *Store) latest(ctx context.Context, taskID string) (*Request, error) {
	requests, err := s.requests(ctx, taskID)
	if err != nil || len(requests) == 0 {
		return nil, err
	}
	return requests[len(requests)-1], nil
}

func (s *Store) cachedStatus(ctx context.Context, requestID string) (*TaskStatus, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, ok, err := s.cache.Get(ctx, requestID)
	if err != nil || !ok {
		return nil, false
	}
	status := &TaskStatus{}
	if err := json.Unmarshal(data, status); err != nil {
		return nil, false
	}
	return status, true
}

func (s *Store) cacheStatus(ctx context.Context, r *Request) {
	if s.cache == nil || !r.Status.Decided() {
		return
	}
	data, err := json.Marshal(r.taskStatus())
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, r.ID, data, s.cacheTTL); err != nil {
		s.logger.Warn("status cache set failed", "request_id", r.ID, "error", err)
	}
}

func sortByCreated(requests []*Request) {
	sort.SliceStable(requests, func(i, j int) bool {
		if requests[i].CreatedAt.Equal(requests[j].CreatedAt) {
			return requests[i].ID < requests[j].ID
		}
		return requests[i].CreatedAt.Before(requests[j].CreatedAt)
	})
}

var _ Service = (*Store)(nil)
