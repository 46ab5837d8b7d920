package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/viant/taskgate/internal/clock"
	"github.com/viant/taskgate/internal/idgen"
	"github.com/viant/taskgate/internal/logger"
	"github.com/viant/taskgate/model/task"
	"github.com/viant/taskgate/policy"
	"github.com/viant/taskgate/progress"
	"github.com/viant/taskgate/service/approval"
	"github.com/viant/taskgate/service/audit"
	"github.com/viant/taskgate/service/executor"
	"github.com/viant/taskgate/service/notifier"
	"github.com/viant/taskgate/tracing"
)

// SubmitResult is returned by SubmitTask.
type SubmitResult struct {
	Status       task.Status `json:"status"`
	TaskID       string      `json:"taskId"`
	Priority     float64     `json:"priority"`
	Reason       string      `json:"reason,omitempty"`
	ApprovalType string      `json:"approvalType,omitempty"`
	RequestID    string      `json:"requestId,omitempty"`
	Violations   []string    `json:"violations,omitempty"`
}

// Service coordinates admission, scheduling and execution. All task state
// lives behind mux; tasks handed out by read methods are copies.
type Service struct {
	config    Config
	policy    *policy.Engine
	approvals approval.Service
	auditor   audit.Service
	executor  *executor.Service
	notifier  notifier.Notifier
	pauser    Pauser
	logger    *slog.Logger
	metrics   *tracing.Metrics
	progress  *progress.Progress

	mux         sync.Mutex
	queue       priorityQueue
	live        map[string]*task.Task
	awaiting    map[string]string
	running     map[string]*task.Task
	history     []*task.Task
	deadLetters []*task.Task

	started    bool
	shutdownCh chan struct{}
	stopOnce   sync.Once
	inflight   sync.WaitGroup
}

// New creates an orchestrator.
func New(engine *policy.Engine, approvals approval.Service, auditor audit.Service, executors *executor.Registry, opts ...Option) (*Service, error) {
	if engine == nil || approvals == nil || auditor == nil {
		return nil, fmt.Errorf("orchestrator: policy engine, approval store and auditor are required")
	}
	s := &Service{
		config:     DefaultConfig(),
		policy:     engine,
		approvals:  approvals,
		auditor:    auditor,
		live:       map[string]*task.Task{},
		awaiting:   map[string]string{},
		running:    map[string]*task.Task{},
		shutdownCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.config.Weights.IsZero() {
		s.config.Weights = task.DefaultWeights()
	}
	if err := s.config.Validate(); err != nil {
		return nil, err
	}
	s.logger = logger.OrDefault(s.logger)
	if s.progress == nil {
		s.progress = progress.New()
	}
	s.executor = executor.New(executors,
		executor.WithTimeout(s.config.ExecutionTimeout),
		executor.WithLogger(s.logger),
		executor.WithListener(executor.LogListener(s.logger)))
	return s, nil
}

// SubmitTask validates, scores and gates t. Auto-approved tasks are queued;
// gated tasks wait for a decision. The caller's task is not modified.
func (s *Service) SubmitTask(ctx context.Context, t *task.Task) (result *SubmitResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "orchestrator.Submit", tracing.KindInternal)
	defer func() { tracing.EndSpan(span, err) }()

	if t == nil {
		return nil, &task.ValidationError{Field: "task", Message: "is required"}
	}
	t = t.Clone()
	t.Status = ""
	if t.ID == "" {
		t.ID = idgen.New()
	}
	if t.SubmittedAt.IsZero() {
		t.SubmittedAt = clock.Now()
	}
	t.Normalize()
	if err = t.Validate(); err != nil {
		return nil, err
	}
	t.Priority = s.config.Weights.Score(t)
	span.WithAttributes(map[string]string{"task.id": t.ID, "task.module": t.Module, "task.action": t.Action})

	if err = s.reserve(t.ID); err != nil {
		return nil, err
	}
	evaluation := s.policy.Evaluate(t)
	constraints := s.policy.ValidateConstraints(t)
	submitted, err := s.approvals.Submit(ctx, t, evaluation)
	if err != nil {
		s.release(t.ID)
		return nil, err
	}
	s.metrics.Add(ctx, s.metrics.TasksSubmitted, t.Module)

	result = &SubmitResult{
		TaskID:       t.ID,
		Priority:     t.Priority,
		Reason:       evaluation.Reason,
		ApprovalType: evaluation.ApprovalType,
		Violations:   constraints.Messages(),
	}
	if len(result.Violations) == 0 {
		result.Violations = nil
	}
	if submitted.Approved {
		s.mux.Lock()
		err = t.Enqueue(clock.Now())
		if err == nil {
			s.live[t.ID] = t
			s.queue.push(t)
		} else {
			delete(s.live, t.ID)
		}
		s.mux.Unlock()
		if err != nil {
			return nil, err
		}
		s.progress.Update(progress.Delta{Submitted: 1})
		result.Status = task.StatusQueued
		s.logger.Info("task queued", "task_id", t.ID, "task", t.Name(), "priority", t.Priority)
		return result, nil
	}

	s.mux.Lock()
	err = t.Hold()
	if err == nil {
		s.live[t.ID] = t
		s.awaiting[t.ID] = submitted.RequestID
	} else {
		delete(s.live, t.ID)
	}
	s.mux.Unlock()
	if err != nil {
		return nil, err
	}
	s.progress.Update(progress.Delta{Submitted: 1})
	result.Status = task.StatusPendingApproval
	result.RequestID = submitted.RequestID
	s.logger.Info("task awaiting approval", "task_id", t.ID, "task", t.Name(), "reason", evaluation.Reason)
	s.notifyPending(t.Clone(), evaluation, submitted.RequestID)
	return result, nil
}

// reserve claims id for an admission in progress.
func (s *Service) reserve(id string) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	if existing, ok := s.live[id]; ok {
		if existing.Status == task.StatusPendingApproval {
			return fmt.Errorf("%w: task %s", approval.ErrDuplicatePending, id)
		}
		return fmt.Errorf("%w: %s", ErrTaskActive, id)
	}
	s.live[id] = &task.Task{ID: id}
	return nil
}

func (s *Service) release(id string) {
	s.mux.Lock()
	defer s.mux.Unlock()
	if t, ok := s.live[id]; ok && t.Status == "" {
		delete(s.live, id)
	}
}

func (s *Service) notifyPending(t *task.Task, evaluation policy.Evaluation, requestID string) {
	if s.notifier == nil {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("notifier panicked", "task_id", t.ID, "panic", r)
			}
		}()
		notification := notifier.Notification{
			Title:   "Approval required: " + t.Name(),
			Message: evaluation.Reason,
			Level:   notifier.LevelWarning,
			Source:  "approval.required",
			TaskID:  t.ID,
			Meta: map[string]string{
				"requestId":    requestID,
				"approvalType": evaluation.ApprovalType,
				"module":       t.Module,
				"action":       t.Action,
				"priority":     strconv.FormatFloat(t.Priority, 'f', 2, 64),
			},
		}
		if err := s.notifier.Send(context.Background(), notification); err != nil {
			s.logger.Warn("approval notification failed", "task_id", t.ID, "error", err)
		}
	}()
}

// Start runs the execution loop until ctx is done or Shutdown is called.
func (s *Service) Start(ctx context.Context) error {
	s.mux.Lock()
	if s.started {
		s.mux.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	s.mux.Unlock()

	ticker := time.NewTicker(s.config.PollingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.shutdownCh:
			return nil
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Shutdown stops the loop and waits for in-flight executions.
func (s *Service) Shutdown() {
	s.stopOnce.Do(func() { close(s.shutdownCh) })
	s.inflight.Wait()
}

// Tick performs one loop iteration: settle decided approvals, then dispatch.
func (s *Service) Tick(ctx context.Context) {
	s.pollAwaiting(ctx)
	s.dispatchReady(ctx)
}

func (s *Service) pollAwaiting(ctx context.Context) {
	s.mux.Lock()
	ids := make([]string, 0, len(s.awaiting))
	for id := range s.awaiting {
		ids = append(ids, id)
	}
	s.mux.Unlock()

	for _, id := range ids {
		status, err := s.approvals.Status(ctx, id)
		if err != nil {
			s.logger.Warn("approval status check failed", "task_id", id, "error", err)
			continue
		}
		if !status.Found || !status.Status.Decided() {
			continue
		}
		s.settle(ctx, id, status)
	}
}

func (s *Service) settle(ctx context.Context, id string, status *approval.TaskStatus) {
	now := clock.Now()
	s.mux.Lock()
	t, ok := s.live[id]
	if _, tracked := s.awaiting[id]; !ok || !tracked {
		s.mux.Unlock()
		return
	}
	delete(s.awaiting, id)
	if status.Status == approval.StatusApproved {
		err := t.Approve(now)
		if err == nil {
			t.Priority = s.config.Weights.Score(t)
			s.queue.push(t)
		}
		s.mux.Unlock()
		if err != nil {
			s.logger.Error("approved task could not be queued", "task_id", id, "error", err)
			return
		}
		s.logger.Info("approved task queued", "task_id", id, "priority", t.Priority)
		return
	}
	err := t.Reject(now, status.Notes)
	if err == nil {
		delete(s.live, id)
		s.appendHistory(t)
	}
	s.mux.Unlock()
	if err != nil {
		s.logger.Error("rejected task could not be closed", "task_id", id, "error", err)
		return
	}
	s.progress.Update(progress.Delta{Rejected: 1})
	s.metrics.Add(ctx, s.metrics.TasksRejected, t.Module)
	s.logger.Info("task rejected", "task_id", id, "reason", status.Notes)
}

func (s *Service) dispatchReady(ctx context.Context) {
	if s.pauser != nil && s.pauser.Paused() {
		return
	}
	now := clock.Now()
	var batch []*task.Task
	s.mux.Lock()
	for len(s.running) < s.config.Workers && s.queue.len() > 0 {
		t := s.queue.pop()
		if err := t.Start(now); err != nil {
			s.logger.Error("queued task could not start", "task_id", t.ID, "error", err)
			continue
		}
		s.running[t.ID] = t
		batch = append(batch, t.Clone())
	}
	s.inflight.Add(len(batch))
	s.mux.Unlock()

	for _, snapshot := range batch {
		if _, err := s.auditor.LogExecution(ctx, &audit.ExecutionPayload{
			TaskID:     snapshot.ID,
			Module:     snapshot.Module,
			Action:     snapshot.Action,
			Status:     audit.ExecutionStarted,
			RetryCount: snapshot.RetryCount,
		}); err != nil {
			s.logger.Error("audit execution start failed", "task_id", snapshot.ID, "error", err)
		}
		go s.dispatch(ctx, snapshot)
	}
}

func (s *Service) dispatch(ctx context.Context, snapshot *task.Task) {
	defer s.inflight.Done()
	ctx, span := tracing.StartSpan(logger.WithTaskID(ctx, snapshot.ID), "orchestrator.Dispatch", tracing.KindInternal)
	span.WithAttributes(map[string]string{"task.id": snapshot.ID, "task.module": snapshot.Module, "task.action": snapshot.Action})

	started := time.Now()
	var output interface{}
	var err error
	if constraints := s.policy.ValidateConstraints(snapshot); !constraints.Valid {
		err = &policy.ConstraintViolation{TaskID: snapshot.ID, Violations: constraints.Violations}
	} else {
		output, err = s.executor.Run(ctx, snapshot)
	}
	elapsed := time.Since(started)
	tracing.EndSpan(span, err)
	s.finish(ctx, snapshot, output, err, elapsed)
}

func (s *Service) finish(ctx context.Context, snapshot *task.Task, output interface{}, runErr error, elapsed time.Duration) {
	now := clock.Now()
	s.mux.Lock()
	t := s.running[snapshot.ID]
	delete(s.running, snapshot.ID)
	delete(s.live, snapshot.ID)
	if t == nil {
		t = snapshot
	}
	var err error
	if runErr == nil {
		err = t.Complete(now, output)
		s.appendHistory(t)
	} else {
		err = t.Fail(now, runErr)
		s.appendDeadLetter(t)
	}
	s.mux.Unlock()
	if err != nil {
		s.logger.Error("task transition failed", "task_id", t.ID, "error", err)
	}

	payload := &audit.ExecutionPayload{
		TaskID:     snapshot.ID,
		Module:     snapshot.Module,
		Action:     snapshot.Action,
		Status:     audit.ExecutionCompleted,
		DurationMs: elapsed.Milliseconds(),
		RetryCount: snapshot.RetryCount,
	}
	s.metrics.Observe(ctx, elapsed.Seconds(), snapshot.Module)
	log := logger.FromContext(ctx, s.logger)
	if runErr != nil {
		payload.Status = audit.ExecutionFailed
		payload.Error = runErr.Error()
		s.progress.Update(progress.Delta{Failed: 1})
		s.metrics.Add(ctx, s.metrics.TasksFailed, snapshot.Module)
		var violation *policy.ConstraintViolation
		if errors.As(runErr, &violation) {
			log.Warn("task blocked by constraints", "violations", len(violation.Violations), "error", runErr)
		} else {
			log.Warn("task failed", "module", snapshot.Module, "error", runErr)
		}
	} else {
		s.progress.Update(progress.Delta{Completed: 1})
		s.metrics.Add(ctx, s.metrics.TasksCompleted, snapshot.Module)
		log.Info("task completed", "module", snapshot.Module, "elapsed", elapsed)
	}
	if _, err := s.auditor.LogExecution(ctx, payload); err != nil {
		log.Error("audit execution outcome failed", "error", err)
	}
}

// appendHistory must be called with mux held.
func (s *Service) appendHistory(t *task.Task) {
	s.history = append(s.history, t)
	if over := len(s.history) - s.config.CompletedLimit; over > 0 {
		s.history = append([]*task.Task(nil), s.history[over:]...)
	}
}

// appendDeadLetter must be called with mux held.
func (s *Service) appendDeadLetter(t *task.Task) {
	s.deadLetters = append(s.deadLetters, t)
	if over := len(s.deadLetters) - s.config.DeadLetterLimit; over > 0 {
		s.deadLetters = append([]*task.Task(nil), s.deadLetters[over:]...)
	}
}

// RetryDeadLetterQueue drains the dead-letter list and resubmits every task
// with an incremented retry count. Tasks that cannot be resubmitted are
// returned to the list and their errors joined.
func (s *Service) RetryDeadLetterQueue(ctx context.Context) ([]*SubmitResult, error) {
	s.mux.Lock()
	drained := s.deadLetters
	s.deadLetters = nil
	s.mux.Unlock()

	var results []*SubmitResult
	var errs []error
	for _, t := range drained {
		retry := t.Clone()
		if err := retry.Requeue(); err != nil {
			errs = append(errs, err)
			continue
		}
		result, err := s.SubmitTask(ctx, retry)
		if err != nil {
			s.mux.Lock()
			s.appendDeadLetter(t)
			s.mux.Unlock()
			errs = append(errs, fmt.Errorf("retry %s: %w", t.ID, err))
			continue
		}
		s.progress.Update(progress.Delta{Retried: 1})
		results = append(results, result)
	}
	if len(drained) > 0 {
		s.logger.Info("dead letters retried", "count", len(results), "failed", len(errs))
	}
	return results, errors.Join(errs...)
}
