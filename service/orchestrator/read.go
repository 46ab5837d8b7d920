package orchestrator

import (
	"fmt"
	"sort"
	"time"

	"github.com/viant/taskgate/model/task"
)

// Stats combines cumulative counters with current queue sizes.
type Stats struct {
	StartedAt time.Time `json:"startedAt"`
	Submitted int       `json:"submitted"`
	Completed int       `json:"completed"`
	Failed    int       `json:"failed"`
	Rejected  int       `json:"rejected"`
	Retried   int       `json:"retried"`

	Queued      int  `json:"queued"`
	Awaiting    int  `json:"awaiting"`
	Running     int  `json:"running"`
	DeadLetters int  `json:"deadLetters"`
	History     int  `json:"history"`
	Paused      bool `json:"paused"`
}

// Task returns a copy of the task with the given id, searching live tasks,
// then history and dead letters.
func (s *Service) Task(id string) (*task.Task, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	if t, ok := s.live[id]; ok && t.Status != "" {
		return t.Clone(), nil
	}
	for i := len(s.deadLetters) - 1; i >= 0; i-- {
		if s.deadLetters[i].ID == id {
			return s.deadLetters[i].Clone(), nil
		}
	}
	for i := len(s.history) - 1; i >= 0; i-- {
		if s.history[i].ID == id {
			return s.history[i].Clone(), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
}

// Queued returns queued tasks in dispatch order.
func (s *Service) Queued() []*task.Task {
	s.mux.Lock()
	defer s.mux.Unlock()
	return cloneAll(s.queue.ordered())
}

// Running returns running tasks ordered by start time.
func (s *Service) Running() []*task.Task {
	s.mux.Lock()
	ret := make([]*task.Task, 0, len(s.running))
	for _, t := range s.running {
		ret = append(ret, t.Clone())
	}
	s.mux.Unlock()
	sort.Slice(ret, func(i, j int) bool {
		return ret[i].StartedAt.Before(*ret[j].StartedAt)
	})
	return ret
}

// Awaiting returns tasks waiting for a decision ordered by submission time.
func (s *Service) Awaiting() []*task.Task {
	s.mux.Lock()
	ret := make([]*task.Task, 0, len(s.awaiting))
	for id := range s.awaiting {
		if t, ok := s.live[id]; ok {
			ret = append(ret, t.Clone())
		}
	}
	s.mux.Unlock()
	sort.Slice(ret, func(i, j int) bool {
		return ret[i].SubmittedAt.Before(ret[j].SubmittedAt)
	})
	return ret
}

// DeadLetters returns failed tasks, oldest first.
func (s *Service) DeadLetters() []*task.Task {
	s.mux.Lock()
	defer s.mux.Unlock()
	return cloneAll(s.deadLetters)
}

// History returns completed and rejected tasks, oldest first.
func (s *Service) History() []*task.Task {
	s.mux.Lock()
	defer s.mux.Unlock()
	return cloneAll(s.history)
}

// Stats returns counters and current sizes.
func (s *Service) Stats() Stats {
	counters := s.progress.Snapshot()
	ret := Stats{
		StartedAt: counters.StartedAt,
		Submitted: counters.Submitted,
		Completed: counters.Completed,
		Failed:    counters.Failed,
		Rejected:  counters.Rejected,
		Retried:   counters.Retried,
	}
	s.mux.Lock()
	ret.Queued = s.queue.len()
	ret.Awaiting = len(s.awaiting)
	ret.Running = len(s.running)
	ret.DeadLetters = len(s.deadLetters)
	ret.History = len(s.history)
	s.mux.Unlock()
	if s.pauser != nil {
		ret.Paused = s.pauser.Paused()
	}
	return ret
}

func cloneAll(tasks []*task.Task) []*task.Task {
	ret := make([]*task.Task, 0, len(tasks))
	for _, t := range tasks {
		ret = append(ret, t.Clone())
	}
	return ret
}
