package orchestrator

import (
	"container/heap"

	"github.com/viant/taskgate/model/task"
)

type queued struct {
	task *task.Task
	seq  uint64
}

// taskHeap orders tasks by priority (highest first), then earliest
// SubmittedAt, then admission sequence.
type taskHeap []queued

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.task.Priority != b.task.Priority {
		return a.task.Priority > b.task.Priority
	}
	if !a.task.SubmittedAt.Equal(b.task.SubmittedAt) {
		return a.task.SubmittedAt.Before(b.task.SubmittedAt)
	}
	return a.seq < b.seq
}

func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x any) { *h = append(*h, x.(queued)) }

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = queued{}
	*h = old[:n-1]
	return item
}

// priorityQueue is not safe for concurrent use; the orchestrator guards it.
type priorityQueue struct {
	items taskHeap
	seq   uint64
}

func (q *priorityQueue) push(t *task.Task) {
	q.seq++
	heap.Push(&q.items, queued{task: t, seq: q.seq})
}

func (q *priorityQueue) pop() *task.Task {
	if len(q.items) == 0 {
		return nil
	}
	return heap.Pop(&q.items).(queued).task
}

func (q *priorityQueue) len() int { return len(q.items) }

// ordered returns the queued tasks in dispatch order without altering the queue.
func (q *priorityQueue) ordered() []*task.Task {
	tmp := make(taskHeap, len(q.items))
	copy(tmp, q.items)
	ret := make([]*task.Task, 0, len(tmp))
	for tmp.Len() > 0 {
		ret = append(ret, heap.Pop(&tmp).(queued).task)
	}
	return ret
}
