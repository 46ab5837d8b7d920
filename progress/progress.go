package progress

import (
	"context"
	"sync"
	"time"
)

// Delta represents an incremental counter change emitted by the orchestrator.
type Delta struct {
	Submitted int
	Completed int
	Failed    int
	Rejected  int
	Retried   int
}

// Progress keeps cumulative task counters since StartedAt. It is safe for
// concurrent use.
type Progress struct {
	StartedAt time.Time `json:"startedAt"`

	Submitted int `json:"submitted"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Rejected  int `json:"rejected"`
	Retried   int `json:"retried"`

	mux      sync.Mutex
	onChange func(Progress)
}

// New creates a tracker started now.
func New() *Progress {
	return &Progress{StartedAt: time.Now().UTC()}
}

// Update applies the delta. The onChange callback, if any, receives a copy
// outside the critical section.
func (p *Progress) Update(d Delta) {
	if p == nil {
		return
	}
	p.mux.Lock()
	p.Submitted += d.Submitted
	p.Completed += d.Completed
	p.Failed += d.Failed
	p.Rejected += d.Rejected
	p.Retried += d.Retried
	snapshot := p.copy()
	cb := p.onChange
	p.mux.Unlock()

	if cb != nil {
		cb(snapshot)
	}
}

// Snapshot returns a copy suitable for read-only inspection.
func (p *Progress) Snapshot() Progress {
	if p == nil {
		return Progress{}
	}
	p.mux.Lock()
	defer p.mux.Unlock()
	return p.copy()
}

// OnChange registers a callback invoked after every Update. Passing nil
// disables it; only one callback is active.
func (p *Progress) OnChange(cb func(Progress)) {
	if p == nil {
		return
	}
	p.mux.Lock()
	p.onChange = cb
	p.mux.Unlock()
}

func (p *Progress) copy() Progress {
	return Progress{
		StartedAt: p.StartedAt,
		Submitted: p.Submitted,
		Completed: p.Completed,
		Failed:    p.Failed,
		Rejected:  p.Rejected,
		Retried:   p.Retried,
	}
}

type trackerKeyT struct{}

var trackerKey trackerKeyT

// WithTracker embeds tr in a derived context.
func WithTracker(ctx context.Context, tr *Progress) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, trackerKey, tr)
}

// FromContext extracts the tracker from ctx.
func FromContext(ctx context.Context) (*Progress, bool) {
	if ctx == nil {
		return nil, false
	}
	tr, ok := ctx.Value(trackerKey).(*Progress)
	return tr, ok
}

// UpdateCtx applies d to the tracker carried by ctx, if any.
func UpdateCtx(ctx context.Context, d Delta) {
	if tr, ok := FromContext(ctx); ok {
		tr.Update(d)
	}
}
