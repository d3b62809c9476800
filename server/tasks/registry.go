package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("task not found")

// StreetResult is one finished street as shown to the caller.
type StreetResult struct {
	Title        string   `json:"title"`
	Hero         string   `json:"hero"`
	Board        string   `json:"board"`
	HandName     string   `json:"hand_name"`
	Score        int      `json:"score"`
	Equity       float64  `json:"equity"`
	Delta        *float64 `json:"delta"`
	Trials       int      `json:"trials"`
	Stop         string   `json:"stop"`
	AdviceText   string   `json:"advice_text"`
	AdviceSource string   `json:"advice_source"`
	AdviceReason string   `json:"advice_reason,omitempty"`
}

// State is a snapshot of one task. Copies handed out by the registry share
// nothing with the stored value.
type State struct {
	ID        string            `json:"task_id"`
	Percent   int               `json:"pct"`
	Stage     string            `json:"stage"`
	ETA       *int              `json:"eta"`
	Done      bool              `json:"done"`
	Cancel    bool              `json:"cancel"`
	Results   []StreetResult    `json:"results"`
	Detail    map[string]string `json:"detail,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"ts"`
}

// Key identifies a snapshot for deduplication on a stream.
func (s State) Key() string {
	eta := "-"
	if s.ETA != nil {
		eta = fmt.Sprint(*s.ETA)
	}
	return fmt.Sprintf("%d|%s|%s|%t|%d", s.Percent, s.Stage, eta, s.Done, len(s.Results))
}

func (s State) clone() State {
	out := s
	out.Results = make([]StreetResult, len(s.Results))
	copy(out.Results, s.Results)
	if s.Detail != nil {
		out.Detail = make(map[string]string, len(s.Detail))
		for k, v := range s.Detail {
			out.Detail[k] = v
		}
	}
	if s.ETA != nil {
		eta := *s.ETA
		out.ETA = &eta
	}
	return out
}

type entry struct {
	state   State
	changed chan struct{}
	cancel  context.CancelFunc
}

// Registry holds every live task behind a single mutex.
type Registry struct {
	mu    sync.Mutex
	tasks map[string]*entry
	ttl   time.Duration
	now   func() time.Time
}

func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{tasks: map[string]*entry{}, ttl: ttl, now: time.Now}
}

// Create registers a queued task. The returned context is cancelled by
// Cancel or when the task is swept, and derives from base.
func (r *Registry) Create(base context.Context) (string, context.Context) {
	ctx, cancel := context.WithCancel(base)
	id := uuid.NewString()
	now := r.now()
	r.mu.Lock()
	r.tasks[id] = &entry{
		state: State{
			ID:        id,
			Stage:     "queued",
			Results:   []StreetResult{},
			Detail:    map[string]string{},
			CreatedAt: now,
			UpdatedAt: now,
		},
		changed: make(chan struct{}),
		cancel:  cancel,
	}
	r.mu.Unlock()
	return id, ctx
}

// Update applies fn to the task's state under the lock. Percent never moves
// backwards, Done and Cancel never clear and Results never shrink, whatever
// fn does.
func (r *Registry) Update(id string, fn func(*State)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.tasks[id]
	if !ok {
		return ErrNotFound
	}
	prev := e.state
	next := prev.clone()
	fn(&next)

	next.ID = prev.ID
	next.CreatedAt = prev.CreatedAt
	next.Percent = min(max(next.Percent, prev.Percent, 0), 100)
	next.Done = next.Done || prev.Done
	next.Cancel = next.Cancel || prev.Cancel
	if len(next.Results) < len(prev.Results) {
		next.Results = prev.Results
	}
	next.UpdatedAt = r.now()
	e.state = next
	r.notify(e)
	return nil
}

// Get returns a copy of the task's state.
func (r *Registry) Get(id string) (State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.tasks[id]
	if !ok {
		return State{}, ErrNotFound
	}
	return e.state.clone(), nil
}

// Watch returns the current state and a channel closed on the next change
// (or eviction).
func (r *Registry) Watch(id string) (State, <-chan struct{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.tasks[id]
	if !ok {
		return State{}, nil, ErrNotFound
	}
	return e.state.clone(), e.changed, nil
}

// Cancel flags the task and cancels its context. Cancelling a finished task
// is a no-op that still reports success.
func (r *Registry) Cancel(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.tasks[id]
	if !ok {
		return ErrNotFound
	}
	if e.state.Done || e.state.Cancel {
		return nil
	}
	e.state.Cancel = true
	e.state.UpdatedAt = r.now()
	e.cancel()
	r.notify(e)
	return nil
}

// Cancelled reports whether cancellation was requested. Unknown ids count
// as cancelled so a swept task stops.
func (r *Registry) Cancelled(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.tasks[id]
	return !ok || e.state.Cancel
}

// Len is the number of tracked tasks.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

// Sweep forgets tasks idle for longer than the TTL and returns how many
// were removed.
func (r *Registry) Sweep() int {
	if r.ttl <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.ttl)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, e := range r.tasks {
		if e.state.UpdatedAt.Before(cutoff) {
			e.cancel()
			close(e.changed)
			delete(r.tasks, id)
			n++
		}
	}
	return n
}

// RunSweeper calls Sweep every interval until ctx is done.
func (r *Registry) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.Sweep()
		}
	}
}

// notify wakes watchers. Callers hold r.mu.
func (r *Registry) notify(e *entry) {
	close(e.changed)
	e.changed = make(chan struct{})
}
