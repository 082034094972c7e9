package reset

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry holds open flows for adapters that cannot keep a *Flow between
// calls. Flows idle longer than ttl are discarded.
type Registry struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	flows map[string]*entry
}

type entry struct {
	flow     *Flow
	lastSeen time.Time
}

func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Registry{ttl: ttl, now: time.Now, flows: map[string]*entry{}}
}

func (r *Registry) Add(f *Flow) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneLocked()

	id := uuid.NewString()
	r.flows[id] = &entry{flow: f, lastSeen: r.now()}
	return id
}

func (r *Registry) Get(id string) (*Flow, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneLocked()

	e, ok := r.flows[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = r.now()
	return e.flow, true
}

// Remove discards the flow and its code.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.flows[id]; ok {
		e.flow.Discard()
		delete(r.flows, id)
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.flows)
}

func (r *Registry) pruneLocked() {
	cutoff := r.now().Add(-r.ttl)
	for id, e := range r.flows {
		if e.lastSeen.Before(cutoff) {
			e.flow.Discard()
			delete(r.flows, id)
		}
	}
}
