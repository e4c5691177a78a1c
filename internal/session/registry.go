package session

import (
	"sync"
	"time"
)

// Registry holds the live session per tab. A tab owns its session; the
// registry serialises concurrent access to the map, not to the call
// sequences themselves (back-to-back operations without awaiting completion
// are a documented caller responsibility).
type Registry struct {
	mu       sync.Mutex
	sessions map[string]State
	now      func() time.Time
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]State),
		now:      time.Now,
	}
}

// Get returns the live session for a tab, creating a default one when the
// tab is new.
func (r *Registry) Get(tab string) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.sessions[tab]
	if !ok {
		state = DefaultState(r.now())
		r.sessions[tab] = state
	}
	return state
}

// Put installs a session for a tab, replacing any live one.
func (r *Registry) Put(tab string, state State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[tab] = state
}

// Update applies fn to the tab's session under the registry lock and
// returns the result.
func (r *Registry) Update(tab string, fn func(State) State) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.sessions[tab]
	if !ok {
		state = DefaultState(r.now())
	}
	state = fn(state)
	r.sessions[tab] = state
	return state
}

// Drop removes a tab's live session.
func (r *Registry) Drop(tab string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, tab)
}
