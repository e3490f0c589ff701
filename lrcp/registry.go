package lrcp

import (
	"github.com/puzpuzpuz/xsync/v3"
)

// Registry maps session ids to open sessions. It is safe for concurrent use.
type Registry struct {
	sessions *xsync.MapOf[uint64, *Session]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: xsync.NewMapOf[uint64, *Session]()}
}

// LoadOrCreate returns the open session for id, or stores the session built by newFn.
// The boolean result reports whether a new session was created.
func (r *Registry) LoadOrCreate(id uint64, newFn func() *Session) (*Session, bool) {
	sess, loaded := r.sessions.LoadOrCompute(id, newFn)
	return sess, !loaded
}

// Get returns the open session for id.
func (r *Registry) Get(id uint64) (*Session, bool) {
	return r.sessions.Load(id)
}

// Remove deletes s from the registry if it is still the entry for its id.
// It reports whether s was removed by this call.
func (r *Registry) Remove(s *Session) bool {
	removed := false
	r.sessions.Compute(s.id, func(cur *Session, loaded bool) (*Session, bool) {
		if !loaded {
			return cur, true
		}
		if cur != s {
			return cur, false
		}
		removed = true

		return nil, true
	})

	return removed
}

// Contains reports whether s is the current registry entry for its id.
func (r *Registry) Contains(s *Session) bool {
	cur, ok := r.sessions.Load(s.id)
	return ok && cur == s
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	return r.sessions.Size()
}

// Range calls f for each open session until f returns false.
func (r *Registry) Range(f func(s *Session) bool) {
	r.sessions.Range(func(_ uint64, s *Session) bool {
		return f(s)
	})
}
