package capture

import "sync"

// Registry is the shared map from target name to its open session. It exists
// so a target that rotates back onto any lane keeps filling the same session
// instead of fragmenting its capture across directories.
type Registry struct {
	mu   sync.Mutex
	open map[string]*Session
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{open: make(map[string]*Session)}
}

// Acquire returns the open session for target, calling factory to create and
// register one when none exists. The factory runs under the registry lock so
// two lanes rebinding to the same target in the same instant resolve to one
// session.
func (r *Registry) Acquire(target string, factory func() (*Session, error)) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sess, ok := r.open[target]; ok && !sess.Finalized() {
		return sess, nil
	}
	sess, err := factory()
	if err != nil {
		return nil, err
	}
	r.open[target] = sess
	return sess, nil
}

// Lookup returns the open session for target, if any. A session that has
// already been finalized but not yet removed does not count as open.
func (r *Registry) Lookup(target string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.open[target]
	if !ok || sess.Finalized() {
		return nil, false
	}
	return sess, true
}

// Remove deletes the mapping for target, but only while it still points at
// the session with the given id. A stale removal after another lane has
// already opened a fresh session for the target must not evict the new one.
func (r *Registry) Remove(target, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sess, ok := r.open[target]; ok && sess.ID == id {
		delete(r.open, target)
	}
}

// Open returns a snapshot of all open sessions, used to drain the registry at
// shutdown.
func (r *Registry) Open() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	sessions := make([]*Session, 0, len(r.open))
	for _, sess := range r.open {
		sessions = append(sessions, sess)
	}
	return sessions
}
