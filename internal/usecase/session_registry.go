package usecase

import (
	"sync"

	"agent-orchestrator/internal/domain"
)

// SessionRegistry maps session IDs to their current IndexHandle and
// serializes indexing per session.
//
// Handles are immutable snapshots: a reader that obtained a handle keeps a
// consistent view even while a re-index replaces the registry entry, and the
// vector index adapter guarantees searches see fully-old or fully-new
// collections. IndexLock provides the single-writer property required for
// re-indexing; retrieval never takes it.
type SessionRegistry struct {
	mu      sync.RWMutex
	handles map[string]*domain.IndexHandle
	writers map[string]*sync.Mutex
}

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		handles: make(map[string]*domain.IndexHandle),
		writers: make(map[string]*sync.Mutex),
	}
}

// Get returns the current handle for the session, or nil if the session has
// no index.
func (r *SessionRegistry) Get(sessionID string) *domain.IndexHandle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.handles[sessionID]
}

// Put replaces the session's handle.
func (r *SessionRegistry) Put(handle *domain.IndexHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handles[handle.SessionID] = handle
}

// Delete discards the session's handle. Deleting an unknown session is a
// no-op.
func (r *SessionRegistry) Delete(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handles, sessionID)
}

// IndexLock returns the per-session mutex that indexing must hold for the
// duration of a (re-)index run.
func (r *SessionRegistry) IndexLock(sessionID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.writers[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		r.writers[sessionID] = lock
	}
	return lock
}
