package hub

import (
	"sync"

	"github.com/samber/lo"
)

// RegisteredWriter pairs a session identity with its writer for use in
// membership snapshots.
type RegisteredWriter struct {
	ID     string
	Writer *Writer
}

// Registry tracks every live session: its writer keyed by connection
// identity and, once the handshake completes, its display name. One lock
// guards both tables so writer snapshots and roster snapshots never
// disagree about membership.
type Registry struct {
	mu      sync.RWMutex
	writers map[string]*Writer
	names   map[string]string
	order   []string
	closed  bool
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{
		writers: make(map[string]*Writer),
		names:   make(map[string]string),
	}
}

// Register adds a session writer under its connection identity. The
// session has no roster presence until SetName records its handshake.
func (r *Registry) Register(id string, w *Writer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRegistryClosed
	}
	if _, exists := r.writers[id]; exists {
		return ErrSessionExists
	}
	r.writers[id] = w
	r.order = append(r.order, id)
	return nil
}

// SetName records the display name once a session's handshake completes.
func (r *Registry) SetName(id, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRegistryClosed
	}
	if _, exists := r.writers[id]; !exists {
		return ErrSessionNotFound
	}
	r.names[id] = name
	return nil
}

// Name returns the display name recorded for an identity.
func (r *Registry) Name(id string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name, exists := r.names[id]
	return name, exists
}

// Unregister removes a session from both tables. Removing an unknown or
// already removed identity is a no-op, so teardown and broadcast pruning
// can race without harm.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.writers[id]; !exists {
		return
	}
	delete(r.writers, id)
	delete(r.names, id)
	for i, other := range r.order {
		if other == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// SnapshotWriters returns the registered writers in registration order.
// Callers write against the snapshot outside the registry lock.
func (r *Registry) SnapshotWriters() []RegisteredWriter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.FilterMap(r.order, func(id string, _ int) (RegisteredWriter, bool) {
		w, exists := r.writers[id]
		return RegisteredWriter{ID: id, Writer: w}, exists
	})
}

// SnapshotNames returns the display names of sessions whose handshake
// completed, in registration order.
func (r *Registry) SnapshotNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.FilterMap(r.order, func(id string, _ int) (string, bool) {
		name, exists := r.names[id]
		return name, exists
	})
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.writers)
}

// Close marks the registry closed and returns the writers that were
// registered so the caller can close their connections. Register and
// SetName fail with ErrRegistryClosed afterward.
func (r *Registry) Close() []*Writer {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	writers := make([]*Writer, 0, len(r.writers))
	for _, id := range r.order {
		writers = append(writers, r.writers[id])
	}
	r.writers = make(map[string]*Writer)
	r.names = make(map[string]string)
	r.order = nil
	return writers
}
