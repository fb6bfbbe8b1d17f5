package realtime

import (
	"sort"
	"sync"
)

// Conn is one live real-time session owned by the Registry.
// Send must not block: implementations enqueue and return an error when the
// session is closed or cannot keep up.
type Conn interface {
	ID() string
	Send(msg []byte) error
	Close() error
}

// CountChangeHandler is called after the number of registered connections changes.
// Calls are serialized. It must not register or unregister connections.
type CountChangeHandler func(count int)

type registryEntry struct {
	conn Conn
	seq  uint64
}

// Registry tracks live connections. Register, Unregister and Snapshot are atomic
// relative to each other; Snapshot hands out a copy so callers never iterate
// the live map.
type Registry struct {
	mu       sync.RWMutex
	conns    map[string]registryEntry
	seq      uint64
	onChange CountChangeHandler

	// hookMu serializes onChange calls; each call re-reads the count so the
	// last reported value is always the current one.
	hookMu sync.Mutex
}

// NewRegistry creates an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]registryEntry)}
}

// SetCountChangeHandler sets the callback fired after register/unregister (e.g. a gauge).
func (r *Registry) SetCountChangeHandler(fn CountChangeHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = fn
}

// Register adds c and returns the handle used to unregister it. Registering a
// handle that is already present keeps the original entry.
func (r *Registry) Register(c Conn) string {
	id := c.ID()
	r.mu.Lock()
	if _, ok := r.conns[id]; ok {
		r.mu.Unlock()
		return id
	}
	r.seq++
	r.conns[id] = registryEntry{conn: c, seq: r.seq}
	r.mu.Unlock()

	r.countChanged()
	return id
}

// Unregister removes the connection with the given handle. It is a no-op when the
// handle is unknown, so racing cleanup paths may both call it. Reports whether an
// entry was removed.
func (r *Registry) Unregister(handle string) bool {
	r.mu.Lock()
	if _, ok := r.conns[handle]; !ok {
		r.mu.Unlock()
		return false
	}
	delete(r.conns, handle)
	r.mu.Unlock()

	r.countChanged()
	return true
}

func (r *Registry) countChanged() {
	r.hookMu.Lock()
	defer r.hookMu.Unlock()
	r.mu.RLock()
	onChange := r.onChange
	count := len(r.conns)
	r.mu.RUnlock()
	if onChange != nil {
		onChange(count)
	}
}

// Snapshot returns the live connections in registration order.
func (r *Registry) Snapshot() []Conn {
	r.mu.RLock()
	entries := make([]registryEntry, 0, len(r.conns))
	for _, e := range r.conns {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
	out := make([]Conn, len(entries))
	for i, e := range entries {
		out[i] = e.conn
	}
	return out
}

// Count returns the number of registered connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// CloseAll unregisters and closes every connection. Used on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	conns := make([]Conn, 0, len(r.conns))
	for _, e := range r.conns {
		conns = append(conns, e.conn)
	}
	r.conns = make(map[string]registryEntry)
	r.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
	if len(conns) > 0 {
		r.countChanged()
	}
}
