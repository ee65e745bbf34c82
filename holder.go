package authbridge

import "sync"

// SessionHolder owns the single current-user snapshot for one App. All
// mutation goes through Set, which adapts the raw payload, records that an
// authoritative result has arrived, and returns the snapshot the caller must
// republish. Access is serialized so the holder stays safe when the host
// invokes it from multiple goroutines.
type SessionHolder struct {
	mu       sync.Mutex
	current  *Snapshot
	resolved bool
}

func NewSessionHolder() *SessionHolder {
	return &SessionHolder{}
}

// Current returns the current snapshot, or nil when no user is signed in.
func (h *SessionHolder) Current() *Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// Resolved reports whether at least one authoritative result has ever been
// processed. Once true it stays true for the holder's lifetime.
func (h *SessionHolder) Resolved() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.resolved
}

// Set replaces the current snapshot with the adapted form of raw and returns
// the new snapshot. Writers must republish the returned value, not one they
// captured earlier: Set is last-write-wins, and republishing a stale capture
// would resurrect a snapshot a concurrent writer already superseded.
func (h *SessionHolder) Set(raw *RawUser) *Snapshot {
	snap := AdaptUser(raw)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = snap
	h.resolved = true
	return snap
}
