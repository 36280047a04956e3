package chat

import (
	"sort"
	"sync"
)

// PresenceFunc is invoked with a fresh online snapshot after every
// successful registry mutation. It runs outside the registry lock.
type PresenceFunc func(online []int64)

// Registry is the authoritative in-memory map of userID to live
// session. At most one session per user: a later Register for the
// same user replaces (and closes) the earlier session.
//
// It also holds the ephemeral typing state: the latest isTyping flag
// per (sender, receiver) pair. Typing state is never persisted and is
// dropped when the sender's session is unregistered.
type Registry struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
	typing   map[int64]map[int64]bool // senderID -> receiverID -> isTyping
	onChange PresenceFunc

	// notifyMu is held across snapshot-plus-callback so presence
	// broadcasts go out in mutation order: the last broadcast clients
	// retain always matches the registry's final state.
	notifyMu sync.Mutex
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[int64]*Session),
		typing:   make(map[int64]map[int64]bool),
	}
}

// OnChange installs the presence callback. Must be called before any
// session registers.
func (r *Registry) OnChange(fn PresenceFunc) {
	r.onChange = fn
}

// Register maps sess.UserID to sess, replacing any prior session for
// that user (last-writer-wins, no error). The replaced session is
// closed so its pumps wind down.
func (r *Registry) Register(sess *Session) {
	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()

	r.mu.Lock()
	prev := r.sessions[sess.UserID]
	r.sessions[sess.UserID] = sess
	online := r.onlineLocked()
	r.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
	if r.onChange != nil {
		r.onChange(online)
	}
}

// Unregister removes the mapping only if sess is still the registered
// session for its user. A disconnect from a superseded connection is
// ignored, so it cannot evict a newer session. Reports whether the
// mapping was removed.
func (r *Registry) Unregister(sess *Session) bool {
	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()

	r.mu.Lock()
	cur, ok := r.sessions[sess.UserID]
	if !ok || cur != sess {
		r.mu.Unlock()
		return false
	}
	delete(r.sessions, sess.UserID)
	delete(r.typing, sess.UserID)
	online := r.onlineLocked()
	r.mu.Unlock()

	sess.Close()
	if r.onChange != nil {
		r.onChange(online)
	}
	return true
}

// Lookup returns the current session for userID, or nil.
func (r *Registry) Lookup(userID int64) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[userID]
}

// OnlineUserIDs returns a sorted snapshot of all registered users.
func (r *Registry) OnlineUserIDs() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.onlineLocked()
}

// Sessions returns a snapshot of every registered session.
func (r *Registry) Sessions() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// SetTyping records the latest typing flag from senderID toward
// receiverID. A false flag clears the pair.
func (r *Registry) SetTyping(senderID, receiverID int64, isTyping bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !isTyping {
		if peers, ok := r.typing[senderID]; ok {
			delete(peers, receiverID)
			if len(peers) == 0 {
				delete(r.typing, senderID)
			}
		}
		return
	}
	peers, ok := r.typing[senderID]
	if !ok {
		peers = make(map[int64]bool)
		r.typing[senderID] = peers
	}
	peers[receiverID] = true
}

// TypingPeers lists the receivers senderID is currently marked as
// typing to. Used to emit synthetic stop-typing on disconnect.
func (r *Registry) TypingPeers(senderID int64) []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	peers := r.typing[senderID]
	out := make([]int64, 0, len(peers))
	for id := range peers {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *Registry) onlineLocked() []int64 {
	out := make([]int64, 0, len(r.sessions))
	for id := range r.sessions {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
