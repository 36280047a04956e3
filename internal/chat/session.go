package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// sendBuffer bounds the per-session outbound queue. A session that
// cannot drain this many events gets frames dropped, not queued.
const sendBuffer = 256

// Session is one live transport connection for one user. Created on
// connect, destroyed on disconnect; the Registry owns the mapping.
type Session struct {
	ID          string
	UserID      int64
	ConnectedAt time.Time

	mu     sync.Mutex
	closed bool
	send   chan []byte
}

func NewSession(userID int64) *Session {
	return &Session{
		ID:          uuid.NewString(),
		UserID:      userID,
		ConnectedAt: time.Now(),
		send:        make(chan []byte, sendBuffer),
	}
}

// push queues an outbound frame without blocking. Returns false when
// the session is closed or its buffer is full.
func (s *Session) push(frame []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.send <- frame:
		return true
	default:
		return false
	}
}

// Close shuts the outbound queue, stopping the write pump. Safe to
// call more than once and concurrently with push.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.send)
}
