package chat

import (
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/zap"
)

// recvFrame pops the next queued frame from a session's send buffer.
func recvFrame(t *testing.T, s *Session) inboundFrame {
	t.Helper()
	select {
	case raw, ok := <-s.send:
		if !ok {
			t.Fatal("session send channel closed")
		}
		var frame inboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		return frame
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for frame")
	}
	return inboundFrame{}
}

// recvNamed drains frames until one with the given event name arrives.
func recvNamed(t *testing.T, s *Session, name string) inboundFrame {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case raw, ok := <-s.send:
			if !ok {
				t.Fatalf("session closed while waiting for %q", name)
			}
			var frame inboundFrame
			if err := json.Unmarshal(raw, &frame); err != nil {
				t.Fatalf("decode frame: %v", err)
			}
			if frame.Event == name {
				return frame
			}
		case <-deadline:
			t.Fatalf("timeout waiting for %q", name)
		}
	}
}

// expectNone asserts no frame with the given name is queued.
func expectNone(t *testing.T, s *Session, name string) {
	t.Helper()
	for {
		select {
		case raw, ok := <-s.send:
			if !ok {
				return
			}
			var frame inboundFrame
			if err := json.Unmarshal(raw, &frame); err != nil {
				continue
			}
			if frame.Event == name {
				t.Fatalf("unexpected %q frame: %s", name, frame.Payload)
			}
		case <-time.After(50 * time.Millisecond):
			return
		}
	}
}

func TestDeliverToRegisteredSession(t *testing.T) {
	r := NewRegistry()
	router := NewRouter(r, zap.NewNop())
	s := NewSession(1)
	r.Register(s)

	if !router.Deliver(1, TypingEvent(2, 1, true)) {
		t.Fatal("Deliver returned false for an online user")
	}

	frame := recvFrame(t, s)
	if frame.Event != EventTyping {
		t.Errorf("got event %q, want %q", frame.Event, EventTyping)
	}
	var p TypingPayload
	if err := json.Unmarshal(frame.Payload, &p); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if p.SenderID != 2 || p.ReceiverID != 1 || !p.IsTyping {
		t.Errorf("payload = %+v", p)
	}
}

func TestDeliverMissReturnsFalse(t *testing.T) {
	r := NewRegistry()
	router := NewRouter(r, zap.NewNop())

	if router.Deliver(99, TypingEvent(1, 99, true)) {
		t.Fatal("Deliver returned true with no registered session")
	}
}

func TestDeliverPreservesPerSessionOrder(t *testing.T) {
	r := NewRegistry()
	router := NewRouter(r, zap.NewNop())
	s := NewSession(1)
	r.Register(s)

	for i := 0; i < 10; i++ {
		router.Deliver(1, Event{Name: EventTyping, Payload: i})
	}

	for i := 0; i < 10; i++ {
		frame := recvFrame(t, s)
		var got int
		if err := json.Unmarshal(frame.Payload, &got); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if got != i {
			t.Fatalf("frame %d carried payload %d, want FIFO order", i, got)
		}
	}
}

func TestDeliverDropsOnFullBuffer(t *testing.T) {
	r := NewRegistry()
	router := NewRouter(r, zap.NewNop())
	s := NewSession(1)
	r.Register(s)

	for i := 0; i < sendBuffer; i++ {
		if !s.push([]byte("fill")) {
			t.Fatalf("buffer filled early at %d", i)
		}
	}

	if router.Deliver(1, TypingEvent(2, 1, true)) {
		t.Fatal("Deliver returned true on a full session buffer")
	}
}

func TestBroadcastReachesAllSessions(t *testing.T) {
	r := NewRegistry()
	router := NewRouter(r, zap.NewNop())
	sessions := []*Session{NewSession(1), NewSession(2), NewSession(3)}
	for _, s := range sessions {
		r.Register(s)
	}

	router.Broadcast(OnlineUsersEvent([]int64{1, 2, 3}))

	for _, s := range sessions {
		frame := recvNamed(t, s, EventOnlineUsers)
		var ids []int64
		if err := json.Unmarshal(frame.Payload, &ids); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if len(ids) != 3 {
			t.Errorf("user %d got online set %v, want 3 entries", s.UserID, ids)
		}
	}
}

func TestRegisterBroadcastsPresence(t *testing.T) {
	r := NewRegistry()
	router := NewRouter(r, zap.NewNop())
	r.OnChange(NewBroadcaster(router, zap.NewNop()).PresenceChanged)

	s1 := NewSession(1)
	r.Register(s1)
	frame := recvNamed(t, s1, EventOnlineUsers)
	var ids []int64
	if err := json.Unmarshal(frame.Payload, &ids); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if len(ids) != 1 || ids[0] != 1 {
		t.Fatalf("online set = %v, want [1]", ids)
	}

	// A second connect fans the grown set out to everyone.
	s2 := NewSession(2)
	r.Register(s2)
	for _, s := range []*Session{s1, s2} {
		frame := recvNamed(t, s, EventOnlineUsers)
		var ids []int64
		if err := json.Unmarshal(frame.Payload, &ids); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if len(ids) != 2 {
			t.Errorf("user %d saw online set %v, want [1 2]", s.UserID, ids)
		}
	}
}
