package chat

import (
	"context"
	"encoding/json"
	"testing"

	"go.uber.org/zap"
)

func newTestService() (*Service, *Registry, *MemStore) {
	registry := NewRegistry()
	router := NewRouter(registry, zap.NewNop())
	registry.OnChange(NewBroadcaster(router, zap.NewNop()).PresenceChanged)
	store := NewMemStore()
	svc := NewService(store, router, registry, nil, nil, zap.NewNop())
	return svc, registry, store
}

func TestSendDeliversToOnlineReceiver(t *testing.T) {
	svc, _, _ := newTestService()
	receiver := NewSession(2)
	svc.Connect(receiver)

	msg, err := svc.Send(context.Background(), 1, 2, &SendRequest{Text: "hi"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	frame := recvNamed(t, receiver, EventNewMessage)
	var got Message
	if err := json.Unmarshal(frame.Payload, &got); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if got.ID != msg.ID || got.Text != "hi" || got.SenderID != 1 {
		t.Errorf("delivered message = %+v, want the persisted one", got)
	}
}

func TestSendToOfflineReceiverPersistsWithoutDelivery(t *testing.T) {
	svc, _, store := newTestService()

	msg, err := svc.Send(context.Background(), 1, 2, &SendRequest{Text: "hi"})
	if err != nil {
		t.Fatalf("Send while receiver offline: %v", err)
	}
	if msg.Read {
		t.Error("message created with read=true")
	}

	msgs, err := store.ListConversation(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("ListConversation: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Read {
		t.Fatalf("persisted state = %+v, want one unread message", msgs)
	}
}

func TestNoBackfillOnConnect(t *testing.T) {
	svc, _, _ := newTestService()

	if _, err := svc.Send(context.Background(), 1, 2, &SendRequest{Text: "hi"}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	// Receiver connects after the send: the event is gone for good.
	receiver := NewSession(2)
	svc.Connect(receiver)
	expectNone(t, receiver, EventNewMessage)
}

func TestSendRejectsEmptyMessage(t *testing.T) {
	svc, _, _ := newTestService()

	if _, err := svc.Send(context.Background(), 1, 2, &SendRequest{}); err == nil {
		t.Fatal("Send with neither text nor image succeeded")
	}
}

func TestReactNotifiesBothParticipants(t *testing.T) {
	svc, _, _ := newTestService()
	sender := NewSession(1)
	receiver := NewSession(2)
	svc.Connect(sender)
	svc.Connect(receiver)

	msg, err := svc.Send(context.Background(), 1, 2, &SendRequest{Text: "hi"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	reactions, err := svc.React(context.Background(), msg.ID, 2, "👍")
	if err != nil {
		t.Fatalf("React: %v", err)
	}
	if len(reactions) != 1 {
		t.Fatalf("got %d reactions, want 1", len(reactions))
	}

	for _, s := range []*Session{sender, receiver} {
		frame := recvNamed(t, s, EventReactionUpdate)
		var p ReactionUpdatePayload
		if err := json.Unmarshal(frame.Payload, &p); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if p.MessageID != msg.ID || len(p.Reactions) != 1 {
			t.Errorf("user %d got %+v", s.UserID, p)
		}
	}
}

func TestMarkReadNotifiesPartner(t *testing.T) {
	svc, _, _ := newTestService()
	partner := NewSession(1)
	svc.Connect(partner)

	svc.Send(context.Background(), 1, 2, &SendRequest{Text: "one"})
	m2, _ := svc.Send(context.Background(), 1, 2, &SendRequest{Text: "two"})

	updated, err := svc.MarkRead(context.Background(), 1, 2, m2.ID)
	if err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if updated != 2 {
		t.Fatalf("updated = %d, want 2", updated)
	}

	frame := recvNamed(t, partner, EventMessagesRead)
	var p ReadReceiptPayload
	if err := json.Unmarshal(frame.Payload, &p); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if p.ReaderID != 2 || p.ChatRoomID != 2 || p.LastMessageID != m2.ID {
		t.Errorf("receipt payload = %+v", p)
	}
}

func TestRelayReadAckSkipsStoreAndSelf(t *testing.T) {
	svc, _, store := newTestService()
	partner := NewSession(1)
	reader := NewSession(2)
	svc.Connect(partner)
	svc.Connect(reader)

	msg, _ := svc.Send(context.Background(), 1, 2, &SendRequest{Text: "hi"})

	svc.RelayReadAck(context.Background(), 2, 1, msg.ID)

	frame := recvNamed(t, partner, EventMessagesRead)
	var p ReadReceiptPayload
	if err := json.Unmarshal(frame.Payload, &p); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if p.ReaderID != 2 {
		t.Errorf("receipt payload = %+v", p)
	}

	// Echo path never writes the durable read flag.
	msgs, _ := store.ListConversation(context.Background(), 1, 2)
	if msgs[0].Read {
		t.Error("RelayReadAck mutated the stored read flag")
	}

	// And never echoes to the reader itself.
	expectNone(t, reader, EventMessagesRead)
}

func TestTypingRelayedToReceiver(t *testing.T) {
	svc, _, _ := newTestService()
	receiver := NewSession(2)
	svc.Connect(receiver)

	svc.Typing(context.Background(), 1, 2, true)

	frame := recvNamed(t, receiver, EventTyping)
	var p TypingPayload
	if err := json.Unmarshal(frame.Payload, &p); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if p.SenderID != 1 || !p.IsTyping {
		t.Errorf("typing payload = %+v", p)
	}
}

func TestDisconnectEmitsStopTyping(t *testing.T) {
	svc, _, _ := newTestService()
	typist := NewSession(1)
	receiver := NewSession(2)
	svc.Connect(typist)
	svc.Connect(receiver)

	svc.Typing(context.Background(), 1, 2, true)
	recvNamed(t, receiver, EventTyping) // the live indicator

	svc.Disconnect(typist)

	frame := recvNamed(t, receiver, EventTyping)
	var p TypingPayload
	if err := json.Unmarshal(frame.Payload, &p); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if p.SenderID != 1 || p.IsTyping {
		t.Errorf("payload after disconnect = %+v, want isTyping=false", p)
	}
}

func TestStaleDisconnectKeepsNewSessionDeliverable(t *testing.T) {
	svc, registry, _ := newTestService()
	old := NewSession(2)
	svc.Connect(old)
	fresh := NewSession(2)
	svc.Connect(fresh)

	// The replaced connection's read pump winds down late.
	svc.Disconnect(old)

	if registry.Lookup(2) != fresh {
		t.Fatal("stale disconnect evicted the fresh session")
	}
	if _, err := svc.Send(context.Background(), 1, 2, &SendRequest{Text: "hi"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	recvNamed(t, fresh, EventNewMessage)
}
