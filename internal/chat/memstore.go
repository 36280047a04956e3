package chat

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemStore is an in-memory MessageStore for tests and single-process
// development runs. One mutex guards all state, which trivially gives
// the per-message write serialization ToggleReaction requires.
type MemStore struct {
	mu       sync.Mutex
	nextID   int64
	order    []int64
	messages map[int64]*Message
}

func NewMemStore() *MemStore {
	return &MemStore{messages: make(map[int64]*Message)}
}

var _ MessageStore = (*MemStore)(nil)

func (m *MemStore) Create(_ context.Context, senderID, receiverID int64, text, imageURL string) (*Message, error) {
	if text == "" && imageURL == "" {
		return nil, fmt.Errorf("%w: text or image required", ErrValidation)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	msg := &Message{
		ID:         m.nextID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Text:       text,
		ImageURL:   imageURL,
		Reactions:  []Reaction{},
		CreatedAt:  time.Now(),
	}
	m.messages[msg.ID] = msg
	m.order = append(m.order, msg.ID)
	return copyMessage(msg), nil
}

func (m *MemStore) ListConversation(_ context.Context, userA, userB int64) ([]*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []*Message{}
	for _, id := range m.order {
		msg := m.messages[id]
		if (msg.SenderID == userA && msg.ReceiverID == userB) ||
			(msg.SenderID == userB && msg.ReceiverID == userA) {
			out = append(out, copyMessage(msg))
		}
	}
	return out, nil
}

// ToggleReaction scans for an exact (userID, emoji) entry: present
// means remove, absent means append. A user may hold several
// reactions with different emojis on the same message.
func (m *MemStore) ToggleReaction(_ context.Context, messageID, userID int64, emoji string) (*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	msg, ok := m.messages[messageID]
	if !ok {
		return nil, ErrNotFound
	}

	found := -1
	for i, reaction := range msg.Reactions {
		if reaction.UserID == userID && reaction.Emoji == emoji {
			found = i
			break
		}
	}
	if found >= 0 {
		msg.Reactions = append(msg.Reactions[:found], msg.Reactions[found+1:]...)
	} else {
		msg.Reactions = append(msg.Reactions, Reaction{UserID: userID, Emoji: emoji})
	}
	return copyMessage(msg), nil
}

func (m *MemStore) MarkRead(_ context.Context, partnerID, readerID, throughMessageID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var updated int64
	for _, id := range m.order {
		msg := m.messages[id]
		if msg.SenderID == partnerID && msg.ReceiverID == readerID &&
			msg.ID <= throughMessageID && !msg.Read {
			msg.Read = true
			updated++
		}
	}
	return updated, nil
}

// copyMessage hands callers their own message and reaction slice so
// later store mutations cannot race with a caller still reading.
func copyMessage(msg *Message) *Message {
	out := *msg
	out.Reactions = make([]Reaction, len(msg.Reactions))
	copy(out.Reactions, msg.Reactions)
	return &out
}
