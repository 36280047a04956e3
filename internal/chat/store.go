package chat

import (
	"context"
	"errors"
)

var (
	// ErrNotFound reports a referenced message that does not exist.
	ErrNotFound = errors.New("message not found")
	// ErrValidation reports malformed input, e.g. a message with
	// neither text nor image.
	ErrValidation = errors.New("invalid message")
)

// MessageStore is the durable source of truth the router's events
// merely announce. Implementations must serialize reaction toggles
// per message: two concurrent toggles may not lose either update.
type MessageStore interface {
	// Create persists a new unread message. Fails with ErrValidation
	// when both text and imageURL are empty.
	Create(ctx context.Context, senderID, receiverID int64, text, imageURL string) (*Message, error)

	// ListConversation returns every message between the pair, in
	// creation order, regardless of direction.
	ListConversation(ctx context.Context, userA, userB int64) ([]*Message, error)

	// ToggleReaction removes the (userID, emoji) reaction if present,
	// adds it otherwise, and returns the message with its updated
	// reaction list. Fails with ErrNotFound for unknown messages.
	ToggleReaction(ctx context.Context, messageID, userID int64, emoji string) (*Message, error)

	// MarkRead flips read=true on every unread message from partnerID
	// to readerID with id <= throughMessageID, returning the number of
	// messages updated. Idempotent: the read flag never goes back.
	MarkRead(ctx context.Context, partnerID, readerID, throughMessageID int64) (int64, error)
}
