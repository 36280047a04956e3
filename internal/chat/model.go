package chat

import "time"

// ---------------------------------------------
// Database & API models
// ---------------------------------------------

// Reaction is one (user, emoji) pair on a message. The pair is unique
// within a message; insertion order is preserved for display.
type Reaction struct {
	UserID int64  `json:"userId"`
	Emoji  string `json:"emoji"`
}

type Message struct {
	ID         int64      `json:"id"`
	SenderID   int64      `json:"senderId"`
	ReceiverID int64      `json:"receiverId"`
	Text       string     `json:"text,omitempty"`
	ImageURL   string     `json:"image,omitempty"`
	Reactions  []Reaction `json:"reactions"`
	Read       bool       `json:"read"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// SendRequest is the body of POST /api/messages/send/{peerID}.
// Image is a data URL (uploaded) or an http(s) URL (passed through).
type SendRequest struct {
	Text  string `json:"text"`
	Image string `json:"image"`
}

type ReactRequest struct {
	Emoji string `json:"emoji"`
}

type MarkReadRequest struct {
	LastMessageID int64 `json:"lastMessageId"`
}

type MarkReadResponse struct {
	Message string `json:"message"`
	Updated int64  `json:"updated"`
}
