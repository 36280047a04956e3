package chat

import "encoding/json"

// Event names on the wire. Clients switch on the "event" field of the
// envelope; payload shapes are fixed per name.
const (
	EventNewMessage     = "newMessage"
	EventReactionUpdate = "messageReactionUpdate"
	EventMessagesRead   = "messagesRead"
	EventTyping         = "typing"
	EventOnlineUsers    = "getOnlineUsers"
)

// Event is the envelope every websocket frame carries, inbound and
// outbound: {"event": name, "payload": ...}.
type Event struct {
	Name    string `json:"event"`
	Payload any    `json:"payload"`
}

func (e Event) encode() ([]byte, error) {
	return json.Marshal(e)
}

type ReactionUpdatePayload struct {
	MessageID int64      `json:"messageId"`
	Reactions []Reaction `json:"reactions"`
}

// ReadReceiptPayload announces a bulk read-mark to the original sender.
// ChatRoomID carries the reader's id (client-side contract).
type ReadReceiptPayload struct {
	ReaderID      int64 `json:"readerId"`
	ChatRoomID    int64 `json:"chatRoomId"`
	LastMessageID int64 `json:"lastMessageId"`
}

type TypingPayload struct {
	SenderID   int64 `json:"senderId"`
	ReceiverID int64 `json:"receiverId"`
	IsTyping   bool  `json:"isTyping"`
}

func NewMessageEvent(msg *Message) Event {
	return Event{Name: EventNewMessage, Payload: msg}
}

func ReactionUpdateEvent(messageID int64, reactions []Reaction) Event {
	return Event{Name: EventReactionUpdate, Payload: ReactionUpdatePayload{
		MessageID: messageID,
		Reactions: reactions,
	}}
}

func ReadReceiptEvent(readerID, lastMessageID int64) Event {
	return Event{Name: EventMessagesRead, Payload: ReadReceiptPayload{
		ReaderID:      readerID,
		ChatRoomID:    readerID,
		LastMessageID: lastMessageID,
	}}
}

func TypingEvent(senderID, receiverID int64, isTyping bool) Event {
	return Event{Name: EventTyping, Payload: TypingPayload{
		SenderID:   senderID,
		ReceiverID: receiverID,
		IsTyping:   isTyping,
	}}
}

func OnlineUsersEvent(userIDs []int64) Event {
	return Event{Name: EventOnlineUsers, Payload: userIDs}
}
