package chat

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"pairchat/internal/blob"
)

// Service runs the message flows: validate against the store, persist,
// then announce to the affected sessions via the router. Store calls
// never happen while registry locks are held.
type Service struct {
	store    MessageStore
	router   *Router
	registry *Registry
	uploader blob.Uploader
	relay    *Relay // nil when single-instance
	log      *zap.Logger
}

func NewService(store MessageStore, router *Router, registry *Registry, uploader blob.Uploader, relay *Relay, log *zap.Logger) *Service {
	return &Service{
		store:    store,
		router:   router,
		registry: registry,
		uploader: uploader,
		relay:    relay,
		log:      log,
	}
}

// Connect registers a fresh session. Any prior session for the same
// user is replaced.
func (s *Service) Connect(sess *Session) {
	s.registry.Register(sess)
	s.log.Info("session connected",
		zap.Int64("user", sess.UserID), zap.String("session", sess.ID))
}

// Disconnect removes sess from the registry if it is still current,
// then tells every peer the user was typing to that typing stopped.
// A stale disconnect from a superseded connection is a no-op.
func (s *Service) Disconnect(sess *Session) {
	peers := s.registry.TypingPeers(sess.UserID)
	if !s.registry.Unregister(sess) {
		s.log.Debug("stale disconnect ignored",
			zap.Int64("user", sess.UserID), zap.String("session", sess.ID))
		return
	}
	for _, receiverID := range peers {
		s.deliver(context.Background(), receiverID, TypingEvent(sess.UserID, receiverID, false))
	}
	s.log.Info("session disconnected",
		zap.Int64("user", sess.UserID), zap.String("session", sess.ID))
}

// Send uploads the image if one is attached, persists the message,
// and announces it to the receiver. The message is returned whether
// or not the receiver was online.
func (s *Service) Send(ctx context.Context, senderID, receiverID int64, req *SendRequest) (*Message, error) {
	imageURL := ""
	if req.Image != "" {
		url, err := s.uploader.Upload(ctx, req.Image)
		if err != nil {
			if errors.Is(err, blob.ErrBadImage) {
				return nil, fmt.Errorf("%w: %v", ErrValidation, err)
			}
			return nil, fmt.Errorf("upload image: %w", err)
		}
		imageURL = url
	}

	msg, err := s.store.Create(ctx, senderID, receiverID, req.Text, imageURL)
	if err != nil {
		return nil, err
	}

	s.deliver(ctx, receiverID, NewMessageEvent(msg))
	return msg, nil
}

// ListConversation returns the full ordered conversation between the
// caller and a peer.
func (s *Service) ListConversation(ctx context.Context, callerID, peerID int64) ([]*Message, error) {
	return s.store.ListConversation(ctx, callerID, peerID)
}

// React toggles the (userID, emoji) reaction and announces the
// updated list to both conversation participants. When sender and
// receiver are the same user the update is delivered once.
func (s *Service) React(ctx context.Context, messageID, userID int64, emoji string) ([]Reaction, error) {
	msg, err := s.store.ToggleReaction(ctx, messageID, userID, emoji)
	if err != nil {
		return nil, err
	}

	evt := ReactionUpdateEvent(msg.ID, msg.Reactions)
	s.deliver(ctx, msg.SenderID, evt)
	if msg.ReceiverID != msg.SenderID {
		s.deliver(ctx, msg.ReceiverID, evt)
	}
	return msg.Reactions, nil
}

// MarkRead bulk-marks everything partnerID sent the reader up to the
// watermark, then tells the partner their messages were read.
func (s *Service) MarkRead(ctx context.Context, partnerID, readerID, lastMessageID int64) (int64, error) {
	updated, err := s.store.MarkRead(ctx, partnerID, readerID, lastMessageID)
	if err != nil {
		return 0, err
	}

	s.deliver(ctx, partnerID, ReadReceiptEvent(readerID, lastMessageID))
	return updated, nil
}

// RelayReadAck forwards a read acknowledgement to the partner without
// touching the store. Used by the socket path so a client can echo a
// receipt without re-triggering the bulk update. Never echoed back to
// the reader's own session.
func (s *Service) RelayReadAck(ctx context.Context, readerID, partnerID, lastMessageID int64) {
	if partnerID == readerID {
		return
	}
	s.deliver(ctx, partnerID, ReadReceiptEvent(readerID, lastMessageID))
}

// Typing records the sender's latest typing flag and relays it to the
// receiver. Nothing is persisted; liveness depends on the client
// sending isTyping=false (or disconnecting).
func (s *Service) Typing(ctx context.Context, senderID, receiverID int64, isTyping bool) {
	s.registry.SetTyping(senderID, receiverID, isTyping)
	s.deliver(ctx, receiverID, TypingEvent(senderID, receiverID, isTyping))
}

// deliver tries the local registry first; a miss is handed to the
// relay (when configured) in case the target lives on a peer
// instance. A miss everywhere is routine and the event is dropped.
func (s *Service) deliver(ctx context.Context, targetID int64, evt Event) bool {
	if s.router.Deliver(targetID, evt) {
		return true
	}
	if s.relay != nil {
		s.relay.Publish(ctx, targetID, evt)
	}
	return false
}
