package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second    // Time allowed to write a frame to the peer.
	pongWait       = 60 * time.Second    // Time allowed to read the next pong from the peer.
	pingPeriod     = (pongWait * 9) / 10 // Must be less than pongWait.
	maxMessageSize = 1024                // Inbound frames are typing/read acks, never bulky.
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// TODO: restrict origins once the frontend host is pinned down.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client ties one websocket connection to its registered session and
// feeds inbound transport events (typing, read acks) to the service.
type Client struct {
	session *Session
	conn    *websocket.Conn
	service *Service
	log     *zap.Logger
}

// inboundFrame mirrors the outbound envelope: {"event": ..., "payload": ...}.
type inboundFrame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// readPump pumps frames from the websocket into the service. On any
// read error the session is disconnected and no further events are
// attempted on it.
func (c *Client) readPump() {
	defer func() {
		c.service.Disconnect(c.session)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("websocket read", zap.Int64("user", c.session.UserID), zap.Error(err))
			}
			break
		}
		c.handleFrame(raw)
	}
}

// handleFrame dispatches one inbound frame. The sender identity is
// always the session's user; client-supplied ids cannot impersonate.
func (c *Client) handleFrame(raw []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		c.log.Debug("malformed frame", zap.Int64("user", c.session.UserID), zap.Error(err))
		return
	}

	ctx := context.Background()
	switch frame.Event {
	case EventTyping:
		var p TypingPayload
		if err := json.Unmarshal(frame.Payload, &p); err != nil {
			return
		}
		c.service.Typing(ctx, c.session.UserID, p.ReceiverID, p.IsTyping)

	case EventMessagesRead:
		// Relay-only echo path; the durable bulk update happens over
		// the HTTP markRead endpoint.
		var p ReadReceiptPayload
		if err := json.Unmarshal(frame.Payload, &p); err != nil {
			return
		}
		c.service.RelayReadAck(ctx, c.session.UserID, p.ChatRoomID, p.LastMessageID)

	default:
		c.log.Debug("unknown frame event",
			zap.Int64("user", c.session.UserID), zap.String("event", frame.Event))
	}
}

// writePump pumps frames from the session's send queue to the
// websocket, one frame per event, and keeps the connection alive
// with periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.session.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Registry closed the session.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

			// Drain anything already queued before blocking again.
			n := len(c.session.send)
			for i := 0; i < n; i++ {
				queued, ok := <-c.session.send
				if !ok {
					c.conn.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				if err := c.conn.WriteMessage(websocket.TextMessage, queued); err != nil {
					return
				}
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
