package chat

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	myMiddleware "pairchat/internal/middleware"
)

type Handler struct {
	service *Service
	log     *zap.Logger
}

func NewHandler(service *Service, log *zap.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// ServeWs upgrades the request, registers a session for the
// authenticated caller, and starts the pumps.
func (h *Handler) ServeWs(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(myMiddleware.UserKey).(int64)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade", zap.Error(err))
		return
	}

	client := &Client{
		session: NewSession(userID),
		conn:    conn,
		service: h.service,
		log:     h.log,
	}
	h.service.Connect(client.session)

	go client.writePump()
	go client.readPump()
}

// GetMessages handles GET /api/messages/{peerID}.
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	callerID, ok := callerFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	peerID, err := int64Param(r, "peerID")
	if err != nil {
		http.Error(w, "invalid peer id", http.StatusBadRequest)
		return
	}

	msgs, err := h.service.ListConversation(r.Context(), callerID, peerID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if msgs == nil {
		msgs = []*Message{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

// SendMessage handles POST /api/messages/send/{peerID}.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	callerID, ok := callerFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	peerID, err := int64Param(r, "peerID")
	if err != nil {
		http.Error(w, "invalid peer id", http.StatusBadRequest)
		return
	}

	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	msg, err := h.service.Send(r.Context(), callerID, peerID, &req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

// React handles POST /api/messages/react/{messageID}.
func (h *Handler) React(w http.ResponseWriter, r *http.Request) {
	callerID, ok := callerFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	messageID, err := int64Param(r, "messageID")
	if err != nil {
		http.Error(w, "invalid message id", http.StatusBadRequest)
		return
	}

	var req ReactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Emoji == "" {
		http.Error(w, "emoji is required", http.StatusBadRequest)
		return
	}

	reactions, err := h.service.React(r.Context(), messageID, callerID, req.Emoji)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reactions)
}

// MarkRead handles POST /api/messages/read/{peerID}.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	callerID, ok := callerFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	peerID, err := int64Param(r, "peerID")
	if err != nil {
		http.Error(w, "invalid peer id", http.StatusBadRequest)
		return
	}

	var req MarkReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	updated, err := h.service.MarkRead(r.Context(), peerID, callerID, req.LastMessageID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MarkReadResponse{
		Message: "messages marked as read",
		Updated: updated,
	})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "message not found", http.StatusNotFound)
	default:
		h.log.Error("request failed", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func callerFrom(r *http.Request) (int64, bool) {
	id, ok := r.Context().Value(myMiddleware.UserKey).(int64)
	return id, ok
}

func int64Param(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
