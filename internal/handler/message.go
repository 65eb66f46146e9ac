package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mauzenfan/mauzenfan/internal/auth"
	"github.com/mauzenfan/mauzenfan/internal/model"
	"github.com/mauzenfan/mauzenfan/internal/notify"
	"github.com/mauzenfan/mauzenfan/internal/store"
)

const maxMessageLength = 4000

type MessageHandler struct {
	messages *store.MessageStore
	users    UserGetter
	children ChildGetter
	events   Dispatcher
	logger   *slog.Logger
	now      func() time.Time
}

func NewMessageHandler(ms *store.MessageStore, users UserGetter, children ChildGetter, events Dispatcher, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{
		messages: ms,
		users:    users,
		children: children,
		events:   events,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type sendRequest struct {
	ReceiverID int64  `json:"receiver_id"`
	Content    string `json:"content"`
}

// Send handles POST /api/messages
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	senderID := auth.UserID(r.Context())
	if req.ReceiverID == senderID {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cannot message yourself"})
		return
	}
	h.send(w, senderID, req.ReceiverID, req.Content)
}

type childSendRequest struct {
	Content string `json:"content"`
}

// ChildSend handles POST /api/child/messages. The child's proxy user
// writes to the parent.
func (h *MessageHandler) ChildSend(w http.ResponseWriter, r *http.Request) {
	var req childSendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	child, err := h.children.GetByID(auth.ChildID(r.Context()))
	if err != nil {
		h.logger.Error("get child", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to send message"})
		return
	}
	if child == nil || child.ProxyUserID == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "child has no chat account"})
		return
	}
	h.send(w, *child.ProxyUserID, child.ParentID, req.Content)
}

func (h *MessageHandler) send(w http.ResponseWriter, senderID, receiverID int64, content string) {
	content = strings.TrimSpace(content)
	if content == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "content is required"})
		return
	}
	if len(content) > maxMessageLength {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "content is too long"})
		return
	}

	sender, err := h.users.GetByID(senderID)
	if err != nil {
		h.logger.Error("get sender", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to send message"})
		return
	}
	receiver, err := h.users.GetByID(receiverID)
	if err != nil {
		h.logger.Error("get receiver", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to send message"})
		return
	}
	if sender == nil || receiver == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
		return
	}

	msg, err := h.messages.Create(sender.ID, receiver.ID, content, h.now())
	if err != nil {
		h.logger.Error("create message", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to send message"})
		return
	}

	h.events.Dispatch(notify.NewMessageEvent(*msg, *sender, *receiver))

	writeJSON(w, http.StatusCreated, messageResponse(*msg, *sender, *receiver))
}

func messageResponse(m model.Message, sender, receiver model.User) map[string]any {
	return map[string]any{
		"id":        m.ID,
		"sender":    notify.Ref(sender),
		"receiver":  notify.Ref(receiver),
		"content":   m.Content,
		"timestamp": m.CreatedAt,
		"is_read":   m.IsRead,
	}
}

// History handles GET /api/messages/{other_user_id}
func (h *MessageHandler) History(w http.ResponseWriter, r *http.Request) {
	otherID, err := parseIDParam(r, "other_user_id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid other_user_id"})
		return
	}
	other, err := h.users.GetByID(otherID)
	if err != nil {
		h.logger.Error("get user", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load messages"})
		return
	}
	if other == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
		return
	}

	msgs, err := h.messages.Conversation(auth.UserID(r.Context()), otherID, parseLimit(r))
	if err != nil {
		h.logger.Error("list conversation", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load messages"})
		return
	}
	if msgs == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

type markReadRequest struct {
	OtherUserID int64 `json:"other_user_id"`
}

// MarkRead handles POST /api/messages/read. Both sides of the
// conversation get a read receipt when anything changed.
func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	var req markReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.OtherUserID <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "other_user_id is required"})
		return
	}

	readerID := auth.UserID(r.Context())
	updated, err := h.messages.MarkRead(readerID, req.OtherUserID)
	if err != nil {
		h.logger.Error("mark messages read", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to mark messages read"})
		return
	}

	if updated > 0 {
		h.events.Dispatch(notify.ReadReceiptEvent(readerID, req.OtherUserID, updated, h.now()))
	}

	writeJSON(w, http.StatusOK, map[string]int64{"messages_updated": updated})
}
