package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"canvas-backend/application/services"
	"canvas-backend/infrastructure/chat"
	"canvas-backend/pkg/common"
	"canvas-backend/pkg/observability"
	"canvas-backend/pkg/utils"

	"go.uber.org/zap"
)

// ChatHandler handles chat HTTP requests. Context strings are always
// resolved from the live graph at request time, never from a cached
// copy, so concurrent canvas edits are reflected.
type ChatHandler struct {
	manager *services.CanvasManager
	client  *chat.Client
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(manager *services.CanvasManager, client *chat.Client, metrics *observability.Metrics, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		manager: manager,
		client:  client,
		metrics: metrics,
		logger:  logger,
	}
}

// ChatRequest is the body for both chat endpoints
type ChatRequest struct {
	ChatNodeID string `json:"chatNodeId" validate:"required"`
	Message    string `json:"message" validate:"required"`
}

// Send handles POST /projects/{projectID}/chat, the non-streaming path.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	_, chatReq, ok := h.prepare(w, r)
	if !ok {
		return
	}

	response, err := h.client.Send(r.Context(), chatReq)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"response": response})
}

// Stream handles POST /projects/{projectID}/chat/stream, relaying the
// chat service's event stream to the caller. The relay preserves event
// order; a dropped client connection cancels the upstream stream.
func (h *ChatHandler) Stream(w http.ResponseWriter, r *http.Request) {
	session, chatReq, ok := h.prepare(w, r)
	if !ok {
		return
	}

	flusher, canFlush := w.(http.Flusher)
	if !canFlush {
		common.RespondError(w, http.StatusInternalServerError, "INTERNAL", "streaming unsupported")
		return
	}

	streamSession, cancel, err := h.client.StartStream(r.Context(), chatReq)
	if err != nil {
		h.metrics.IncrementCounter(r.Context(), observability.MetricStreamFailures, nil)
		common.RespondAppError(w, err)
		return
	}
	defer cancel()
	h.metrics.IncrementCounter(r.Context(), observability.MetricStreamSessions, nil)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for ev := range streamSession.Events() {
		if ev.Type == chat.EventConversationID && ev.ConversationID != "" {
			session.Store.SetConversation(chatReq.ChatNodeID, ev.ConversationID)
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, eventPayloadJSON(ev))
		flusher.Flush()
	}

	if err := streamSession.Err(); err != nil {
		h.metrics.IncrementCounter(r.Context(), observability.MetricStreamFailures, nil)
		h.logger.Warn("chat stream ended with error",
			zap.String("chatNodeID", chatReq.ChatNodeID),
			zap.Error(err),
		)
	}
}

// prepare resolves the caller's own canvas session, then decodes and
// validates the request and builds the upstream chat request from the
// live graph.
func (h *ChatHandler) prepare(w http.ResponseWriter, r *http.Request) (*services.CanvasSession, chat.Request, bool) {
	session, ok := openOwnedSession(w, r, h.manager)
	if !ok {
		return nil, chat.Request{}, false
	}

	var req ChatRequest
	if err := common.ParseJSONBody(r, &req, 1<<20); err != nil {
		common.RespondError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body: "+err.Error())
		return nil, chat.Request{}, false
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondAppError(w, err)
		return nil, chat.Request{}, false
	}

	chatReq := chat.Request{
		Message:      req.Message,
		ContextTexts: session.Store.ResolveContext(req.ChatNodeID),
		ProjectID:    session.ProjectID,
		ChatNodeID:   req.ChatNodeID,
	}
	if conversationID, found := session.Store.Conversation(req.ChatNodeID); found {
		chatReq.ConversationID = conversationID
	}
	return session, chatReq, true
}

// eventPayloadJSON rebuilds the wire payload for one relayed event.
func eventPayloadJSON(ev chat.Event) []byte {
	var payload interface{}
	switch ev.Type {
	case chat.EventConversationID:
		payload = map[string]string{"conversation_id": ev.ConversationID}
	case chat.EventStreamStart:
		payload = map[string]string{"status": ev.Status}
	case chat.EventStreamEnd:
		payload = map[string]string{"message_id": ev.MessageID, "status": ev.Status}
	case chat.EventError:
		payload = map[string]string{"error": ev.Message}
	default:
		payload = map[string]string{"token": ev.Token}
	}
	data, _ := json.Marshal(payload)
	return data
}
