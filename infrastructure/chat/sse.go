package chat

import (
	"bytes"
	"encoding/json"
	"strings"

	"go.uber.org/zap"
)

// EventType identifies a server-sent event on the chat stream.
type EventType string

const (
	// EventToken carries one incremental text chunk. It is also the
	// default type for frames without an event line.
	EventToken EventType = "token"
	// EventConversationID announces the server-assigned conversation.
	EventConversationID EventType = "conversation_id"
	// EventStreamStart marks the transition out of the loading state.
	EventStreamStart EventType = "stream_start"
	// EventStreamEnd is the terminal success event.
	EventStreamEnd EventType = "stream_end"
	// EventError is the terminal failure event.
	EventError EventType = "error"
)

// Event is one decoded frame from the chat stream.
type Event struct {
	Type           EventType
	Token          string
	ConversationID string
	MessageID      string
	Status         string
	Message        string
}

type eventPayload struct {
	Token          string `json:"token"`
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
	Status         string `json:"status"`
	Error          string `json:"error"`
}

// Parser decodes the server-sent-event framing used by the chat
// service. Frames are separated by a blank line; a chunk boundary may
// fall anywhere, so undecoded bytes are buffered across Feed calls and
// only complete frames are dispatched.
type Parser struct {
	buf    []byte
	logger *zap.Logger
}

// NewParser creates an SSE parser.
func NewParser(logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{logger: logger}
}

// Feed appends a chunk to the buffer and returns every complete event
// it now contains, in arrival order. The trailing partial frame, if
// any, stays buffered for the next call.
func (p *Parser) Feed(chunk []byte) []Event {
	p.buf = append(p.buf, chunk...)

	var events []Event
	for {
		idx := bytes.Index(p.buf, []byte("\n\n"))
		if idx < 0 {
			break
		}
		frame := string(p.buf[:idx])
		p.buf = p.buf[idx+2:]

		if ev, ok := p.parseFrame(frame); ok {
			events = append(events, ev)
		}
	}
	return events
}

// parseFrame decodes one blank-line-terminated frame. Frames without a
// data line are ignored, frames without an event line default to the
// token type, and malformed JSON skips just that frame.
func (p *Parser) parseFrame(frame string) (Event, bool) {
	eventType := EventToken
	data := ""
	hasData := false

	for _, line := range strings.Split(frame, "\n") {
		line = strings.TrimSuffix(line, "\r")
		switch {
		case strings.HasPrefix(line, "event:"):
			eventType = EventType(strings.TrimSpace(strings.TrimPrefix(line, "event:")))
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			hasData = true
		}
	}
	if !hasData {
		return Event{}, false
	}

	var payload eventPayload
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		p.logger.Warn("skipping event with malformed payload",
			zap.String("eventType", string(eventType)),
			zap.Error(err),
		)
		return Event{}, false
	}

	switch eventType {
	case EventToken, EventConversationID, EventStreamStart, EventStreamEnd, EventError:
	default:
		p.logger.Debug("ignoring unknown event type", zap.String("eventType", string(eventType)))
		return Event{}, false
	}

	return Event{
		Type:           eventType,
		Token:          payload.Token,
		ConversationID: payload.ConversationID,
		MessageID:      payload.MessageID,
		Status:         payload.Status,
		Message:        payload.Error,
	}, true
}
