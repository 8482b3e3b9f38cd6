package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	pkgerrors "canvas-backend/pkg/errors"

	"github.com/aws/aws-xray-sdk-go/xray"
	"go.uber.org/zap"
)

// TokenProvider supplies the bearer credential for chat-service calls.
type TokenProvider func(ctx context.Context) (string, error)

// Request describes one chat exchange: the user message, the ordered
// context strings resolved from the graph, and the originating project
// and chat node. An empty ConversationID asks the server to create a
// new conversation.
type Request struct {
	Message        string   `json:"message"`
	ContextTexts   []string `json:"context_texts"`
	ProjectID      string   `json:"project_id"`
	ChatNodeID     string   `json:"chat_node_id"`
	ConversationID string   `json:"conversation_id,omitempty"`
}

// Session is the live state of one streaming exchange. The Events
// channel relays decoded frames in transport order and is closed when
// the stream ends, fails, or is cancelled.
type Session struct {
	mu             sync.Mutex
	streaming      bool
	text           strings.Builder
	conversationID string
	messageID      string
	err            error

	events chan Event
	done   chan struct{}
}

func newSession() *Session {
	return &Session{
		streaming: true,
		events:    make(chan Event, 16),
		done:      make(chan struct{}),
	}
}

// IsStreaming reports whether the stream is still open.
func (s *Session) IsStreaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streaming
}

// Text returns the text accumulated so far.
func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text.String()
}

// ConversationID returns the server-assigned conversation id, once
// known.
func (s *Session) ConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationID
}

// MessageID returns the id the completed message was persisted under.
func (s *Session) MessageID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messageID
}

// Err returns the terminal error, if the stream failed. Cancellation is
// not a failure and leaves Err nil.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Events returns the channel of decoded frames.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Done is closed when the read loop has terminated.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) apply(ev Event) {
	s.mu.Lock()
	switch ev.Type {
	case EventToken:
		s.text.WriteString(ev.Token)
	case EventConversationID:
		s.conversationID = ev.ConversationID
	case EventStreamEnd:
		s.messageID = ev.MessageID
		s.streaming = false
	case EventError:
		s.err = pkgerrors.NewExternalError("chat", errors.New(ev.Message))
		s.streaming = false
	}
	s.mu.Unlock()
}

func (s *Session) finish(err error) {
	s.mu.Lock()
	s.streaming = false
	if err != nil && s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
	close(s.events)
	close(s.done)
}

// Client talks to the chat completion service: a streaming exchange per
// call as the primary path, a non-streaming request as the fallback,
// and conversation deletion for the delete cascade.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      TokenProvider
	logger     *zap.Logger
}

// NewClient creates a chat client. token may be nil when the service is
// called unauthenticated.
func NewClient(baseURL string, token TokenProvider, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: xray.Client(&http.Client{}),
		token:      token,
		logger:     logger,
	}
}

// StartStream opens one token-streamed exchange and returns the live
// session plus a cancel function. Cancelling terminates the read loop
// promptly and is not reported as a stream error.
func (c *Client) StartStream(ctx context.Context, req Request) (*Session, context.CancelFunc, error) {
	streamCtx, cancel := context.WithCancel(ctx)

	httpReq, err := c.newRequest(streamCtx, http.MethodPost, "/api/chat/stream", req)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		cancel()
		return nil, nil, pkgerrors.NewNetworkError("failed to open chat stream", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		cancel()
		return nil, nil, pkgerrors.NewExternalError("chat",
			fmt.Errorf("status %d: %s", resp.StatusCode, string(body)))
	}

	session := newSession()
	go c.readLoop(streamCtx, resp.Body, session)
	return session, cancel, nil
}

// readLoop drains the response body through the SSE parser, applying
// each event to the session and relaying it in order. The loop exits on
// EOF, a terminal event, a read error, or context cancellation.
func (c *Client) readLoop(ctx context.Context, body io.ReadCloser, session *Session) {
	defer body.Close()

	parser := NewParser(c.logger)
	buf := make([]byte, 4096)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			for _, ev := range parser.Feed(buf[:n]) {
				session.apply(ev)
				select {
				case session.events <- ev:
				case <-ctx.Done():
					session.finish(nil)
					return
				}
				if ev.Type == EventStreamEnd || ev.Type == EventError {
					session.finish(nil)
					return
				}
			}
		}
		if readErr != nil {
			if ctx.Err() != nil {
				// Cancelled by the caller, not a failure.
				session.finish(nil)
				return
			}
			if errors.Is(readErr, io.EOF) {
				session.finish(nil)
				return
			}
			c.logger.Warn("chat stream read failed", zap.Error(readErr))
			session.finish(pkgerrors.NewNetworkError("chat stream read failed", readErr))
			return
		}
	}
}

// Send performs one non-streaming exchange and returns the full
// response text.
func (c *Client) Send(ctx context.Context, req Request) (string, error) {
	httpReq, err := c.newRequest(ctx, http.MethodPost, "/api/chat", req)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", pkgerrors.NewNetworkError("chat request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", pkgerrors.NewExternalError("chat",
			fmt.Errorf("status %d: %s", resp.StatusCode, string(body)))
	}

	var out struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", pkgerrors.NewExternalError("chat", fmt.Errorf("decoding response: %w", err))
	}
	return out.Response, nil
}

// CleanupConversation deletes the server-side conversation and message
// records for a conversation. Called best-effort from the delete
// cascade.
func (c *Client) CleanupConversation(ctx context.Context, conversationID string) error {
	if conversationID == "" {
		return nil
	}

	httpReq, err := c.newRequest(ctx, http.MethodDelete, "/api/conversations/"+conversationID, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.NewNetworkError("conversation cleanup request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return pkgerrors.NewExternalError("chat",
			fmt.Errorf("conversation cleanup returned %d", resp.StatusCode))
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, pkgerrors.NewInternalError("failed to encode chat request").WithCause(err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, pkgerrors.NewInternalError("failed to build chat request").WithCause(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		token, err := c.token(ctx)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "failed to obtain chat credential")
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}
