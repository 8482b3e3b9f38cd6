package chat

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParserDecodesCompleteFrames(t *testing.T) {
	p := NewParser(nil)

	events := p.Feed([]byte(
		"event: stream_start\ndata: {\"status\":\"streaming\"}\n\n" +
			"event: token\ndata: {\"token\":\"Hello\"}\n\n" +
			"data: {\"token\":\" world\"}\n\n" +
			"event: conversation_id\ndata: {\"conversation_id\":\"conv-9\"}\n\n" +
			"event: stream_end\ndata: {\"message_id\":\"msg-3\"}\n\n",
	))

	require.Len(t, events, 5)
	assert.Equal(t, EventStreamStart, events[0].Type)
	assert.Equal(t, "streaming", events[0].Status)
	assert.Equal(t, EventToken, events[1].Type)
	assert.Equal(t, "Hello", events[1].Token)

	// No event line defaults to the token type.
	assert.Equal(t, EventToken, events[2].Type)
	assert.Equal(t, " world", events[2].Token)

	assert.Equal(t, "conv-9", events[3].ConversationID)
	assert.Equal(t, EventStreamEnd, events[4].Type)
	assert.Equal(t, "msg-3", events[4].MessageID)
}

func TestParserEveryChunkSplitYieldsSameEvents(t *testing.T) {
	raw := "event: stream_start\ndata: {\"status\":\"streaming\"}\n\nevent: error\ndata: {\"error\":\"boom\"}\n\n"

	for cut := 0; cut <= len(raw); cut++ {
		t.Run(fmt.Sprintf("cut=%d", cut), func(t *testing.T) {
			p := NewParser(nil)
			events := p.Feed([]byte(raw[:cut]))
			events = append(events, p.Feed([]byte(raw[cut:]))...)

			require.Len(t, events, 2)
			assert.Equal(t, EventStreamStart, events[0].Type)
			assert.Equal(t, "streaming", events[0].Status)
			assert.Equal(t, EventError, events[1].Type)
			assert.Equal(t, "boom", events[1].Message)
		})
	}
}

func TestParserRetainsTrailingPartialFrame(t *testing.T) {
	p := NewParser(nil)

	assert.Empty(t, p.Feed([]byte("event: token\ndata: {\"tok")))
	events := p.Feed([]byte("en\":\"abc\"}\n\n"))
	require.Len(t, events, 1)
	assert.Equal(t, "abc", events[0].Token)
}

func TestParserSkipsFramesWithoutData(t *testing.T) {
	p := NewParser(nil)

	events := p.Feed([]byte(
		"event: stream_start\n\n" +
			"event: token\ndata: {\"token\":\"kept\"}\n\n",
	))
	require.Len(t, events, 1)
	assert.Equal(t, "kept", events[0].Token)
}

func TestParserSkipsMalformedJSONOnly(t *testing.T) {
	p := NewParser(nil)

	events := p.Feed([]byte(
		"event: token\ndata: {not json\n\n" +
			"event: token\ndata: {\"token\":\"after\"}\n\n",
	))
	require.Len(t, events, 1)
	assert.Equal(t, "after", events[0].Token)
}

func TestParserSkipsUnknownEventTypes(t *testing.T) {
	p := NewParser(nil)

	events := p.Feed([]byte(
		"event: heartbeat\ndata: {}\n\n" +
			"event: token\ndata: {\"token\":\"x\"}\n\n",
	))
	require.Len(t, events, 1)
	assert.Equal(t, EventToken, events[0].Type)
}

func TestParserHandlesCRLFLines(t *testing.T) {
	p := NewParser(nil)

	events := p.Feed([]byte("event: token\r\ndata: {\"token\":\"crlf\"}\r\n\n"))
	require.Len(t, events, 1)
	assert.Equal(t, "crlf", events[0].Token)
}
