package canvas

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyNodesCapturesInternalEdgesOnly(t *testing.T) {
	s := NewStore(nil)
	chat, _ := s.AddNode(KindChat, Position{}, "proj-1")
	ctxNode, _ := s.AddNode(KindContext, Position{}, "proj-1")
	outside, _ := s.AddNode(KindTextBlock, Position{}, "proj-1")

	_, ok := s.Connect(Connection{Source: ctxNode.ID, Target: chat.ID})
	require.True(t, ok)
	_, ok = s.Connect(Connection{Source: outside.ID, Target: chat.ID})
	require.True(t, ok)

	cb := NewClipboard()
	n := s.CopyNodes([]string{chat.ID, ctxNode.ID}, cb)
	assert.Equal(t, 2, n)

	nodes, edges := cb.contents()
	assert.Len(t, nodes, 2)
	require.Len(t, edges, 1)
	assert.Equal(t, ctxNode.ID, edges[0].Source)
}

func TestCopySkipsUnknownIDs(t *testing.T) {
	s := NewStore(nil)
	chat, _ := s.AddNode(KindChat, Position{}, "proj-1")

	cb := NewClipboard()
	n := s.CopyNodes([]string{chat.ID, "context-node-99"}, cb)
	assert.Equal(t, 1, n)
}

func TestClipboardIsSnapshotNotReference(t *testing.T) {
	s := NewStore(nil)
	chat, _ := s.AddNode(KindChat, Position{}, "proj-1")

	cb := NewClipboard()
	s.CopyNodes([]string{chat.ID}, cb)
	s.DeleteNode(chat.ID)

	assert.False(t, cb.IsEmpty())
	pasted := s.PasteNodes(cb, Position{X: 50, Y: 50})
	require.Len(t, pasted, 1)
	assert.Len(t, s.Nodes(), 1)
}

func TestPasteRemapsIdentitiesAndTranslatesPositions(t *testing.T) {
	s := NewStore(nil)
	chat, _ := s.AddNode(KindChat, Position{X: 100, Y: 100}, "proj-1")
	ctxNode, _ := s.AddNode(KindContext, Position{X: 150, Y: 130}, "proj-1")
	_, ok := s.Connect(Connection{Source: ctxNode.ID, Target: chat.ID})
	require.True(t, ok)

	cb := NewClipboard()
	s.CopyNodes([]string{chat.ID, ctxNode.ID}, cb)

	pasted := s.PasteNodes(cb, Position{X: 300, Y: 200})
	require.Len(t, pasted, 2)

	// First copied node anchors the translation, siblings keep their
	// relative offset.
	assert.Equal(t, Position{X: 300, Y: 200}, pasted[0].Position)
	assert.Equal(t, Position{X: 350, Y: 230}, pasted[1].Position)

	assert.Equal(t, "chat-node-2", pasted[0].ID)
	assert.Equal(t, "context-node-2", pasted[1].ID)
	assert.Equal(t, "chat-node-2", pasted[0].Data.(ChatData).NodeID)
	assert.Equal(t, "context-node-2", pasted[1].Data.(ContextData).NodeID)
	assert.False(t, pasted[0].Selected)

	edges := s.Edges()
	require.Len(t, edges, 2)
	assert.Equal(t, "context-node-2", edges[1].Source)
	assert.Equal(t, "chat-node-2", edges[1].Target)
	assert.Equal(t, MintEdgeID("context-node-2", "chat-node-2"), edges[1].ID)
}

func TestPasteFallbackIDsForUncountedKinds(t *testing.T) {
	s := NewStore(nil)
	text, _ := s.AddNode(KindTextBlock, Position{}, "proj-1")

	cb := NewClipboard()
	s.CopyNodes([]string{text.ID}, cb)

	first := s.PasteNodes(cb, Position{X: 10, Y: 10})
	second := s.PasteNodes(cb, Position{X: 20, Y: 20})
	require.Len(t, first, 1)
	require.Len(t, second, 1)

	assert.True(t, strings.HasPrefix(first[0].ID, text.ID+"-copy-"))
	assert.NotEqual(t, first[0].ID, second[0].ID)
	assert.Equal(t, first[0].ID, first[0].Data.(TextBlockData).NodeID)
}

func TestPasteEmptyClipboardIsNoOp(t *testing.T) {
	s := NewStore(nil)
	changed := 0
	s.SetOnChange(func() { changed++ })

	assert.Nil(t, s.PasteNodes(NewClipboard(), Position{X: 1, Y: 1}))
	assert.Zero(t, changed)
	assert.Empty(t, s.Nodes())
}

func TestRepeatedPasteNeverCollides(t *testing.T) {
	s := NewStore(nil)
	chat, _ := s.AddNode(KindChat, Position{}, "proj-1")

	cb := NewClipboard()
	s.CopyNodes([]string{chat.ID}, cb)

	seen := map[string]struct{}{chat.ID: {}}
	for i := 0; i < 5; i++ {
		pasted := s.PasteNodes(cb, Position{X: float64(i), Y: 0})
		require.Len(t, pasted, 1)
		_, dup := seen[pasted[0].ID]
		assert.False(t, dup)
		seen[pasted[0].ID] = struct{}{}
	}
}
