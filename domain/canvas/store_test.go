package canvas

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingCleaner struct {
	mu     sync.Mutex
	called chan string
	err    error
}

func newRecordingCleaner() *recordingCleaner {
	return &recordingCleaner{called: make(chan string, 4)}
}

func (c *recordingCleaner) CleanupConversation(ctx context.Context, conversationID string) error {
	c.mu.Lock()
	err := c.err
	c.mu.Unlock()
	c.called <- conversationID
	return err
}

func TestAddNodeMintsSequentialTypedIDs(t *testing.T) {
	s := NewStore(zap.NewNop())

	n1, err := s.AddNode(KindChat, Position{X: 10, Y: 20}, "proj-1")
	require.NoError(t, err)
	n2, err := s.AddNode(KindChat, Position{}, "proj-1")
	require.NoError(t, err)
	n3, err := s.AddNode(KindTextBlock, Position{}, "proj-1")
	require.NoError(t, err)

	assert.Equal(t, "chat-node-1", n1.ID)
	assert.Equal(t, "chat-node-2", n2.ID)
	assert.Equal(t, "text-block-node-1", n3.ID)

	assert.Equal(t, DefaultNodeWidth, n1.Width)
	assert.Equal(t, DefaultNodeHeight, n1.Height)
	assert.Equal(t, DefaultZIndex, n1.ZIndex)
	assert.Equal(t, Position{X: 10, Y: 20}, n1.Position)

	data, ok := n1.Data.(ChatData)
	require.True(t, ok)
	assert.Equal(t, "chat-node-1", data.NodeID)
}

func TestAddNodeValidation(t *testing.T) {
	s := NewStore(nil)

	_, err := s.AddNode(KindChat, Position{}, "")
	assert.Error(t, err)
	assert.Empty(t, s.Nodes())

	_, err = s.AddNode(NodeKind("sticker"), Position{}, "proj-1")
	assert.Error(t, err)
	assert.Empty(t, s.Nodes())
}

func TestAddEdgeBypassesConnectionGate(t *testing.T) {
	s := NewStore(nil)

	chatNode, err := s.AddNode(KindChat, Position{}, "proj-1")
	require.NoError(t, err)
	ctxNode, err := s.AddNode(KindContext, Position{}, "proj-1")
	require.NoError(t, err)

	// A chat -> context edge would be rejected by Connect.
	s.AddEdge(Edge{ID: "edge-x", Source: chatNode.ID, Target: ctxNode.ID})

	edges := s.Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, "edge-x", edges[0].ID)

	s.DeleteEdge("edge-x")
	assert.Empty(t, s.Edges())
}

func TestCountersNeverReuseIDsAfterDelete(t *testing.T) {
	s := NewStore(nil)

	n1, err := s.AddNode(KindContext, Position{}, "proj-1")
	require.NoError(t, err)
	s.DeleteNode(n1.ID)

	n2, err := s.AddNode(KindContext, Position{}, "proj-1")
	require.NoError(t, err)
	assert.Equal(t, "context-node-2", n2.ID)
}

func TestConnectGate(t *testing.T) {
	s := NewStore(nil)
	chat, _ := s.AddNode(KindChat, Position{}, "proj-1")
	ctxNode, _ := s.AddNode(KindContext, Position{}, "proj-1")
	text, _ := s.AddNode(KindTextBlock, Position{}, "proj-1")
	doc, _ := s.AddNode(KindExternalDoc, Position{}, "proj-1")
	chat2, _ := s.AddNode(KindChat, Position{}, "proj-1")

	t.Run("allowed sources connect to chat", func(t *testing.T) {
		edge, ok := s.Connect(Connection{Source: ctxNode.ID, Target: chat.ID})
		require.True(t, ok)
		assert.Equal(t, "context-source", edge.SourceHandle)
		assert.Equal(t, ChatTargetHandle, edge.TargetHandle)
		assert.Equal(t, DefaultEdgeType, edge.Type)

		_, ok = s.Connect(Connection{Source: text.ID, Target: chat.ID})
		assert.True(t, ok)
		_, ok = s.Connect(Connection{Source: doc.ID, Target: chat.ID})
		assert.True(t, ok)
		assert.Len(t, s.Edges(), 3)
	})

	t.Run("disallowed pairs are silently ignored", func(t *testing.T) {
		before := len(s.Edges())
		cases := []Connection{
			{Source: chat.ID, Target: chat2.ID},
			{Source: chat.ID, Target: ctxNode.ID},
			{Source: ctxNode.ID, Target: text.ID},
			{Source: text.ID, Target: doc.ID},
		}
		for _, c := range cases {
			_, ok := s.Connect(c)
			assert.False(t, ok)
		}
		assert.Len(t, s.Edges(), before)
	})

	t.Run("missing endpoints are ignored", func(t *testing.T) {
		_, ok := s.Connect(Connection{Source: "context-node-99", Target: chat.ID})
		assert.False(t, ok)
	})

	t.Run("duplicate connection is ignored", func(t *testing.T) {
		before := len(s.Edges())
		_, ok := s.Connect(Connection{Source: ctxNode.ID, Target: chat.ID})
		assert.False(t, ok)
		assert.Len(t, s.Edges(), before)
	})
}

func TestDeleteNodeCascades(t *testing.T) {
	s := NewStore(nil)
	cleaner := newRecordingCleaner()
	s.SetConversationCleaner(cleaner)

	var deleted []NodeDeleted
	s.SetOnNodeDeleted(func(d NodeDeleted) { deleted = append(deleted, d) })

	chat, _ := s.AddNode(KindChat, Position{}, "proj-1")
	ctxNode, _ := s.AddNode(KindContext, Position{}, "proj-1")
	_, ok := s.Connect(Connection{Source: ctxNode.ID, Target: chat.ID})
	require.True(t, ok)
	require.True(t, s.SetConversation(chat.ID, "conv-42"))

	s.DeleteNode(chat.ID)

	assert.Len(t, s.Nodes(), 1)
	assert.Empty(t, s.Edges())
	_, found := s.Conversation(chat.ID)
	assert.False(t, found)

	require.Len(t, deleted, 1)
	assert.Equal(t, chat.ID, deleted[0].NodeID)
	assert.Equal(t, KindChat, deleted[0].Kind)
	assert.Equal(t, "conv-42", deleted[0].ConversationID)

	select {
	case conv := <-cleaner.called:
		assert.Equal(t, "conv-42", conv)
	case <-time.After(time.Second):
		t.Fatal("conversation cleanup was never requested")
	}
}

func TestDeleteNodeSurvivesCleanupFailure(t *testing.T) {
	s := NewStore(nil)
	cleaner := newRecordingCleaner()
	cleaner.err = errors.New("chat service unavailable")
	s.SetConversationCleaner(cleaner)

	chat, _ := s.AddNode(KindChat, Position{}, "proj-1")
	s.SetConversation(chat.ID, "conv-7")

	s.DeleteNode(chat.ID)

	assert.Empty(t, s.Nodes())
	select {
	case <-cleaner.called:
	case <-time.After(time.Second):
		t.Fatal("cleanup should still be attempted")
	}
}

func TestDeleteMissingNodeIsNoOp(t *testing.T) {
	s := NewStore(nil)
	changed := 0
	s.SetOnChange(func() { changed++ })

	s.DeleteNode("chat-node-1")
	assert.Zero(t, changed)
}

func TestHydrateRecomputesCountersAndPrunesDanglingEdges(t *testing.T) {
	s := NewStore(nil)

	snap := Snapshot{
		Nodes: []Node{
			{ID: "chat-node-3", Kind: KindChat, Data: ChatData{NodeID: "chat-node-3"}},
			{ID: "context-node-7", Kind: KindContext, Data: ContextData{NodeID: "context-node-7"}},
		},
		Edges: []Edge{
			{ID: "edge-context-node-7-chat-node-3", Source: "context-node-7", Target: "chat-node-3"},
			{ID: "edge-context-node-9-chat-node-3", Source: "context-node-9", Target: "chat-node-3"},
			{ID: "edge-context-node-7-chat-node-8", Source: "context-node-7", Target: "chat-node-8"},
		},
		Viewport: Viewport{X: 5, Y: 6, Zoom: 1.5},
	}
	s.Hydrate(snap)

	assert.Len(t, s.Edges(), 1)
	assert.Equal(t, Viewport{X: 5, Y: 6, Zoom: 1.5}, s.Viewport())
	assert.Equal(t, 3, s.Counter(KindChat))
	assert.Equal(t, 7, s.Counter(KindContext))
	assert.Equal(t, 0, s.Counter(KindTextBlock))

	n, err := s.AddNode(KindChat, Position{}, "proj-1")
	require.NoError(t, err)
	assert.Equal(t, "chat-node-4", n.ID)
}

func TestHydrateIgnoresForeignIDShapes(t *testing.T) {
	s := NewStore(nil)
	s.Hydrate(Snapshot{Nodes: []Node{
		{ID: "legacy-17", Kind: KindChat},
		{ID: "chat-node-abc", Kind: KindChat},
	}})

	n, err := s.AddNode(KindChat, Position{}, "proj-1")
	require.NoError(t, err)
	assert.Equal(t, "chat-node-1", n.ID)
}

func TestUpdateNodeMergesPartialFields(t *testing.T) {
	s := NewStore(nil)
	n, _ := s.AddNode(KindTextBlock, Position{X: 1, Y: 2}, "proj-1")

	w := 600.0
	min := true
	s.UpdateNode(n.ID, NodeUpdate{
		Width:       &w,
		IsMinimized: &min,
		Data:        TextBlockData{NodeID: n.ID, Text: "hello"},
	})

	got, ok := s.Node(n.ID)
	require.True(t, ok)
	assert.Equal(t, 600.0, got.Width)
	assert.Equal(t, DefaultNodeHeight, got.Height)
	assert.True(t, got.IsMinimized)
	assert.Equal(t, Position{X: 1, Y: 2}, got.Position)
	assert.Equal(t, "hello", got.Data.(TextBlockData).Text)
}

func TestSetConversationRejectsNonChatNodes(t *testing.T) {
	s := NewStore(nil)
	text, _ := s.AddNode(KindTextBlock, Position{}, "proj-1")

	assert.False(t, s.SetConversation(text.ID, "conv-1"))
	assert.False(t, s.SetConversation("chat-node-99", "conv-1"))
}

func TestResetCanvasZeroesEverything(t *testing.T) {
	s := NewStore(nil)
	chat, _ := s.AddNode(KindChat, Position{}, "proj-1")
	s.SetConversation(chat.ID, "conv-1")

	s.ResetCanvas()

	assert.Empty(t, s.Nodes())
	assert.Empty(t, s.Edges())
	assert.Equal(t, DefaultViewport(), s.Viewport())
	assert.Equal(t, 0, s.Counter(KindChat))

	n, _ := s.AddNode(KindChat, Position{}, "proj-1")
	assert.Equal(t, "chat-node-1", n.ID)
}

func TestDeleteConnectedPairLeavesCleanGraph(t *testing.T) {
	s := NewStore(nil)
	chat, _ := s.AddNode(KindChat, Position{}, "proj-1")
	ctxNode, _ := s.AddNode(KindContext, Position{}, "proj-1")

	edge, ok := s.Connect(Connection{Source: ctxNode.ID, Target: chat.ID})
	require.True(t, ok)
	assert.Equal(t, "context-source", edge.SourceHandle)
	assert.Equal(t, "chat-target", edge.TargetHandle)

	s.DeleteNode(ctxNode.ID)

	assert.Len(t, s.Nodes(), 1)
	assert.Empty(t, s.Edges())
	assert.Equal(t, chat.ID, s.Nodes()[0].ID)
}

func TestOnChangeFiresOnUserMutationsOnly(t *testing.T) {
	s := NewStore(nil)
	changed := 0
	s.SetOnChange(func() { changed++ })

	n, _ := s.AddNode(KindChat, Position{}, "proj-1")
	assert.Equal(t, 1, changed)

	s.Hydrate(Snapshot{Nodes: []Node{n}})
	s.SetViewport(Viewport{Zoom: 2})
	s.SetNodes([]Node{n})
	s.SetEdges(nil)
	assert.Equal(t, 1, changed)

	s.DeleteNode(n.ID)
	assert.Equal(t, 2, changed)
}
