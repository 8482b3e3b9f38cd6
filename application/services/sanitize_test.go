package services

import (
	"testing"

	"canvas-backend/domain/canvas"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestSanitizeNodesAppliesVisualDefaults(t *testing.T) {
	nodes := []canvas.Node{{
		ID:       "chat-node-1",
		Kind:     canvas.KindChat,
		Position: canvas.Position{X: 3, Y: 4},
		Selected: true,
		Data:     canvas.ChatData{NodeID: "chat-node-1", Title: "Planning"},
	}}

	out := SanitizeNodes(nodes)
	require.Len(t, out, 1)

	pn := out[0]
	assert.Equal(t, "chat-node-1", pn.ID)
	assert.Equal(t, "chat", pn.Type)
	assert.Equal(t, canvas.DefaultNodeWidth, pn.Data.Width)
	assert.Equal(t, canvas.DefaultNodeHeight, pn.Data.Height)
	require.NotNil(t, pn.Data.ZIndex)
	assert.Equal(t, canvas.DefaultZIndex, *pn.Data.ZIndex)
	assert.Equal(t, "Planning", pn.Data.Title)
}

func TestSanitizeNodesKeepsExplicitDimensions(t *testing.T) {
	nodes := []canvas.Node{{
		ID:     "text-block-node-1",
		Kind:   canvas.KindTextBlock,
		Width:  512,
		Height: 96,
		ZIndex: 7,
		Data:   canvas.TextBlockData{NodeID: "text-block-node-1", Text: "hi", Notes: "n"},
	}}

	pn := SanitizeNodes(nodes)[0]
	assert.Equal(t, 512.0, pn.Data.Width)
	assert.Equal(t, 96.0, pn.Data.Height)
	require.NotNil(t, pn.Data.ZIndex)
	assert.Equal(t, 7, *pn.Data.ZIndex)
	assert.Equal(t, "hi", pn.Data.Text)
	assert.Equal(t, "n", pn.Data.Notes)
}

func TestSanitizeEdgesAppliesDefaults(t *testing.T) {
	edges := []canvas.Edge{
		{ID: "edge-a-b", Source: "a", Target: "b"},
		{ID: "edge-c-d", Source: "c", Target: "d", Type: "straight", Style: canvas.EdgeStyle{Stroke: "#000", StrokeWidth: 1}},
	}

	out := SanitizeEdges(edges)
	require.Len(t, out, 2)
	assert.Equal(t, canvas.DefaultEdgeType, out[0].Type)
	assert.Equal(t, canvas.DefaultEdgeStyle(), out[0].Style)
	assert.Equal(t, "straight", out[1].Type)
	assert.Equal(t, canvas.EdgeStyle{Stroke: "#000", StrokeWidth: 1}, out[1].Style)
}

func TestRestoreNodesSkipsUnknownTypes(t *testing.T) {
	persisted := []canvas.PersistedNode{
		{ID: "chat-node-1", Type: "chat", Data: canvas.PersistedNodeData{Width: 400, Height: 280, ZIndex: intPtr(1)}},
		{ID: "widget-1", Type: "widget"},
	}

	out := RestoreNodes(persisted)
	require.Len(t, out, 1)
	assert.Equal(t, "chat-node-1", out[0].ID)
}

func TestRestoreNodesStampsNodeIDIntoPayload(t *testing.T) {
	persisted := []canvas.PersistedNode{{
		ID:   "context-node-3",
		Type: "context",
		Data: canvas.PersistedNodeData{ContentType: "website", Title: "Docs", URL: "https://x"},
	}}

	out := RestoreNodes(persisted)
	require.Len(t, out, 1)
	data, ok := out[0].Data.(canvas.ContextData)
	require.True(t, ok)
	assert.Equal(t, "context-node-3", data.NodeID)
	assert.Equal(t, canvas.ContentWebsite, data.ContentType)
	assert.Equal(t, canvas.DefaultNodeWidth, out[0].Width)
}

func TestRestoreNodesDefaultsZIndexOnlyWhenAbsent(t *testing.T) {
	persisted := []canvas.PersistedNode{
		{ID: "chat-node-1", Type: "chat"},
		{ID: "chat-node-2", Type: "chat", Data: canvas.PersistedNodeData{ZIndex: intPtr(0)}},
		{ID: "chat-node-3", Type: "chat", Data: canvas.PersistedNodeData{ZIndex: intPtr(4)}},
	}

	out := RestoreNodes(persisted)
	require.Len(t, out, 3)
	assert.Equal(t, canvas.DefaultZIndex, out[0].ZIndex)
	assert.Equal(t, 0, out[1].ZIndex)
	assert.Equal(t, 4, out[2].ZIndex)
}

func TestSanitizeRestoreRoundTrip(t *testing.T) {
	nodes := []canvas.Node{
		{
			ID: "chat-node-2", Kind: canvas.KindChat,
			Position: canvas.Position{X: 1, Y: 2}, Width: 420, Height: 300, ZIndex: 2,
			Data: canvas.ChatData{NodeID: "chat-node-2", Title: "T"},
		},
		{
			ID: "external-doc-node-1", Kind: canvas.KindExternalDoc,
			IsMinimized: true,
			Data:        canvas.ExternalDocData{NodeID: "external-doc-node-1", Title: "D", URL: "u", Provider: "p"},
		},
	}
	edges := []canvas.Edge{{
		ID: "edge-external-doc-node-1-chat-node-2", Source: "external-doc-node-1", Target: "chat-node-2",
		SourceHandle: "doc-source", TargetHandle: canvas.ChatTargetHandle,
	}}

	restoredNodes := RestoreNodes(SanitizeNodes(nodes))
	restoredEdges := RestoreEdges(SanitizeEdges(edges))

	require.Len(t, restoredNodes, 2)
	assert.Equal(t, nodes[0].Data, restoredNodes[0].Data)
	assert.Equal(t, 420.0, restoredNodes[0].Width)
	assert.True(t, restoredNodes[1].IsMinimized)
	assert.Equal(t, nodes[1].Data, restoredNodes[1].Data)

	require.Len(t, restoredEdges, 1)
	assert.Equal(t, canvas.DefaultEdgeType, restoredEdges[0].Type)
	assert.Equal(t, "doc-source", restoredEdges[0].SourceHandle)
}
