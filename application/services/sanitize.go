package services

import (
	"canvas-backend/domain/canvas"
)

// SanitizeNodes projects nodes down to their persisted shape, dropping
// runtime-only state (selection, drag flags, computed styling) and
// substituting defaults for absent visual fields.
func SanitizeNodes(nodes []canvas.Node) []canvas.PersistedNode {
	out := make([]canvas.PersistedNode, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, sanitizeNode(n))
	}
	return out
}

func sanitizeNode(n canvas.Node) canvas.PersistedNode {
	// The store mints nodes with a z-index of at least 1, so a zero here
	// means the field was never set and gets the default, like width and
	// height below.
	zIndex := n.ZIndex
	if zIndex == 0 {
		zIndex = canvas.DefaultZIndex
	}
	data := canvas.PersistedNodeData{
		Width:       n.Width,
		Height:      n.Height,
		IsMinimized: n.IsMinimized,
		ZIndex:      &zIndex,
	}
	if data.Width <= 0 {
		data.Width = canvas.DefaultNodeWidth
	}
	if data.Height <= 0 {
		data.Height = canvas.DefaultNodeHeight
	}

	switch d := n.Data.(type) {
	case canvas.ChatData:
		data.NodeID = d.NodeID
		data.Title = d.Title
	case canvas.TextBlockData:
		data.NodeID = d.NodeID
		data.Text = d.Text
		data.Notes = d.Notes
	case canvas.ContextData:
		data.NodeID = d.NodeID
		data.ContentType = string(d.ContentType)
		data.Title = d.Title
		data.URL = d.URL
		data.Description = d.Description
		data.Text = d.Text
	case canvas.ExternalDocData:
		data.NodeID = d.NodeID
		data.Title = d.Title
		data.URL = d.URL
		data.Provider = d.Provider
	}

	return canvas.PersistedNode{
		ID:       n.ID,
		Type:     string(n.Kind),
		Position: n.Position,
		Data:     data,
	}
}

// SanitizeEdges projects edges down to their persisted shape with
// defaults for the renderer type, animation flag, and style.
func SanitizeEdges(edges []canvas.Edge) []canvas.PersistedEdge {
	out := make([]canvas.PersistedEdge, 0, len(edges))
	for _, e := range edges {
		pe := canvas.PersistedEdge{
			ID:           e.ID,
			Source:       e.Source,
			Target:       e.Target,
			SourceHandle: e.SourceHandle,
			TargetHandle: e.TargetHandle,
			Type:         e.Type,
			Animated:     e.Animated,
			Style:        e.Style,
		}
		if pe.Type == "" {
			pe.Type = canvas.DefaultEdgeType
		}
		if pe.Style == (canvas.EdgeStyle{}) {
			pe.Style = canvas.DefaultEdgeStyle()
		}
		out = append(out, pe)
	}
	return out
}

// RestoreNodes rebuilds domain nodes from their persisted shape.
// Records with an unknown type are skipped; hydration then prunes any
// edges left pointing at them.
func RestoreNodes(persisted []canvas.PersistedNode) []canvas.Node {
	out := make([]canvas.Node, 0, len(persisted))
	for _, pn := range persisted {
		kind := canvas.NodeKind(pn.Type)
		if !kind.IsValid() {
			continue
		}
		n := canvas.Node{
			ID:          pn.ID,
			Kind:        kind,
			Position:    pn.Position,
			Width:       pn.Data.Width,
			Height:      pn.Data.Height,
			IsMinimized: pn.Data.IsMinimized,
			ZIndex:      canvas.DefaultZIndex,
			Data:        restoreData(kind, pn),
		}
		if pn.Data.ZIndex != nil {
			// A stored zero is an explicit stacking level, not an
			// absent field.
			n.ZIndex = *pn.Data.ZIndex
		}
		if n.Width <= 0 {
			n.Width = canvas.DefaultNodeWidth
		}
		if n.Height <= 0 {
			n.Height = canvas.DefaultNodeHeight
		}
		out = append(out, n)
	}
	return out
}

func restoreData(kind canvas.NodeKind, pn canvas.PersistedNode) canvas.NodeData {
	nodeID := pn.Data.NodeID
	if nodeID == "" {
		nodeID = pn.ID
	}
	return pn.Data.ToNodeData(kind, nodeID)
}

// RestoreEdges rebuilds domain edges from their persisted shape.
func RestoreEdges(persisted []canvas.PersistedEdge) []canvas.Edge {
	out := make([]canvas.Edge, 0, len(persisted))
	for _, pe := range persisted {
		out = append(out, canvas.Edge{
			ID:           pe.ID,
			Source:       pe.Source,
			Target:       pe.Target,
			SourceHandle: pe.SourceHandle,
			TargetHandle: pe.TargetHandle,
			Type:         pe.Type,
			Animated:     pe.Animated,
			Style:        pe.Style,
		})
	}
	return out
}
