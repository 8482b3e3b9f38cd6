package canvas

// Persisted shapes are the wire format of a stored snapshot. They are
// bit-relevant for round-tripping: the persistence bridge projects the
// in-memory model down to these and rebuilds it from them on load.

// PersistedNodeData is the sanitized node payload. Visual fields are
// always written (defaults substituted for absent values); the
// remaining fields are kind-specific and omitted when empty. ZIndex is
// a pointer so a stored zero stays distinguishable from an absent
// field on load.
type PersistedNodeData struct {
	NodeID      string  `json:"nodeId,omitempty"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	IsMinimized bool    `json:"isMinimized"`
	ZIndex      *int    `json:"zIndex,omitempty"`

	Title       string `json:"title,omitempty"`
	Text        string `json:"text,omitempty"`
	Notes       string `json:"notes,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	URL         string `json:"url,omitempty"`
	Description string `json:"description,omitempty"`
	Provider    string `json:"provider,omitempty"`
}

// ToNodeData rebuilds the typed payload for a node of the given kind.
// Returns nil for unknown kinds.
func (d PersistedNodeData) ToNodeData(kind NodeKind, nodeID string) NodeData {
	switch kind {
	case KindChat:
		return ChatData{NodeID: nodeID, Title: d.Title}
	case KindTextBlock:
		return TextBlockData{NodeID: nodeID, Text: d.Text, Notes: d.Notes}
	case KindContext:
		return ContextData{
			NodeID:      nodeID,
			ContentType: ContentType(d.ContentType),
			Title:       d.Title,
			URL:         d.URL,
			Description: d.Description,
			Text:        d.Text,
		}
	case KindExternalDoc:
		return ExternalDocData{
			NodeID:   nodeID,
			Title:    d.Title,
			URL:      d.URL,
			Provider: d.Provider,
		}
	}
	return nil
}

// PersistedNode is a node stripped of runtime-only state.
type PersistedNode struct {
	ID       string            `json:"id"`
	Type     string            `json:"type"`
	Position Position          `json:"position"`
	Data     PersistedNodeData `json:"data"`
}

// PersistedEdge is an edge in its stored shape.
type PersistedEdge struct {
	ID           string    `json:"id"`
	Source       string    `json:"source"`
	Target       string    `json:"target"`
	SourceHandle string    `json:"sourceHandle,omitempty"`
	TargetHandle string    `json:"targetHandle,omitempty"`
	Type         string    `json:"type"`
	Animated     bool      `json:"animated"`
	Style        EdgeStyle `json:"style"`
}

// SnapshotVersion is written into every stored snapshot. A placeholder
// for schema evolution, not an enforced contract.
const SnapshotVersion = 1

// PersistedSnapshot is the one canvas-snapshot record kept per project.
type PersistedSnapshot struct {
	ProjectID string          `json:"project_id"`
	Nodes     []PersistedNode `json:"nodes"`
	Edges     []PersistedEdge `json:"edges"`
	Version   int             `json:"version"`
}
