package canvas

import "fmt"

// EdgeStyle carries the decorative stroke settings persisted with an edge.
type EdgeStyle struct {
	Stroke      string  `json:"stroke,omitempty"`
	StrokeWidth float64 `json:"strokeWidth,omitempty"`
}

// DefaultEdgeStyle is applied to edges created by Connect and to
// persisted edges that carry no style of their own.
func DefaultEdgeStyle() EdgeStyle {
	return EdgeStyle{Stroke: "#94a3b8", StrokeWidth: 2}
}

// DefaultEdgeType is the renderer hint written when an edge has none.
const DefaultEdgeType = "smoothstep"

// Edge is a directed connection between two nodes. Only
// context/text-block/external-doc sources may point at a chat target.
type Edge struct {
	ID           string
	Source       string
	Target       string
	SourceHandle string
	TargetHandle string
	Type         string
	Animated     bool
	Style        EdgeStyle
}

// Connection is a gesture-level request to connect two nodes, before
// the store has decided whether the pair is allowed.
type Connection struct {
	Source string
	Target string
}

// ChatTargetHandle is the handle id on the receiving side of every
// allowed connection.
const ChatTargetHandle = "chat-target"

// sourceHandles maps a source kind to its outgoing handle id.
var sourceHandles = map[NodeKind]string{
	KindContext:     "context-source",
	KindTextBlock:   "text-source",
	KindExternalDoc: "doc-source",
}

// ConnectionAllowed reports whether an edge from sourceKind to
// targetKind is a valid gesture. The allowed set is fixed:
// {context, text-block, external-doc} -> {chat}.
func ConnectionAllowed(sourceKind, targetKind NodeKind) bool {
	if targetKind != KindChat {
		return false
	}
	_, ok := sourceHandles[sourceKind]
	return ok
}

// SourceHandle returns the handle id for a source kind. Only kinds in
// the allowed set have one.
func SourceHandle(kind NodeKind) (string, bool) {
	h, ok := sourceHandles[kind]
	return h, ok
}

// MintEdgeID derives the deterministic edge id for a source/target pair.
func MintEdgeID(source, target string) string {
	return fmt.Sprintf("edge-%s-%s", source, target)
}
