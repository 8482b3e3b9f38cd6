package canvas

// Viewport is the camera state of the canvas. It is persisted alongside
// the graph but carries no content.
type Viewport struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

// DefaultViewport is the camera state of a freshly created project.
func DefaultViewport() Viewport {
	return Viewport{X: 0, Y: 0, Zoom: 1}
}

// Snapshot is a point-in-time copy of the full canvas state, used for
// hydration and for handing read projections to callers. The slices
// are copies; mutating them does not touch the store.
type Snapshot struct {
	Nodes    []Node
	Edges    []Edge
	Viewport Viewport
}
