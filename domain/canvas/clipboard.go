package canvas

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Clipboard buffers copied nodes and the edges between them. The buffer
// is a snapshot, not a reference: later graph edits do not change it.
// It lives until the next copy overwrites it.
type Clipboard struct {
	mu    sync.Mutex
	nodes []Node
	edges []Edge
}

// NewClipboard creates an empty clipboard.
func NewClipboard() *Clipboard {
	return &Clipboard{}
}

// IsEmpty reports whether anything has been copied.
func (c *Clipboard) IsEmpty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.nodes) == 0
}

func (c *Clipboard) set(nodes []Node, edges []Edge) {
	c.mu.Lock()
	c.nodes = nodes
	c.edges = edges
	c.mu.Unlock()
}

func (c *Clipboard) contents() ([]Node, []Edge) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Node(nil), c.nodes...), append([]Edge(nil), c.edges...)
}

// CopyNodes snapshots the selected nodes, in selection order, plus the
// edges whose both endpoints are selected. Returns how many nodes were
// copied so the caller can surface a notification.
func (s *Store) CopyNodes(selection []string, cb *Clipboard) int {
	s.mu.Lock()
	selected := make(map[string]struct{}, len(selection))
	var nodes []Node
	for _, id := range selection {
		if idx := s.indexOfNode(id); idx >= 0 {
			nodes = append(nodes, s.nodes[idx])
			selected[id] = struct{}{}
		}
	}
	var edges []Edge
	for _, e := range s.edges {
		if _, ok := selected[e.Source]; !ok {
			continue
		}
		if _, ok := selected[e.Target]; !ok {
			continue
		}
		edges = append(edges, e)
	}
	s.mu.Unlock()

	cb.set(nodes, edges)
	return len(nodes)
}

// PasteNodes materializes the clipboard at the target position with
// fully remapped identities. The first copied node anchors the
// translation. Chat and context ids come from the typed counters; other
// kinds get a derived fallback id. Everything is appended in one locked
// section so observers never see a partial paste.
func (s *Store) PasteNodes(cb *Clipboard, target Position) []Node {
	copied, copiedEdges := cb.contents()
	if len(copied) == 0 {
		return nil
	}

	offset := Position{
		X: target.X - copied[0].Position.X,
		Y: target.Y - copied[0].Position.Y,
	}

	s.mu.Lock()
	idMap := make(map[string]string, len(copied))
	newNodes := make([]Node, 0, len(copied))
	for _, n := range copied {
		var newID string
		switch n.Kind {
		case KindChat, KindContext:
			s.counters[n.Kind]++
			newID = MintNodeID(n.Kind, s.counters[n.Kind])
		default:
			newID = pasteFallbackID(n.ID)
		}
		idMap[n.ID] = newID

		n.ID = newID
		n.Position = Position{X: n.Position.X + offset.X, Y: n.Position.Y + offset.Y}
		n.Selected = false
		if n.Data != nil {
			n.Data = n.Data.WithNodeID(newID)
		}
		newNodes = append(newNodes, n)
	}

	newEdges := make([]Edge, 0, len(copiedEdges))
	for _, e := range copiedEdges {
		src, okSrc := idMap[e.Source]
		dst, okDst := idMap[e.Target]
		if !okSrc || !okDst {
			// Copy already filters to internal edges; anything else
			// would dangle, so drop it.
			continue
		}
		e.Source = src
		e.Target = dst
		e.ID = MintEdgeID(src, dst)
		newEdges = append(newEdges, e)
	}

	s.nodes = append(s.nodes, newNodes...)
	s.edges = append(s.edges, newEdges...)
	s.mu.Unlock()

	s.notifyChange()
	return newNodes
}

// pasteFallbackID derives a unique id for kinds pasted outside the
// typed counters. A random fragment replaces the reference timestamp
// scheme, which could collide under rapid repeated pastes.
func pasteFallbackID(oldID string) string {
	frag := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return oldID + "-copy-" + frag
}
