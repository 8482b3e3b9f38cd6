package canvas

import (
	"context"
	"sync"
	"time"

	pkgerrors "canvas-backend/pkg/errors"

	"go.uber.org/zap"
)

// ConversationCleaner requests deletion of server-side conversation and
// message records. Cleanup is best-effort: a failure is logged and never
// reverses the local delete.
type ConversationCleaner interface {
	CleanupConversation(ctx context.Context, conversationID string) error
}

// NodeDeleted describes a completed node deletion, delivered to the
// listener registered with SetOnNodeDeleted so dependents (caches,
// event publishers) can react without reaching into the store.
type NodeDeleted struct {
	NodeID         string
	Kind           NodeKind
	ConversationID string
}

// NodeUpdate is a partial update merged into an existing node. Nil
// fields are left untouched.
type NodeUpdate struct {
	Position    *Position
	Width       *float64
	Height      *float64
	IsMinimized *bool
	ZIndex      *int
	Selected    *bool
	Data        NodeData
}

// Store is the single source of truth for a canvas: nodes, edges,
// viewport, id counters, and the chat-node -> conversation mapping.
// Every mutation runs to completion under the store lock, so callers
// observe each operation as atomic. All other components read through
// Snapshot and mutate through these methods only.
type Store struct {
	mu            sync.Mutex
	nodes         []Node
	edges         []Edge
	viewport      Viewport
	counters      map[NodeKind]int
	conversations map[string]string

	cleaner       ConversationCleaner
	onNodeDeleted func(NodeDeleted)
	onChange      func()

	cleanupTimeout time.Duration
	logger         *zap.Logger
}

// NewStore creates an empty canvas store.
func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		counters:       newCounters(),
		conversations:  make(map[string]string),
		viewport:       DefaultViewport(),
		cleanupTimeout: 10 * time.Second,
		logger:         logger,
	}
}

func newCounters() map[NodeKind]int {
	c := make(map[NodeKind]int, len(Kinds))
	for _, k := range Kinds {
		c[k] = 0
	}
	return c
}

// SetConversationCleaner injects the remote conversation cleanup
// dependency used by DeleteNode.
func (s *Store) SetConversationCleaner(c ConversationCleaner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleaner = c
}

// SetOnNodeDeleted registers the listener notified after a node has
// been removed locally.
func (s *Store) SetOnNodeDeleted(fn func(NodeDeleted)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onNodeDeleted = fn
}

// SetOnChange registers the listener invoked after each user-driven
// mutation. External sync operations (Hydrate, SetNodes, SetEdges,
// SetViewport) do not trigger it.
func (s *Store) SetOnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// AddNode mints a new node of the given kind at the given position.
// An empty owner project id is a recoverable validation error: nothing
// is mutated and the caller reports the condition to the user.
func (s *Store) AddNode(kind NodeKind, pos Position, projectID string) (Node, error) {
	if projectID == "" {
		return Node{}, pkgerrors.NewValidationError("cannot add node without a project")
	}
	if !kind.IsValid() {
		return Node{}, pkgerrors.NewValidationError("unknown node kind: " + string(kind))
	}

	s.mu.Lock()
	s.counters[kind]++
	id := MintNodeID(kind, s.counters[kind])
	node := Node{
		ID:       id,
		Kind:     kind,
		Position: pos,
		Width:    DefaultNodeWidth,
		Height:   DefaultNodeHeight,
		ZIndex:   DefaultZIndex,
		Data:     DefaultData(kind, id),
	}
	s.nodes = append(s.nodes, node)
	s.mu.Unlock()

	s.notifyChange()
	return node, nil
}

// UpdateNode merges a partial update into the node with the given id.
// A missing node is a no-op.
func (s *Store) UpdateNode(id string, upd NodeUpdate) {
	s.mu.Lock()
	idx := s.indexOfNode(id)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	n := &s.nodes[idx]
	if upd.Position != nil {
		n.Position = *upd.Position
	}
	if upd.Width != nil {
		n.Width = *upd.Width
	}
	if upd.Height != nil {
		n.Height = *upd.Height
	}
	if upd.IsMinimized != nil {
		n.IsMinimized = *upd.IsMinimized
	}
	if upd.ZIndex != nil {
		n.ZIndex = *upd.ZIndex
	}
	if upd.Selected != nil {
		n.Selected = *upd.Selected
	}
	if upd.Data != nil {
		n.Data = upd.Data
	}
	s.mu.Unlock()

	s.notifyChange()
}

// DeleteNode removes a node and cascades: every edge touching it goes,
// a chat node's conversation mapping is cleared, the delete listener is
// notified, and remote conversation cleanup is requested without
// blocking the local mutation.
func (s *Store) DeleteNode(id string) {
	s.mu.Lock()
	idx := s.indexOfNode(id)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	node := s.nodes[idx]
	s.nodes = append(s.nodes[:idx], s.nodes[idx+1:]...)

	kept := s.edges[:0]
	for _, e := range s.edges {
		if e.Source != id && e.Target != id {
			kept = append(kept, e)
		}
	}
	s.edges = kept

	conversationID := s.conversations[id]
	delete(s.conversations, id)

	cleaner := s.cleaner
	listener := s.onNodeDeleted
	s.mu.Unlock()

	deleted := NodeDeleted{NodeID: id, Kind: node.Kind, ConversationID: conversationID}
	if listener != nil {
		listener(deleted)
	}

	if conversationID != "" && cleaner != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.cleanupTimeout)
			defer cancel()
			if err := cleaner.CleanupConversation(ctx, conversationID); err != nil {
				s.logger.Warn("remote conversation cleanup failed",
					zap.String("nodeID", id),
					zap.String("conversationID", conversationID),
					zap.Error(err),
				)
			}
		}()
	}

	s.notifyChange()
}

// AddEdge appends an edge directly, without the gate checks applied to
// user gestures. Connection attempts go through Connect instead.
func (s *Store) AddEdge(e Edge) {
	s.mu.Lock()
	s.edges = append(s.edges, e)
	s.mu.Unlock()

	s.notifyChange()
}

// DeleteEdge removes the edge with the given id, if present.
func (s *Store) DeleteEdge(id string) {
	s.mu.Lock()
	removed := false
	for i, e := range s.edges {
		if e.ID == id {
			s.edges = append(s.edges[:i], s.edges[i+1:]...)
			removed = true
			break
		}
	}
	s.mu.Unlock()

	if removed {
		s.notifyChange()
	}
}

// Connect is the sole gate for user-driven edge creation. Pairs outside
// the allowed set, missing endpoints, and repeat connections are
// silently ignored: they are not valid gestures, not errors.
func (s *Store) Connect(c Connection) (Edge, bool) {
	s.mu.Lock()
	srcIdx := s.indexOfNode(c.Source)
	dstIdx := s.indexOfNode(c.Target)
	if srcIdx < 0 || dstIdx < 0 {
		s.mu.Unlock()
		return Edge{}, false
	}
	srcKind := s.nodes[srcIdx].Kind
	dstKind := s.nodes[dstIdx].Kind
	if !ConnectionAllowed(srcKind, dstKind) {
		s.mu.Unlock()
		s.logger.Debug("ignoring disallowed connection",
			zap.String("sourceKind", string(srcKind)),
			zap.String("targetKind", string(dstKind)),
		)
		return Edge{}, false
	}

	id := MintEdgeID(c.Source, c.Target)
	for _, e := range s.edges {
		if e.ID == id {
			s.mu.Unlock()
			return Edge{}, false
		}
	}

	handle, _ := SourceHandle(srcKind)
	edge := Edge{
		ID:           id,
		Source:       c.Source,
		Target:       c.Target,
		SourceHandle: handle,
		TargetHandle: ChatTargetHandle,
		Type:         DefaultEdgeType,
		Style:        DefaultEdgeStyle(),
	}
	s.edges = append(s.edges, edge)
	s.mu.Unlock()

	s.notifyChange()
	return edge, true
}

// SetNodes replaces the node collection wholesale. External sync only.
func (s *Store) SetNodes(nodes []Node) {
	s.mu.Lock()
	s.nodes = append([]Node(nil), nodes...)
	s.mu.Unlock()
}

// SetEdges replaces the edge collection wholesale. External sync only.
func (s *Store) SetEdges(edges []Edge) {
	s.mu.Lock()
	s.edges = append([]Edge(nil), edges...)
	s.mu.Unlock()
}

// SetViewport replaces the camera state. External sync only.
func (s *Store) SetViewport(v Viewport) {
	s.mu.Lock()
	s.viewport = v
	s.mu.Unlock()
}

// Hydrate replaces the whole canvas from a persisted snapshot. Edges
// whose endpoints are gone are pruned, and every kind's counter is
// recomputed from the largest id suffix present so future mints can
// never collide with hydrated ids. Stored counters are never trusted.
func (s *Store) Hydrate(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nodes = append([]Node(nil), snap.Nodes...)

	present := make(map[string]struct{}, len(s.nodes))
	for _, n := range s.nodes {
		present[n.ID] = struct{}{}
	}
	s.edges = s.edges[:0]
	pruned := 0
	for _, e := range snap.Edges {
		if _, ok := present[e.Source]; !ok {
			pruned++
			continue
		}
		if _, ok := present[e.Target]; !ok {
			pruned++
			continue
		}
		s.edges = append(s.edges, e)
	}
	if pruned > 0 {
		s.logger.Info("pruned dangling edges during hydration", zap.Int("count", pruned))
	}

	s.viewport = snap.Viewport

	s.counters = newCounters()
	for _, n := range s.nodes {
		for _, k := range Kinds {
			if suffix, ok := ParseNodeSuffix(k, n.ID); ok && suffix > s.counters[k] {
				s.counters[k] = suffix
			}
		}
	}
}

// ResetCanvas clears everything and zeroes all counters.
func (s *Store) ResetCanvas() {
	s.mu.Lock()
	s.nodes = nil
	s.edges = nil
	s.viewport = DefaultViewport()
	s.counters = newCounters()
	s.conversations = make(map[string]string)
	s.mu.Unlock()

	s.notifyChange()
}

// Snapshot returns a copy of the current canvas state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Nodes:    append([]Node(nil), s.nodes...),
		Edges:    append([]Edge(nil), s.edges...),
		Viewport: s.viewport,
	}
}

// Nodes returns a copy of the node collection in insertion order.
func (s *Store) Nodes() []Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Node(nil), s.nodes...)
}

// Edges returns a copy of the edge collection in insertion order.
func (s *Store) Edges() []Edge {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Edge(nil), s.edges...)
}

// Viewport returns the current camera state.
func (s *Store) Viewport() Viewport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewport
}

// Node returns the node with the given id.
func (s *Store) Node(id string) (Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexOfNode(id); idx >= 0 {
		return s.nodes[idx], true
	}
	return Node{}, false
}

// Counter returns the current counter value for a kind.
func (s *Store) Counter(kind NodeKind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[kind]
}

// SetConversation records the active remote conversation for a chat
// node. At most one conversation is active per chat node; setting a new
// one replaces the old mapping. Unknown or non-chat nodes are ignored.
func (s *Store) SetConversation(chatNodeID, conversationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOfNode(chatNodeID)
	if idx < 0 || s.nodes[idx].Kind != KindChat {
		return false
	}
	s.conversations[chatNodeID] = conversationID
	return true
}

// Conversation returns the active conversation id for a chat node.
func (s *Store) Conversation(chatNodeID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.conversations[chatNodeID]
	return id, ok
}

// indexOfNode must be called with the lock held.
func (s *Store) indexOfNode(id string) int {
	for i := range s.nodes {
		if s.nodes[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) notifyChange() {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}
