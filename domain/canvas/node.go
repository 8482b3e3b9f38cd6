package canvas

import (
	"fmt"
	"strconv"
	"strings"
)

// NodeKind identifies the type of a canvas node.
type NodeKind string

const (
	KindChat        NodeKind = "chat"
	KindContext     NodeKind = "context"
	KindTextBlock   NodeKind = "text-block"
	KindExternalDoc NodeKind = "external-doc"
)

// Kinds lists every node kind the canvas supports.
var Kinds = []NodeKind{KindChat, KindContext, KindTextBlock, KindExternalDoc}

// IsValid reports whether the kind is one the canvas supports.
func (k NodeKind) IsValid() bool {
	switch k {
	case KindChat, KindContext, KindTextBlock, KindExternalDoc:
		return true
	}
	return false
}

// ContentType is the declared subtype of a context node's payload.
type ContentType string

const (
	ContentText     ContentType = "text"
	ContentVideo    ContentType = "video"
	ContentImage    ContentType = "image"
	ContentWebsite  ContentType = "website"
	ContentDocument ContentType = "document"
)

// Position is a node's location on the canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NodeData is the kind-specific payload carried by a node.
// Each kind has its own concrete payload type; consumers switch
// exhaustively on the concrete type rather than digging through a
// loose key-value bag.
type NodeData interface {
	// Kind returns the node kind this payload belongs to.
	Kind() NodeKind
	// WithNodeID returns a copy of the payload with its node id field
	// stamped. Used when pasting remaps identities.
	WithNodeID(id string) NodeData
}

// ChatData is the payload of a chat node.
type ChatData struct {
	NodeID string
	Title  string
}

func (d ChatData) Kind() NodeKind { return KindChat }

func (d ChatData) WithNodeID(id string) NodeData {
	d.NodeID = id
	return d
}

// TextBlockData is the payload of a plain text block.
type TextBlockData struct {
	NodeID string
	Text   string
	Notes  string
}

func (d TextBlockData) Kind() NodeKind { return KindTextBlock }

func (d TextBlockData) WithNodeID(id string) NodeData {
	d.NodeID = id
	return d
}

// ContextData is the payload of a context node. Which metadata fields
// are meaningful depends on ContentType.
type ContextData struct {
	NodeID      string
	ContentType ContentType
	Title       string
	URL         string
	Description string
	Text        string
}

func (d ContextData) Kind() NodeKind { return KindContext }

func (d ContextData) WithNodeID(id string) NodeData {
	d.NodeID = id
	return d
}

// ExternalDocData is the payload of an external document reference.
type ExternalDocData struct {
	NodeID   string
	Title    string
	URL      string
	Provider string
}

func (d ExternalDocData) Kind() NodeKind { return KindExternalDoc }

func (d ExternalDocData) WithNodeID(id string) NodeData {
	d.NodeID = id
	return d
}

// DefaultData returns the zero payload for a kind, with the node id stamped.
func DefaultData(kind NodeKind, nodeID string) NodeData {
	switch kind {
	case KindChat:
		return ChatData{NodeID: nodeID}
	case KindContext:
		return ContextData{NodeID: nodeID, ContentType: ContentText}
	case KindTextBlock:
		return TextBlockData{NodeID: nodeID}
	case KindExternalDoc:
		return ExternalDocData{NodeID: nodeID}
	}
	return nil
}

// Default visual dimensions applied when a node carries none.
const (
	DefaultNodeWidth  = 400.0
	DefaultNodeHeight = 280.0
	DefaultZIndex     = 1
)

// Node is a positioned, typed unit of canvas content.
type Node struct {
	ID          string
	Kind        NodeKind
	Position    Position
	Width       float64
	Height      float64
	IsMinimized bool
	ZIndex      int
	Data        NodeData

	// Selected is runtime-only UI state and is never persisted.
	Selected bool
}

// MintNodeID formats the id for the n-th node of a kind.
func MintNodeID(kind NodeKind, n int) string {
	return fmt.Sprintf("%s-node-%d", kind, n)
}

// ParseNodeSuffix extracts the numeric suffix of an id minted for the
// given kind. The prefix length varies with the kind (a "text-block"
// prefix has one more hyphen-delimited segment than "chat"), so the
// suffix is located by prefix match rather than by splitting.
func ParseNodeSuffix(kind NodeKind, id string) (int, bool) {
	prefix := string(kind) + "-node-"
	if !strings.HasPrefix(id, prefix) {
		return 0, false
	}
	n, err := strconv.Atoi(id[len(prefix):])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
