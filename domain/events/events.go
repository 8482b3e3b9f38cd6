package events

import (
	"time"

	"canvas-backend/domain/canvas"
)

// DomainEvent is the base interface for all domain events.
// Events represent something that has happened in the past.
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
}

// BaseEvent provides common event fields.
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }

// NodeDeleted is raised after a node has been removed from a canvas,
// including the cascade of its edges and conversation mapping.
type NodeDeleted struct {
	BaseEvent
	ProjectID      string          `json:"project_id"`
	NodeID         string          `json:"node_id"`
	Kind           canvas.NodeKind `json:"kind"`
	ConversationID string          `json:"conversation_id,omitempty"`
}

// NewNodeDeleted creates a NodeDeleted event.
func NewNodeDeleted(projectID, nodeID string, kind canvas.NodeKind, conversationID string) NodeDeleted {
	return NodeDeleted{
		BaseEvent: BaseEvent{
			AggregateID: projectID,
			EventType:   "canvas.node_deleted",
			Timestamp:   time.Now(),
		},
		ProjectID:      projectID,
		NodeID:         nodeID,
		Kind:           kind,
		ConversationID: conversationID,
	}
}

// CanvasSaved is raised after a snapshot has been persisted.
type CanvasSaved struct {
	BaseEvent
	ProjectID string `json:"project_id"`
	NodeCount int    `json:"node_count"`
	EdgeCount int    `json:"edge_count"`
}

// NewCanvasSaved creates a CanvasSaved event.
func NewCanvasSaved(projectID string, nodeCount, edgeCount int) CanvasSaved {
	return CanvasSaved{
		BaseEvent: BaseEvent{
			AggregateID: projectID,
			EventType:   "canvas.saved",
			Timestamp:   time.Now(),
		},
		ProjectID: projectID,
		NodeCount: nodeCount,
		EdgeCount: edgeCount,
	}
}

// ProjectDeleted is raised after a project and its snapshot are removed.
type ProjectDeleted struct {
	BaseEvent
	ProjectID string `json:"project_id"`
	UserID    string `json:"user_id"`
}

// NewProjectDeleted creates a ProjectDeleted event.
func NewProjectDeleted(projectID, userID string) ProjectDeleted {
	return ProjectDeleted{
		BaseEvent: BaseEvent{
			AggregateID: projectID,
			EventType:   "project.deleted",
			Timestamp:   time.Now(),
		},
		ProjectID: projectID,
		UserID:    userID,
	}
}
