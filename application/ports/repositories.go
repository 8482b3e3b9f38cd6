package ports

import (
	"context"
	"time"

	"canvas-backend/domain/canvas"
	"canvas-backend/domain/events"
	"canvas-backend/domain/project"
)

// ProjectRepository defines the interface for project persistence.
// This is a port in hexagonal architecture: the domain doesn't know
// about the implementation.
type ProjectRepository interface {
	// Create persists a new project record.
	Create(ctx context.Context, p *project.Project) error

	// GetByID retrieves a project by its id.
	GetByID(ctx context.Context, projectID string) (*project.Project, error)

	// ListByUser retrieves a user's projects ordered by recency
	// (most recently updated first).
	ListByUser(ctx context.Context, userID string) ([]*project.Project, error)

	// UpdateViewport writes the project's camera state and bumps the
	// modification timestamp.
	UpdateViewport(ctx context.Context, projectID string, v canvas.Viewport, updatedAt time.Time) error

	// TouchLastOpened stamps the project's last-opened timestamp.
	TouchLastOpened(ctx context.Context, projectID string, at time.Time) error

	// Delete removes a project. The caller cascades to the snapshot.
	Delete(ctx context.Context, projectID string) error
}

// SnapshotRepository defines the interface for canvas-snapshot
// persistence. One snapshot record exists per project; Put replaces it
// wholesale.
type SnapshotRepository interface {
	// Put upserts the project's snapshot.
	Put(ctx context.Context, snap *canvas.PersistedSnapshot) error

	// Get retrieves the project's snapshot. A missing snapshot is
	// (nil, nil), not an error: the caller synthesizes an empty one.
	Get(ctx context.Context, projectID string) (*canvas.PersistedSnapshot, error)

	// Delete removes the project's snapshot.
	Delete(ctx context.Context, projectID string) error
}

// EventPublisher publishes domain events to the event bus.
type EventPublisher interface {
	Publish(ctx context.Context, event events.DomainEvent) error
}
