package services

import (
	"context"

	"canvas-backend/application/ports"
	"canvas-backend/domain/events"
	"canvas-backend/domain/project"
	pkgerrors "canvas-backend/pkg/errors"

	"go.uber.org/zap"
)

// ProjectService owns the project registry: creating, listing, and
// deleting the records canvases hang off.
type ProjectService struct {
	projects  ports.ProjectRepository
	snapshots ports.SnapshotRepository
	publisher ports.EventPublisher
	logger    *zap.Logger
}

// NewProjectService creates a new project service.
func NewProjectService(
	projects ports.ProjectRepository,
	snapshots ports.SnapshotRepository,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) *ProjectService {
	return &ProjectService{
		projects:  projects,
		snapshots: snapshots,
		publisher: publisher,
		logger:    logger,
	}
}

// Create registers a new project for a user.
func (s *ProjectService) Create(ctx context.Context, userID, name, description string) (*project.Project, error) {
	p, err := project.New(userID, name, description)
	if err != nil {
		return nil, err
	}
	if err := s.projects.Create(ctx, p); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to create project")
	}

	s.logger.Info("project created",
		zap.String("projectID", p.ID),
		zap.String("userID", userID),
	)
	return p, nil
}

// Get retrieves one project record.
func (s *ProjectService) Get(ctx context.Context, projectID string) (*project.Project, error) {
	return s.projects.GetByID(ctx, projectID)
}

// List returns a user's projects, most recently updated first.
func (s *ProjectService) List(ctx context.Context, userID string) ([]*project.Project, error) {
	if userID == "" {
		return nil, pkgerrors.NewValidationError("userID cannot be empty")
	}
	return s.projects.ListByUser(ctx, userID)
}

// Delete removes a project and cascades to its canvas snapshot. The
// record goes first so a failed cascade leaves no orphaned project.
func (s *ProjectService) Delete(ctx context.Context, projectID string) error {
	p, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return err
	}

	if err := s.projects.Delete(ctx, projectID); err != nil {
		return pkgerrors.Wrap(err, "failed to delete project")
	}
	if err := s.snapshots.Delete(ctx, projectID); err != nil {
		return pkgerrors.Wrap(err, "failed to delete canvas snapshot")
	}

	if s.publisher != nil {
		event := events.NewProjectDeleted(projectID, p.UserID)
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish project deleted event",
				zap.String("projectID", projectID),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("project deleted",
		zap.String("projectID", projectID),
		zap.String("userID", p.UserID),
	)
	return nil
}
