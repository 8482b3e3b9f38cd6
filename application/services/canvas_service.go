package services

import (
	"context"
	"time"

	"canvas-backend/application/ports"
	"canvas-backend/domain/canvas"
	"canvas-backend/domain/events"
	"canvas-backend/domain/project"
	pkgerrors "canvas-backend/pkg/errors"
	"canvas-backend/pkg/observability"

	"go.uber.org/zap"
)

// LoadedCanvas is the result of loading a project's canvas: the project
// record plus the rebuilt graph ready for hydration.
type LoadedCanvas struct {
	Project  *project.Project
	Snapshot canvas.Snapshot
}

// CanvasService is the persistence bridge: it owns sanitization on the
// way out and snapshot restoration on the way in. A save is one logical
// operation covering the snapshot upsert and the project's viewport and
// modification-timestamp write; either failure fails the save.
type CanvasService struct {
	projects  ports.ProjectRepository
	snapshots ports.SnapshotRepository
	publisher ports.EventPublisher
	tracer    *observability.Tracer
	logger    *zap.Logger
}

// NewCanvasService creates a new canvas service. The publisher and
// tracer may be nil when no event bus or tracing is configured.
func NewCanvasService(
	projects ports.ProjectRepository,
	snapshots ports.SnapshotRepository,
	publisher ports.EventPublisher,
	tracer *observability.Tracer,
	logger *zap.Logger,
) *CanvasService {
	return &CanvasService{
		projects:  projects,
		snapshots: snapshots,
		publisher: publisher,
		tracer:    tracer,
		logger:    logger,
	}
}

// Save upserts the sanitized snapshot and the project viewport in one
// logical save. Replace-whole-snapshot semantics: no field-level merge.
func (s *CanvasService) Save(ctx context.Context, projectID string, nodes []canvas.Node, edges []canvas.Edge, viewport canvas.Viewport) error {
	if projectID == "" {
		return pkgerrors.NewValidationError("projectID cannot be empty")
	}
	if s.tracer != nil {
		return s.tracer.TraceFunction(ctx, "canvas.save", func(ctx context.Context) error {
			return s.save(ctx, projectID, nodes, edges, viewport)
		})
	}
	return s.save(ctx, projectID, nodes, edges, viewport)
}

func (s *CanvasService) save(ctx context.Context, projectID string, nodes []canvas.Node, edges []canvas.Edge, viewport canvas.Viewport) error {
	snap := &canvas.PersistedSnapshot{
		ProjectID: projectID,
		Nodes:     SanitizeNodes(nodes),
		Edges:     SanitizeEdges(edges),
		Version:   canvas.SnapshotVersion,
	}

	if err := s.snapshots.Put(ctx, snap); err != nil {
		return pkgerrors.Wrap(err, "failed to save canvas snapshot")
	}
	if err := s.projects.UpdateViewport(ctx, projectID, viewport, time.Now()); err != nil {
		return pkgerrors.Wrap(err, "failed to update project viewport")
	}

	if s.publisher != nil {
		event := events.NewCanvasSaved(projectID, len(snap.Nodes), len(snap.Edges))
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish canvas saved event",
				zap.String("projectID", projectID),
				zap.Error(err),
			)
		}
	}

	s.logger.Debug("canvas saved",
		zap.String("projectID", projectID),
		zap.Int("nodes", len(snap.Nodes)),
		zap.Int("edges", len(snap.Edges)),
	)
	return nil
}

// Load fetches the project record and its snapshot. A project without a
// snapshot row gets an empty synthesized one rather than an error. The
// last-opened stamp is fire-and-forget: its failure never fails a load.
func (s *CanvasService) Load(ctx context.Context, projectID string) (*LoadedCanvas, error) {
	if projectID == "" {
		return nil, pkgerrors.NewValidationError("projectID cannot be empty")
	}

	p, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to load project")
	}

	snap, err := s.snapshots.Get(ctx, projectID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to load canvas snapshot")
	}
	if snap == nil {
		snap = &canvas.PersistedSnapshot{
			ProjectID: projectID,
			Nodes:     []canvas.PersistedNode{},
			Edges:     []canvas.PersistedEdge{},
			Version:   canvas.SnapshotVersion,
		}
	}

	go func() {
		stampCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.projects.TouchLastOpened(stampCtx, projectID, time.Now()); err != nil {
			s.logger.Warn("failed to stamp last opened",
				zap.String("projectID", projectID),
				zap.Error(err),
			)
		}
	}()

	return &LoadedCanvas{
		Project: p,
		Snapshot: canvas.Snapshot{
			Nodes:    RestoreNodes(snap.Nodes),
			Edges:    RestoreEdges(snap.Edges),
			Viewport: p.Viewport,
		},
	}, nil
}
