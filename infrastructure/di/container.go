package di

import (
	"context"

	"canvas-backend/application/ports"
	"canvas-backend/application/services"
	"canvas-backend/infrastructure/chat"
	"canvas-backend/infrastructure/config"
	"canvas-backend/pkg/auth"
	"canvas-backend/pkg/observability"

	"go.uber.org/zap"
)

// Container holds every wired dependency for the application.
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	ProjectRepository  ports.ProjectRepository
	SnapshotRepository ports.SnapshotRepository
	EventPublisher     ports.EventPublisher

	Metrics *observability.Metrics
	Tracer  *observability.Tracer

	ChatClient *chat.Client

	CanvasService  *services.CanvasService
	ProjectService *services.ProjectService
	CanvasManager  *services.CanvasManager

	JWTValidator *auth.JWTValidator
}

// Shutdown flushes pending canvas saves and releases resources. Call it
// before process exit so the debounced autosavers get their final write.
func (c *Container) Shutdown(ctx context.Context) {
	if c.CanvasManager != nil {
		c.CanvasManager.CloseAll(ctx)
	}
	if c.Logger != nil {
		_ = c.Logger.Sync()
	}
}
