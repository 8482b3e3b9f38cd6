package project

import (
	"time"

	"canvas-backend/domain/canvas"
	pkgerrors "canvas-backend/pkg/errors"

	"github.com/google/uuid"
)

// Project is a user-owned canvas document: its metadata and camera
// state. The graph itself lives in the project's snapshot record.
type Project struct {
	ID           string
	UserID       string
	Name         string
	Description  string
	Viewport     canvas.Viewport
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastOpenedAt time.Time
}

// New creates a project with a fresh id and default viewport.
func New(userID, name, description string) (*Project, error) {
	if userID == "" {
		return nil, pkgerrors.NewValidationError("userID cannot be empty")
	}
	if name == "" {
		return nil, pkgerrors.NewValidationError("project name cannot be empty")
	}

	now := time.Now()
	return &Project{
		ID:          uuid.New().String(),
		UserID:      userID,
		Name:        name,
		Description: description,
		Viewport:    canvas.DefaultViewport(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}
