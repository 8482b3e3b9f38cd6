package handlers

import (
	"net/http"
	"time"

	"canvas-backend/application/services"
	"canvas-backend/domain/canvas"
	"canvas-backend/domain/project"
	"canvas-backend/pkg/auth"
	"canvas-backend/pkg/common"
	pkgerrors "canvas-backend/pkg/errors"
	"canvas-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ProjectHandler handles project-registry HTTP requests
type ProjectHandler struct {
	projects *services.ProjectService
	manager  *services.CanvasManager
	logger   *zap.Logger
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(projects *services.ProjectService, manager *services.CanvasManager, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{
		projects: projects,
		manager:  manager,
		logger:   logger,
	}
}

// CreateProjectRequest represents the request body for creating a project
type CreateProjectRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=200"`
	Description string `json:"description,omitempty" validate:"omitempty,max=2000"`
}

// ProjectResponse is the wire shape of a project record
type ProjectResponse struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	Viewport     canvas.Viewport `json:"viewport"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
	LastOpenedAt *time.Time      `json:"lastOpenedAt,omitempty"`
}

func toProjectResponse(p *project.Project) ProjectResponse {
	resp := ProjectResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Viewport:    p.Viewport,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if !p.LastOpenedAt.IsZero() {
		t := p.LastOpenedAt
		resp.LastOpenedAt = &t
	}
	return resp
}

// CreateProject handles POST /projects
func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if err := common.ParseJSONBody(r, &req, 1<<20); err != nil {
		common.RespondError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondAppError(w, err)
		return
	}

	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized")
		return
	}

	p, err := h.projects.Create(r.Context(), user.UserID, req.Name, req.Description)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, toProjectResponse(p))
}

// ListProjects handles GET /projects
func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized")
		return
	}

	list, err := h.projects.List(r.Context(), user.UserID)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	out := make([]ProjectResponse, 0, len(list))
	for _, p := range list {
		out = append(out, toProjectResponse(p))
	}
	common.RespondJSON(w, http.StatusOK, out)
}

// GetProject handles GET /projects/{projectID}
func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	p, err := h.requireOwnedProject(r, projectID)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, toProjectResponse(p))
}

// DeleteProject handles DELETE /projects/{projectID}. An open canvas
// session is closed (and flushed) before the record goes away.
func (h *ProjectHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	if _, err := h.requireOwnedProject(r, projectID); err != nil {
		common.RespondAppError(w, err)
		return
	}

	if err := h.manager.Close(r.Context(), projectID); err != nil {
		h.logger.Warn("failed to flush canvas before delete",
			zap.String("projectID", projectID),
			zap.Error(err),
		)
	}
	if err := h.projects.Delete(r.Context(), projectID); err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"id": projectID, "status": "deleted"})
}

// requireOwnedProject loads a project and checks it belongs to the
// authenticated caller.
func (h *ProjectHandler) requireOwnedProject(r *http.Request, projectID string) (*project.Project, error) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		return nil, pkgerrors.NewUnauthorizedError("")
	}
	p, err := h.projects.Get(r.Context(), projectID)
	if err != nil {
		return nil, err
	}
	if p.UserID != user.UserID {
		// Hide other users' projects rather than confirming they exist.
		return nil, pkgerrors.NewNotFoundError("project")
	}
	return p, nil
}
