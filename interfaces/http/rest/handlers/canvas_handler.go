package handlers

import (
	"net/http"

	"canvas-backend/application/services"
	"canvas-backend/domain/canvas"
	"canvas-backend/pkg/auth"
	"canvas-backend/pkg/common"
	pkgerrors "canvas-backend/pkg/errors"
	"canvas-backend/pkg/observability"
	"canvas-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CanvasHandler handles canvas HTTP requests. Every operation goes
// through the project's canvas session, so the store stays the single
// writer and the debounced auto-save sees each mutation.
type CanvasHandler struct {
	manager *services.CanvasManager
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewCanvasHandler creates a new canvas handler
func NewCanvasHandler(manager *services.CanvasManager, metrics *observability.Metrics, logger *zap.Logger) *CanvasHandler {
	return &CanvasHandler{
		manager: manager,
		metrics: metrics,
		logger:  logger,
	}
}

// CanvasResponse is the wire shape of a full canvas
type CanvasResponse struct {
	ProjectID string                 `json:"projectId"`
	Nodes     []canvas.PersistedNode `json:"nodes"`
	Edges     []canvas.PersistedEdge `json:"edges"`
	Viewport  canvas.Viewport        `json:"viewport"`
}

func canvasResponse(projectID string, snap canvas.Snapshot) CanvasResponse {
	return CanvasResponse{
		ProjectID: projectID,
		Nodes:     services.SanitizeNodes(snap.Nodes),
		Edges:     services.SanitizeEdges(snap.Edges),
		Viewport:  snap.Viewport,
	}
}

// openOwnedSession opens the project's canvas session and checks it
// belongs to the authenticated caller. Foreign projects get the same
// 404 as the project routes, so ids are never confirmed to exist.
func openOwnedSession(w http.ResponseWriter, r *http.Request, manager *services.CanvasManager) (*services.CanvasSession, bool) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized")
		return nil, false
	}
	session, err := manager.Open(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		common.RespondAppError(w, err)
		return nil, false
	}
	if session.Project.UserID != user.UserID {
		common.RespondAppError(w, pkgerrors.NewNotFoundError("project"))
		return nil, false
	}
	return session, true
}

func (h *CanvasHandler) session(w http.ResponseWriter, r *http.Request) (*services.CanvasSession, bool) {
	return openOwnedSession(w, r, h.manager)
}

// GetCanvas handles GET /projects/{projectID}/canvas
func (h *CanvasHandler) GetCanvas(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	h.metrics.IncrementCounter(r.Context(), observability.MetricCanvasLoads, nil)
	common.RespondJSON(w, http.StatusOK, canvasResponse(session.ProjectID, session.Store.Snapshot()))
}

// PutCanvasRequest is a wholesale canvas replacement
type PutCanvasRequest struct {
	Nodes    []canvas.PersistedNode `json:"nodes"`
	Edges    []canvas.PersistedEdge `json:"edges"`
	Viewport canvas.Viewport        `json:"viewport"`
}

// PutCanvas handles PUT /projects/{projectID}/canvas. The whole graph
// is replaced and persisted immediately rather than debounced.
func (h *CanvasHandler) PutCanvas(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req PutCanvasRequest
	if err := common.ParseJSONBody(r, &req, 16<<20); err != nil {
		common.RespondError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body: "+err.Error())
		return
	}

	session.Store.Hydrate(canvas.Snapshot{
		Nodes:    services.RestoreNodes(req.Nodes),
		Edges:    services.RestoreEdges(req.Edges),
		Viewport: req.Viewport,
	})
	if err := session.Save(r.Context()); err != nil {
		h.metrics.IncrementCounter(r.Context(), observability.MetricSaveFailures, nil)
		common.RespondAppError(w, err)
		return
	}
	h.metrics.IncrementCounter(r.Context(), observability.MetricCanvasSaves, nil)
	common.RespondJSON(w, http.StatusOK, canvasResponse(session.ProjectID, session.Store.Snapshot()))
}

// AddNodeRequest creates a node on the canvas
type AddNodeRequest struct {
	Kind string  `json:"kind" validate:"required,oneof=chat context text-block external-doc"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// AddNode handles POST /projects/{projectID}/canvas/nodes
func (h *CanvasHandler) AddNode(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req AddNodeRequest
	if err := common.ParseJSONBody(r, &req, 1<<20); err != nil {
		common.RespondError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondAppError(w, err)
		return
	}

	node, err := session.Store.AddNode(canvas.NodeKind(req.Kind), canvas.Position{X: req.X, Y: req.Y}, session.ProjectID)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, services.SanitizeNodes([]canvas.Node{node})[0])
}

// UpdateNodeRequest is a partial node update; absent fields are left
// untouched
type UpdateNodeRequest struct {
	X           *float64                  `json:"x,omitempty"`
	Y           *float64                  `json:"y,omitempty"`
	Width       *float64                  `json:"width,omitempty"`
	Height      *float64                  `json:"height,omitempty"`
	IsMinimized *bool                     `json:"isMinimized,omitempty"`
	ZIndex      *int                      `json:"zIndex,omitempty"`
	Selected    *bool                     `json:"selected,omitempty"`
	Data        *canvas.PersistedNodeData `json:"data,omitempty"`
}

// UpdateNode handles PATCH /projects/{projectID}/canvas/nodes/{nodeID}
func (h *CanvasHandler) UpdateNode(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	nodeID := chi.URLParam(r, "nodeID")

	var req UpdateNodeRequest
	if err := common.ParseJSONBody(r, &req, 1<<20); err != nil {
		common.RespondError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body: "+err.Error())
		return
	}

	upd := canvas.NodeUpdate{
		Width:       req.Width,
		Height:      req.Height,
		IsMinimized: req.IsMinimized,
		ZIndex:      req.ZIndex,
		Selected:    req.Selected,
	}
	if req.X != nil || req.Y != nil {
		node, found := session.Store.Node(nodeID)
		if !found {
			common.RespondError(w, http.StatusNotFound, "NOT_FOUND", "node not found")
			return
		}
		pos := node.Position
		if req.X != nil {
			pos.X = *req.X
		}
		if req.Y != nil {
			pos.Y = *req.Y
		}
		upd.Position = &pos
	}
	if req.Data != nil {
		node, found := session.Store.Node(nodeID)
		if !found {
			common.RespondError(w, http.StatusNotFound, "NOT_FOUND", "node not found")
			return
		}
		upd.Data = req.Data.ToNodeData(node.Kind, nodeID)
	}

	session.Store.UpdateNode(nodeID, upd)

	node, found := session.Store.Node(nodeID)
	if !found {
		common.RespondError(w, http.StatusNotFound, "NOT_FOUND", "node not found")
		return
	}
	common.RespondJSON(w, http.StatusOK, services.SanitizeNodes([]canvas.Node{node})[0])
}

// DeleteNode handles DELETE /projects/{projectID}/canvas/nodes/{nodeID}
func (h *CanvasHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	nodeID := chi.URLParam(r, "nodeID")

	session.Store.DeleteNode(nodeID)
	h.metrics.IncrementCounter(r.Context(), observability.MetricNodesDeleted, nil)
	common.RespondJSON(w, http.StatusOK, map[string]string{"id": nodeID, "status": "deleted"})
}

// ConnectRequest attempts an edge between two nodes
type ConnectRequest struct {
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
}

// ConnectResponse reports whether the gesture produced an edge
type ConnectResponse struct {
	Connected bool                  `json:"connected"`
	Edge      *canvas.PersistedEdge `json:"edge,omitempty"`
}

// Connect handles POST /projects/{projectID}/canvas/edges. A pair
// outside the allowed set is not an error: the gesture is ignored and
// the response says so.
func (h *CanvasHandler) Connect(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req ConnectRequest
	if err := common.ParseJSONBody(r, &req, 1<<20); err != nil {
		common.RespondError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondAppError(w, err)
		return
	}

	edge, created := session.Store.Connect(canvas.Connection{Source: req.Source, Target: req.Target})
	resp := ConnectResponse{Connected: created}
	if created {
		pe := services.SanitizeEdges([]canvas.Edge{edge})[0]
		resp.Edge = &pe
	}
	common.RespondJSON(w, http.StatusOK, resp)
}

// DeleteEdge handles DELETE /projects/{projectID}/canvas/edges/{edgeID}
func (h *CanvasHandler) DeleteEdge(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	edgeID := chi.URLParam(r, "edgeID")

	session.Store.DeleteEdge(edgeID)
	common.RespondJSON(w, http.StatusOK, map[string]string{"id": edgeID, "status": "deleted"})
}

// SetViewport handles PUT /projects/{projectID}/canvas/viewport
func (h *CanvasHandler) SetViewport(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req canvas.Viewport
	if err := common.ParseJSONBody(r, &req, 1<<20); err != nil {
		common.RespondError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body: "+err.Error())
		return
	}

	session.Store.SetViewport(req)
	session.Touch()
	common.RespondJSON(w, http.StatusOK, req)
}

// ResetCanvas handles POST /projects/{projectID}/canvas/reset
func (h *CanvasHandler) ResetCanvas(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	session.Store.ResetCanvas()
	common.RespondJSON(w, http.StatusOK, canvasResponse(session.ProjectID, session.Store.Snapshot()))
}

// CopyRequest selects nodes for the clipboard
type CopyRequest struct {
	NodeIDs []string `json:"nodeIds" validate:"required,min=1"`
}

// CopyNodes handles POST /projects/{projectID}/canvas/clipboard/copy
func (h *CanvasHandler) CopyNodes(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req CopyRequest
	if err := common.ParseJSONBody(r, &req, 1<<20); err != nil {
		common.RespondError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondAppError(w, err)
		return
	}

	count := session.Store.CopyNodes(req.NodeIDs, session.Clipboard)
	common.RespondJSON(w, http.StatusOK, map[string]int{"copied": count})
}

// PasteRequest places the clipboard contents at a target position
type PasteRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PasteNodes handles POST /projects/{projectID}/canvas/clipboard/paste
func (h *CanvasHandler) PasteNodes(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req PasteRequest
	if err := common.ParseJSONBody(r, &req, 1<<20); err != nil {
		common.RespondError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body: "+err.Error())
		return
	}

	pasted := session.Store.PasteNodes(session.Clipboard, canvas.Position{X: req.X, Y: req.Y})
	common.RespondJSON(w, http.StatusOK, services.SanitizeNodes(pasted))
}

// GetContext handles GET /projects/{projectID}/canvas/nodes/{nodeID}/context,
// returning the ordered context strings a chat node would receive.
func (h *CanvasHandler) GetContext(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	nodeID := chi.URLParam(r, "nodeID")

	texts := session.Store.ResolveContext(nodeID)
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{"contextTexts": texts})
}

// CloseSession handles DELETE /projects/{projectID}/canvas/session,
// flushing any pending save before the session goes away.
func (h *CanvasHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	projectID := session.ProjectID
	if err := h.manager.Close(r.Context(), projectID); err != nil {
		h.metrics.IncrementCounter(r.Context(), observability.MetricSaveFailures, nil)
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"projectId": projectID, "status": "closed"})
}
