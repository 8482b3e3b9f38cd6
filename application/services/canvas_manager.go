package services

import (
	"context"
	"sync"
	"time"

	"canvas-backend/application/ports"
	"canvas-backend/domain/canvas"
	"canvas-backend/domain/events"
	"canvas-backend/domain/project"
	pkgerrors "canvas-backend/pkg/errors"

	"go.uber.org/zap"
)

// CanvasSession is one open canvas: its store, project record, and the
// autosaver that persists it.
type CanvasSession struct {
	ProjectID string
	Project   *project.Project
	Store     *canvas.Store
	Clipboard *canvas.Clipboard
	saver     *Autosaver
}

// Flush forces any pending auto-save to run now.
func (cs *CanvasSession) Flush(ctx context.Context) error {
	return cs.saver.Flush(ctx)
}

// Save persists the current canvas state immediately.
func (cs *CanvasSession) Save(ctx context.Context) error {
	return cs.saver.Save(ctx)
}

// Touch marks the canvas dirty so the debounced auto-save picks it up.
// Used for mutations that bypass the store's change listener.
func (cs *CanvasSession) Touch() {
	cs.saver.Notify()
}

// CanvasManager owns the open canvas sessions. Opening a project loads
// and hydrates its store, wires the delete cascade and the debounced
// auto-save, and hands the session to callers. Closing flushes the
// pending save so the last edit is never lost.
type CanvasManager struct {
	mu       sync.Mutex
	sessions map[string]*CanvasSession

	svc       *CanvasService
	cleaner   canvas.ConversationCleaner
	publisher ports.EventPublisher
	quiet     time.Duration
	logger    *zap.Logger
}

// NewCanvasManager creates a canvas manager. cleaner and publisher may
// be nil when those collaborators are not configured.
func NewCanvasManager(
	svc *CanvasService,
	cleaner canvas.ConversationCleaner,
	publisher ports.EventPublisher,
	quiet time.Duration,
	logger *zap.Logger,
) *CanvasManager {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	return &CanvasManager{
		sessions:  make(map[string]*CanvasSession),
		svc:       svc,
		cleaner:   cleaner,
		publisher: publisher,
		quiet:     quiet,
		logger:    logger,
	}
}

// Open returns the session for a project, loading and hydrating it on
// first use. If two callers race, the load that finishes second is
// discarded in favor of the session already registered, so stale
// results never overwrite a live store.
func (m *CanvasManager) Open(ctx context.Context, projectID string) (*CanvasSession, error) {
	if projectID == "" {
		return nil, pkgerrors.NewValidationError("projectID cannot be empty")
	}

	m.mu.Lock()
	if session, ok := m.sessions[projectID]; ok {
		m.mu.Unlock()
		return session, nil
	}
	m.mu.Unlock()

	loaded, err := m.svc.Load(ctx, projectID)
	if err != nil {
		return nil, err
	}

	store := canvas.NewStore(m.logger.Named("store"))
	store.Hydrate(loaded.Snapshot)
	if m.cleaner != nil {
		store.SetConversationCleaner(m.cleaner)
	}
	if m.publisher != nil {
		store.SetOnNodeDeleted(func(d canvas.NodeDeleted) {
			publishCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			event := events.NewNodeDeleted(projectID, d.NodeID, d.Kind, d.ConversationID)
			if err := m.publisher.Publish(publishCtx, event); err != nil {
				m.logger.Warn("failed to publish node deleted event",
					zap.String("projectID", projectID),
					zap.String("nodeID", d.NodeID),
					zap.Error(err),
				)
			}
		})
	}

	saver := NewAutosaver(m.quiet, func(saveCtx context.Context) error {
		snap := store.Snapshot()
		return m.svc.Save(saveCtx, projectID, snap.Nodes, snap.Edges, snap.Viewport)
	}, m.logger.Named("autosave"))
	store.SetOnChange(saver.Notify)

	session := &CanvasSession{
		ProjectID: projectID,
		Project:   loaded.Project,
		Store:     store,
		Clipboard: canvas.NewClipboard(),
		saver:     saver,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[projectID]; ok {
		// Lost the race: keep the registered session, drop ours.
		return existing, nil
	}
	m.sessions[projectID] = session
	return session, nil
}

// Get returns an already-open session without loading.
func (m *CanvasManager) Get(projectID string) (*CanvasSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[projectID]
	return session, ok
}

// Close flushes and removes a session. A project that is not open is a
// no-op.
func (m *CanvasManager) Close(ctx context.Context, projectID string) error {
	m.mu.Lock()
	session, ok := m.sessions[projectID]
	delete(m.sessions, projectID)
	m.mu.Unlock()

	if !ok {
		return nil
	}
	return session.saver.Close(ctx)
}

// CloseAll flushes every open session. Used at shutdown.
func (m *CanvasManager) CloseAll(ctx context.Context) {
	m.mu.Lock()
	sessions := make([]*CanvasSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*CanvasSession)
	m.mu.Unlock()

	for _, s := range sessions {
		if err := s.saver.Close(ctx); err != nil {
			m.logger.Error("failed to flush canvas on shutdown",
				zap.String("projectID", s.ProjectID),
				zap.Error(err),
			)
		}
	}
}
