package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"canvas-backend/domain/canvas"
	"canvas-backend/domain/events"
	"canvas-backend/domain/project"
	pkgerrors "canvas-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeProjectRepo struct {
	mu       sync.Mutex
	projects map[string]*project.Project
}

func newFakeProjectRepo() *fakeProjectRepo {
	return &fakeProjectRepo{projects: make(map[string]*project.Project)}
}

func (r *fakeProjectRepo) Create(ctx context.Context, p *project.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.projects[p.ID] = p
	return nil
}

func (r *fakeProjectRepo) GetByID(ctx context.Context, projectID string) (*project.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[projectID]
	if !ok {
		return nil, assertNotFound(projectID)
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProjectRepo) ListByUser(ctx context.Context, userID string) ([]*project.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*project.Project
	for _, p := range r.projects {
		if p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeProjectRepo) UpdateViewport(ctx context.Context, projectID string, v canvas.Viewport, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[projectID]
	if !ok {
		return assertNotFound(projectID)
	}
	p.Viewport = v
	p.UpdatedAt = updatedAt
	return nil
}

func (r *fakeProjectRepo) TouchLastOpened(ctx context.Context, projectID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.projects[projectID]; ok {
		p.LastOpenedAt = at
	}
	return nil
}

func (r *fakeProjectRepo) Delete(ctx context.Context, projectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.projects, projectID)
	return nil
}

type fakeSnapshotRepo struct {
	mu        sync.Mutex
	snapshots map[string]*canvas.PersistedSnapshot
	puts      int
}

func newFakeSnapshotRepo() *fakeSnapshotRepo {
	return &fakeSnapshotRepo{snapshots: make(map[string]*canvas.PersistedSnapshot)}
}

func (r *fakeSnapshotRepo) Put(ctx context.Context, snap *canvas.PersistedSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots[snap.ProjectID] = snap
	r.puts++
	return nil
}

func (r *fakeSnapshotRepo) Get(ctx context.Context, projectID string) (*canvas.PersistedSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshots[projectID], nil
}

func (r *fakeSnapshotRepo) Delete(ctx context.Context, projectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.snapshots, projectID)
	return nil
}

func (r *fakeSnapshotRepo) putCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.puts
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.DomainEvent
}

func (p *fakePublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) byType(eventType string) []events.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.DomainEvent
	for _, e := range p.events {
		if e.GetEventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

func assertNotFound(projectID string) error {
	return pkgerrors.NewNotFoundError("project " + projectID)
}

type managerFixture struct {
	projects  *fakeProjectRepo
	snapshots *fakeSnapshotRepo
	publisher *fakePublisher
	manager   *CanvasManager
	projectID string
}

func newManagerFixture(t *testing.T, quiet time.Duration) *managerFixture {
	t.Helper()
	projects := newFakeProjectRepo()
	snapshots := newFakeSnapshotRepo()
	publisher := &fakePublisher{}

	p, err := project.New("user-1", "Test project", "")
	require.NoError(t, err)
	require.NoError(t, projects.Create(context.Background(), p))

	svc := NewCanvasService(projects, snapshots, publisher, nil, zap.NewNop())
	manager := NewCanvasManager(svc, nil, publisher, quiet, zap.NewNop())

	return &managerFixture{
		projects:  projects,
		snapshots: snapshots,
		publisher: publisher,
		manager:   manager,
		projectID: p.ID,
	}
}

func TestManagerOpenHydratesAndRegistersSession(t *testing.T) {
	f := newManagerFixture(t, time.Hour)
	require.NoError(t, f.snapshots.Put(context.Background(), &canvas.PersistedSnapshot{
		ProjectID: f.projectID,
		Nodes: []canvas.PersistedNode{
			{ID: "chat-node-2", Type: "chat", Data: canvas.PersistedNodeData{NodeID: "chat-node-2"}},
		},
		Edges:   []canvas.PersistedEdge{},
		Version: canvas.SnapshotVersion,
	}))

	session, err := f.manager.Open(context.Background(), f.projectID)
	require.NoError(t, err)
	assert.Len(t, session.Store.Nodes(), 1)
	assert.Equal(t, 2, session.Store.Counter(canvas.KindChat))
	assert.NotNil(t, session.Clipboard)

	again, err := f.manager.Open(context.Background(), f.projectID)
	require.NoError(t, err)
	assert.Same(t, session, again)
}

func TestManagerOpenWithoutSnapshotYieldsEmptyCanvas(t *testing.T) {
	f := newManagerFixture(t, time.Hour)

	session, err := f.manager.Open(context.Background(), f.projectID)
	require.NoError(t, err)
	assert.Empty(t, session.Store.Nodes())
	assert.Equal(t, canvas.DefaultViewport(), session.Store.Viewport())
}

func TestManagerOpenValidatesProjectID(t *testing.T) {
	f := newManagerFixture(t, time.Hour)
	_, err := f.manager.Open(context.Background(), "")
	assert.Error(t, err)
}

func TestManagerCloseFlushesPendingSave(t *testing.T) {
	f := newManagerFixture(t, time.Hour)

	session, err := f.manager.Open(context.Background(), f.projectID)
	require.NoError(t, err)

	_, err = session.Store.AddNode(canvas.KindChat, canvas.Position{X: 1}, f.projectID)
	require.NoError(t, err)
	assert.Zero(t, f.snapshots.putCount())

	require.NoError(t, f.manager.Close(context.Background(), f.projectID))
	assert.Equal(t, 1, f.snapshots.putCount())

	snap, err := f.snapshots.Get(context.Background(), f.projectID)
	require.NoError(t, err)
	require.NotNil(t, snap)
	require.Len(t, snap.Nodes, 1)
	assert.Equal(t, "chat-node-1", snap.Nodes[0].ID)

	_, open := f.manager.Get(f.projectID)
	assert.False(t, open)
}

func TestManagerCloseWithoutChangesSkipsSave(t *testing.T) {
	f := newManagerFixture(t, time.Hour)

	_, err := f.manager.Open(context.Background(), f.projectID)
	require.NoError(t, err)
	require.NoError(t, f.manager.Close(context.Background(), f.projectID))

	assert.Zero(t, f.snapshots.putCount())
	assert.NoError(t, f.manager.Close(context.Background(), f.projectID))
}

func TestManagerDebouncedAutosave(t *testing.T) {
	f := newManagerFixture(t, 20*time.Millisecond)

	session, err := f.manager.Open(context.Background(), f.projectID)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err = session.Store.AddNode(canvas.KindContext, canvas.Position{}, f.projectID)
		require.NoError(t, err)
	}

	assert.Eventually(t, func() bool { return f.snapshots.putCount() == 1 },
		time.Second, 5*time.Millisecond)

	snap, _ := f.snapshots.Get(context.Background(), f.projectID)
	require.NotNil(t, snap)
	assert.Len(t, snap.Nodes, 5)
}

func TestManagerPublishesNodeDeletedEvents(t *testing.T) {
	f := newManagerFixture(t, time.Hour)

	session, err := f.manager.Open(context.Background(), f.projectID)
	require.NoError(t, err)

	n, err := session.Store.AddNode(canvas.KindChat, canvas.Position{}, f.projectID)
	require.NoError(t, err)
	session.Store.DeleteNode(n.ID)

	deleted := f.publisher.byType("canvas.node_deleted")
	require.Len(t, deleted, 1)
	ev := deleted[0].(events.NodeDeleted)
	assert.Equal(t, n.ID, ev.NodeID)
	assert.Equal(t, f.projectID, ev.ProjectID)
}

func TestManagerCloseAllFlushesEverySession(t *testing.T) {
	f := newManagerFixture(t, time.Hour)

	p2, err := project.New("user-1", "Second", "")
	require.NoError(t, err)
	require.NoError(t, f.projects.Create(context.Background(), p2))

	s1, err := f.manager.Open(context.Background(), f.projectID)
	require.NoError(t, err)
	s2, err := f.manager.Open(context.Background(), p2.ID)
	require.NoError(t, err)

	_, err = s1.Store.AddNode(canvas.KindChat, canvas.Position{}, f.projectID)
	require.NoError(t, err)
	_, err = s2.Store.AddNode(canvas.KindTextBlock, canvas.Position{}, p2.ID)
	require.NoError(t, err)

	f.manager.CloseAll(context.Background())

	assert.Equal(t, 2, f.snapshots.putCount())
	_, open := f.manager.Get(f.projectID)
	assert.False(t, open)
}
