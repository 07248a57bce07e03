package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"gorm.io/gorm"

	"task-service/internal/models"
	"task-service/internal/services"
)

var errTransportClosed = errors.New("transport closed")

// fakeConn is a registry entry that never touches a network
type fakeConn struct {
	id     string
	userID string
	fail   bool

	mu     sync.Mutex
	frames [][]byte
	closed atomic.Bool
}

func newFakeConn(id, userID string) *fakeConn {
	return &fakeConn{id: id, userID: userID}
}

func (c *fakeConn) ID() string     { return c.id }
func (c *fakeConn) UserID() string { return c.userID }
func (c *fakeConn) IsClosed() bool { return c.closed.Load() }
func (c *fakeConn) Close()         { c.closed.Store(true) }

func (c *fakeConn) Send(data []byte) error {
	if c.fail || c.IsClosed() {
		return ErrConnectionClosed
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, data)
	return nil
}

func (c *fakeConn) received() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.frames...)
}

// fakeTransport stands in for a gorilla connection
type fakeTransport struct {
	in     chan []byte
	out    chan []byte
	closed chan struct{}
	once   sync.Once

	mu         sync.Mutex
	closeFrame []byte
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		in:     make(chan []byte, 16),
		out:    make(chan []byte, 64),
		closed: make(chan struct{}),
	}
}

func (t *fakeTransport) ReadMessage() (int, []byte, error) {
	select {
	case m := <-t.in:
		return websocket.TextMessage, m, nil
	case <-t.closed:
		return 0, nil, errTransportClosed
	}
}

func (t *fakeTransport) WriteMessage(messageType int, data []byte) error {
	select {
	case <-t.closed:
		return errTransportClosed
	default:
	}

	switch messageType {
	case websocket.TextMessage:
		t.out <- data
	case websocket.CloseMessage:
		t.mu.Lock()
		t.closeFrame = data
		t.mu.Unlock()
	}
	return nil
}

func (t *fakeTransport) SetReadDeadline(time.Time) error  { return nil }
func (t *fakeTransport) SetWriteDeadline(time.Time) error { return nil }

func (t *fakeTransport) Close() error {
	t.once.Do(func() { close(t.closed) })
	return nil
}

func (t *fakeTransport) isClosed() bool {
	select {
	case <-t.closed:
		return true
	default:
		return false
	}
}

func (t *fakeTransport) push(tb testing.TB, v interface{}) {
	tb.Helper()
	switch m := v.(type) {
	case string:
		t.in <- []byte(m)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			tb.Fatalf("marshal: %v", err)
		}
		t.in <- data
	}
}

// next waits for the next frame written by the client
func (t *fakeTransport) next(tb testing.TB) map[string]interface{} {
	tb.Helper()
	select {
	case data := <-t.out:
		var m map[string]interface{}
		if err := json.Unmarshal(data, &m); err != nil {
			tb.Fatalf("client wrote invalid JSON %q: %v", data, err)
		}
		return m
	case <-time.After(2 * time.Second):
		tb.Fatal("timed out waiting for a frame")
		return nil
	}
}

// quiet asserts nothing is written for a short while
func (t *fakeTransport) quiet(tb testing.TB) {
	tb.Helper()
	select {
	case data := <-t.out:
		tb.Fatalf("unexpected frame %s", data)
	case <-time.After(100 * time.Millisecond):
	}
}

type fakeAuth struct {
	tokens map[string]*models.Identity
}

func (a *fakeAuth) Resolve(ctx context.Context, token string) (*models.Identity, error) {
	if id, ok := a.tokens[token]; ok {
		return id, nil
	}
	return nil, services.ErrInvalidCredential
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{tokens: map[string]*models.Identity{
		"alice-token": {UserID: "alice", Name: "Alice", Email: "alice@example.com"},
		"bob-token":   {UserID: "bob", Name: "Bob", Email: "bob@example.com"},
	}}
}

// memoryStore is an in-process services.TaskStore
type memoryStore struct {
	mu    sync.Mutex
	tasks map[string]models.Task
	seq   int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{tasks: make(map[string]models.Task)}
}

func (s *memoryStore) List(ctx context.Context, ownerID string) ([]models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Task{}
	for _, t := range s.tasks {
		if t.OwnerID == ownerID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *memoryStore) Create(ctx context.Context, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	task.CreatedAt = time.Unix(int64(s.seq), 0)
	s.tasks[task.ID] = *task
	return nil
}

func (s *memoryStore) Update(ctx context.Context, id, ownerID string, fields map[string]interface{}) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || t.OwnerID != ownerID {
		return nil, gorm.ErrRecordNotFound
	}
	if v, ok := fields["title"].(string); ok {
		t.Title = v
	}
	if v, ok := fields["description"].(string); ok {
		t.Description = v
	}
	if v, ok := fields["completed"].(bool); ok {
		t.Completed = v
	}
	s.tasks[id] = t
	return &t, nil
}

func (s *memoryStore) Delete(ctx context.Context, id, ownerID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || t.OwnerID != ownerID {
		return false, nil
	}
	delete(s.tasks, id)
	return true, nil
}

func (s *memoryStore) get(id string) (models.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	return t, ok
}

type taggerFunc func(ctx context.Context, title, description string) string

func (f taggerFunc) Classify(ctx context.Context, title, description string) string {
	return f(ctx, title, description)
}

// testServer wires a hub, dispatcher and task service the way the server does
type testServer struct {
	hub        *Hub
	dispatcher *Dispatcher
	store      *memoryStore
	tasks      *services.TaskService
	auth       *fakeAuth
}

func newTestServer(scope Scope, tagger services.Tagger) *testServer {
	hub := NewHub(nil)
	dispatcher := NewDispatcher(hub, scope, NewBroadcastMetrics(10))
	store := newMemoryStore()
	if tagger == nil {
		tagger = taggerFunc(func(context.Context, string, string) string { return "Work" })
	}
	return &testServer{
		hub:        hub,
		dispatcher: dispatcher,
		store:      store,
		tasks:      services.NewTaskService(store, tagger, dispatcher),
		auth:       newFakeAuth(),
	}
}

// connect starts a session over a fake transport and returns it with a
// channel closed when the session ends
func (s *testServer) connect(handshakeToken string, authTimeout time.Duration) (*fakeTransport, *Session, <-chan struct{}) {
	tr := newFakeTransport()
	session, done := s.start(NewClient(tr, DefaultSendBufferSize), handshakeToken, authTimeout)
	return tr, session, done
}

func (s *testServer) start(client *Client, handshakeToken string, authTimeout time.Duration) (*Session, <-chan struct{}) {
	session := NewSession(client, s.hub, s.auth, s.tasks, SessionOptions{
		HandshakeToken: handshakeToken,
		AuthTimeout:    authTimeout,
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		session.Run()
	}()
	return session, done
}

// stalledTransport accepts reads but never completes a write until closed
type stalledTransport struct {
	*fakeTransport
}

func (t stalledTransport) WriteMessage(messageType int, data []byte) error {
	<-t.closed
	return errTransportClosed
}

func waitDone(tb testing.TB, done <-chan struct{}) {
	tb.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		tb.Fatal("session did not finish")
	}
}

func registered(hub *Hub, id string) bool {
	for _, c := range hub.Snapshot() {
		if c.ID() == id {
			return true
		}
	}
	return false
}
