package websocket

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const presenceTimeout = 2 * time.Second

// Conn is a registered connection as seen by the hub and the dispatcher
type Conn interface {
	ID() string
	UserID() string
	Send(data []byte) error
	Close()
	IsClosed() bool
}

// PresenceTracker is told when a user's first connection appears and when
// the last one goes away
type PresenceTracker interface {
	SetUserOnline(ctx context.Context, userID string) error
	SetUserOffline(ctx context.Context, userID string) error
}

// Hub is the registry of live connections. Every operation holds the lock
// only for the map update; presence calls run after it is released.
type Hub struct {
	// Registered connections by id
	clients map[string]Conn

	// Connection count per user
	userCounts map[string]int

	presence PresenceTracker

	// Serializes presence writes per user, guarded by mu
	presenceLocks map[string]*presenceLock

	mu sync.RWMutex
}

type presenceLock struct {
	mu   sync.Mutex
	refs int
}

func NewHub(presence PresenceTracker) *Hub {
	return &Hub{
		clients:       make(map[string]Conn),
		userCounts:    make(map[string]int),
		presence:      presence,
		presenceLocks: make(map[string]*presenceLock),
	}
}

// Register adds conn. Duplicate ids and closed connections are refused.
func (h *Hub) Register(conn Conn) error {
	if conn.IsClosed() {
		return ErrConnectionClosed
	}

	userID := conn.UserID()

	h.mu.Lock()
	if _, exists := h.clients[conn.ID()]; exists {
		h.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateConnection, conn.ID())
	}
	h.clients[conn.ID()] = conn
	h.userCounts[userID]++
	first := h.userCounts[userID] == 1
	h.mu.Unlock()

	slog.Info("Client registered", "clientID", conn.ID(), "userID", userID)

	if first && userID != "" {
		h.syncPresence(userID)
	}
	return nil
}

// Deregister removes the connection with the given id. Unknown ids are ignored.
func (h *Hub) Deregister(id string) {
	h.mu.Lock()
	conn, exists := h.clients[id]
	if !exists {
		h.mu.Unlock()
		return
	}
	delete(h.clients, id)

	userID := conn.UserID()
	h.userCounts[userID]--
	last := h.userCounts[userID] <= 0
	if last {
		delete(h.userCounts, userID)
	}
	h.mu.Unlock()

	slog.Info("Client unregistered", "clientID", id, "userID", userID)

	if last && userID != "" {
		h.syncPresence(userID)
	}
}

// Snapshot returns the connections registered at the time of the call
func (h *Hub) Snapshot() []Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	conns := make([]Conn, 0, len(h.clients))
	for _, c := range h.clients {
		conns = append(conns, c)
	}
	return conns
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) CountForUser(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.userCounts[userID]
}

// Shutdown closes and removes every registered connection
func (h *Hub) Shutdown() {
	for _, c := range h.Snapshot() {
		c.Close()
		h.Deregister(c.ID())
	}
	slog.Info("WebSocket hub shut down")
}

// syncPresence writes the state implied by the user's current connection
// count. Writes for one user never overlap, so the last one to land always
// matches the registry.
func (h *Hub) syncPresence(userID string) {
	if h.presence == nil {
		return
	}

	h.mu.Lock()
	lock, ok := h.presenceLocks[userID]
	if !ok {
		lock = &presenceLock{}
		h.presenceLocks[userID] = lock
	}
	lock.refs++
	h.mu.Unlock()

	lock.mu.Lock()
	h.writePresence(userID, h.CountForUser(userID) > 0)
	lock.mu.Unlock()

	h.mu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(h.presenceLocks, userID)
	}
	h.mu.Unlock()
}

func (h *Hub) writePresence(userID string, online bool) {
	ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
	defer cancel()

	var err error
	if online {
		err = h.presence.SetUserOnline(ctx, userID)
	} else {
		err = h.presence.SetUserOffline(ctx, userID)
	}
	if err != nil {
		slog.Error("Failed to update presence", "userID", userID, "online", online, "error", err)
	}
}
