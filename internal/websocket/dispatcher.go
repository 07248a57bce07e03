package websocket

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"task-service/internal/models"
)

// Scope selects which connections receive an event
type Scope string

const (
	// ScopeOwner delivers only to connections of the task owner
	ScopeOwner Scope = "owner"
	// ScopeAll delivers to every connection
	ScopeAll Scope = "all"
)

func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(s))) {
	case "", ScopeOwner:
		return ScopeOwner, nil
	case ScopeAll:
		return ScopeAll, nil
	default:
		return "", fmt.Errorf("unknown broadcast scope %q", s)
	}
}

// BroadcastResult counts the outcome of one broadcast
type BroadcastResult struct {
	Delivered int `json:"delivered"`
	Failed    int `json:"failed"`
}

// Dispatcher fans task events out to the connections in the hub
type Dispatcher struct {
	hub     *Hub
	scope   Scope
	metrics *BroadcastMetrics
}

func NewDispatcher(hub *Hub, scope Scope, metrics *BroadcastMetrics) *Dispatcher {
	if scope == "" {
		scope = ScopeOwner
	}
	return &Dispatcher{
		hub:     hub,
		scope:   scope,
		metrics: metrics,
	}
}

func (d *Dispatcher) Scope() Scope {
	return d.scope
}

// Broadcast sends event to every connection in scope. A connection that
// cannot take the frame is deregistered and closed; the others still get it.
func (d *Dispatcher) Broadcast(ctx context.Context, event models.TaskEvent) BroadcastResult {
	var result BroadcastResult
	start := time.Now()

	payload, err := EncodeEvent(event)
	if err != nil {
		slog.Error("Failed to encode task event", "kind", event.Kind, "error", err)
		return result
	}

	for _, conn := range d.hub.Snapshot() {
		if d.scope == ScopeOwner && conn.UserID() != event.OwnerID {
			continue
		}

		if err := d.deliver(conn, payload); err != nil {
			result.Failed++
			slog.Warn("Dropping client after failed send", "clientID", conn.ID(), "userID", conn.UserID(), "error", err)
			d.hub.Deregister(conn.ID())
			conn.Close()
			continue
		}
		result.Delivered++
	}

	if d.metrics != nil {
		d.metrics.Record(BroadcastMetric{
			Kind:        string(event.Kind),
			Duration:    time.Since(start),
			Delivered:   result.Delivered,
			Failed:      result.Failed,
			MessageSize: len(payload),
		})
	}

	slog.Debug("Task event broadcast", "kind", event.Kind, "userID", event.OwnerID,
		"delivered", result.Delivered, "failed", result.Failed)
	return result
}

func (d *Dispatcher) deliver(conn Conn, payload []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("send panic: %v", r)
		}
	}()
	return conn.Send(payload)
}

// Publish lets the dispatcher act as a task event sink
func (d *Dispatcher) Publish(ctx context.Context, event models.TaskEvent) {
	d.Broadcast(ctx, event)
}
