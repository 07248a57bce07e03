package websocket

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("presence circuit open")

const (
	defaultFailureThreshold = 3
	defaultCircuitTimeout   = 30 * time.Second
)

// PresenceGuard wraps a PresenceTracker with a circuit breaker so a redis
// outage does not stall every register and deregister on its timeout
type PresenceGuard struct {
	next PresenceTracker

	mu                sync.Mutex
	consecutiveErrors int
	errorCount        int
	lastErrorTime     time.Time
	circuitOpen       bool
	circuitResetTime  time.Time

	failureThreshold int
	circuitTimeout   time.Duration
	now              func() time.Time
}

func NewPresenceGuard(next PresenceTracker) *PresenceGuard {
	return &PresenceGuard{
		next:             next,
		failureThreshold: defaultFailureThreshold,
		circuitTimeout:   defaultCircuitTimeout,
		now:              time.Now,
	}
}

func (g *PresenceGuard) SetUserOnline(ctx context.Context, userID string) error {
	return g.call(func() error { return g.next.SetUserOnline(ctx, userID) })
}

func (g *PresenceGuard) SetUserOffline(ctx context.Context, userID string) error {
	return g.call(func() error { return g.next.SetUserOffline(ctx, userID) })
}

func (g *PresenceGuard) call(op func() error) error {
	if !g.allow() {
		return ErrCircuitOpen
	}

	err := op()

	g.mu.Lock()
	defer g.mu.Unlock()
	if err == nil {
		if g.consecutiveErrors > 0 {
			slog.Info("Presence store recovered", "afterErrors", g.consecutiveErrors)
		}
		g.consecutiveErrors = 0
		return nil
	}

	g.lastErrorTime = g.now()
	g.errorCount++
	g.consecutiveErrors++
	if g.consecutiveErrors >= g.failureThreshold && !g.circuitOpen {
		g.circuitOpen = true
		g.circuitResetTime = g.now().Add(g.circuitTimeout)
		slog.Warn("Circuit breaker opened for presence updates", "until", g.circuitResetTime, "error", err)
	}
	return err
}

// allow reports whether a call may go through. Once the timeout passed the
// circuit closes and the next call probes the store again.
func (g *PresenceGuard) allow() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.circuitOpen {
		return true
	}
	if g.now().Before(g.circuitResetTime) {
		return false
	}

	g.circuitOpen = false
	g.consecutiveErrors = g.failureThreshold - 1
	slog.Info("Circuit breaker closed for presence updates")
	return true
}

// Stats reports the breaker state and error counts
func (g *PresenceGuard) Stats() map[string]interface{} {
	g.mu.Lock()
	defer g.mu.Unlock()

	return map[string]interface{}{
		"errorCount":        g.errorCount,
		"consecutiveErrors": g.consecutiveErrors,
		"lastErrorTime":     g.lastErrorTime,
		"circuitOpen":       g.circuitOpen,
		"circuitResetTime":  g.circuitResetTime,
	}
}
