package websocket

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type flakyPresence struct {
	err   error
	calls int
}

func (f *flakyPresence) SetUserOnline(ctx context.Context, userID string) error {
	f.calls++
	return f.err
}

func (f *flakyPresence) SetUserOffline(ctx context.Context, userID string) error {
	f.calls++
	return f.err
}

func TestPresenceGuardOpensAfterConsecutiveFailures(t *testing.T) {
	store := &flakyPresence{err: errors.New("connection refused")}
	guard := NewPresenceGuard(store)
	now := time.Unix(1000, 0)
	guard.now = func() time.Time { return now }

	for i := 0; i < defaultFailureThreshold; i++ {
		assert.Error(t, guard.SetUserOnline(context.Background(), "alice"))
	}
	assert.Equal(t, true, guard.Stats()["circuitOpen"])

	assert.ErrorIs(t, guard.SetUserOffline(context.Background(), "alice"), ErrCircuitOpen)
	assert.Equal(t, defaultFailureThreshold, store.calls)

	// After the timeout one probe goes through; success closes the circuit
	now = now.Add(defaultCircuitTimeout + time.Second)
	store.err = nil
	assert.NoError(t, guard.SetUserOnline(context.Background(), "alice"))
	assert.Equal(t, false, guard.Stats()["circuitOpen"])
	assert.Equal(t, 0, guard.Stats()["consecutiveErrors"])
}

func TestPresenceGuardReopensWhenProbeFails(t *testing.T) {
	store := &flakyPresence{err: errors.New("connection refused")}
	guard := NewPresenceGuard(store)
	now := time.Unix(1000, 0)
	guard.now = func() time.Time { return now }

	for i := 0; i < defaultFailureThreshold; i++ {
		_ = guard.SetUserOnline(context.Background(), "alice")
	}

	now = now.Add(defaultCircuitTimeout + time.Second)
	assert.Error(t, guard.SetUserOnline(context.Background(), "alice"))
	assert.Equal(t, true, guard.Stats()["circuitOpen"])
	assert.ErrorIs(t, guard.SetUserOnline(context.Background(), "alice"), ErrCircuitOpen)
}

func TestHubWithGuardedPresence(t *testing.T) {
	store := &flakyPresence{err: errors.New("connection refused")}
	hub := NewHub(NewPresenceGuard(store))

	for i := 0; i < 10; i++ {
		c := newFakeConn(string(rune('a'+i)), string(rune('a'+i)))
		assert.NoError(t, hub.Register(c))
	}
	assert.Equal(t, 10, hub.Count())
	assert.Equal(t, defaultFailureThreshold, store.calls)
}
