package websocket

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024

	// DefaultSendBufferSize bounds the outbound queue of one connection
	DefaultSendBufferSize = 256

	inboundBufferSize = 16
)

// Transport is the duplex channel under a Client. *websocket.Conn satisfies it.
type Transport interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// optional keepalive controls offered by *websocket.Conn
type keepaliveTransport interface {
	SetReadLimit(limit int64)
	SetPongHandler(h func(appData string) error)
}

// Client owns one transport. The read pump feeds Inbound in arrival order;
// the write pump is the only writer to the transport.
type Client struct {
	id      string
	conn    Transport
	send    chan []byte
	inbound chan []byte

	userMu sync.RWMutex
	userID string

	// Connection state management
	ctx          context.Context
	cancel       context.CancelFunc
	closed       int32
	closeOnce    sync.Once
	drain        chan struct{}
	drainOnce    sync.Once
	pendingClose []byte

	// Goroutine coordination
	wg sync.WaitGroup
}

func NewClient(conn Transport, sendBufferSize int) *Client {
	if sendBufferSize <= 0 {
		sendBufferSize = DefaultSendBufferSize
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		id:      uuid.New().String(),
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
		inbound: make(chan []byte, inboundBufferSize),
		ctx:     ctx,
		cancel:  cancel,
		drain:   make(chan struct{}),
	}
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) UserID() string {
	c.userMu.RLock()
	defer c.userMu.RUnlock()
	return c.userID
}

func (c *Client) bind(userID string) {
	c.userMu.Lock()
	defer c.userMu.Unlock()
	c.userID = userID
}

// Context is cancelled when the client closes
func (c *Client) Context() context.Context {
	return c.ctx
}

// Inbound yields each received frame. It is closed when the read pump exits.
func (c *Client) Inbound() <-chan []byte {
	return c.inbound
}

func (c *Client) IsClosed() bool {
	return atomic.LoadInt32(&c.closed) == 1
}

// Start launches the read and write pumps
func (c *Client) Start() {
	c.wg.Add(2)
	go c.writePump()
	go c.readPump()
}

// Send queues one frame. It fails when the client is closed or its queue is full.
func (c *Client) Send(data []byte) error {
	if c.IsClosed() {
		return ErrConnectionClosed
	}

	select {
	case c.send <- data:
		return nil
	default:
		slog.Warn("Send buffer full", "clientID", c.id, "userID", c.UserID())
		return ErrSendBufferFull
	}
}

// Close cancels the client context and releases the transport
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		atomic.StoreInt32(&c.closed, 1)
		c.cancel()
		if err := c.conn.Close(); err != nil {
			slog.Debug("Error closing connection", "clientID", c.id, "userID", c.UserID(), "error", err)
		}
		slog.Debug("Client closed", "clientID", c.id, "userID", c.UserID())
	})
}

// CloseAfterFlush writes every frame already queued, sends a close frame
// with reason and then closes. It returns once the client is closed or the
// write deadline has passed.
func (c *Client) CloseAfterFlush(code int, reason string) {
	c.drainOnce.Do(func() {
		c.pendingClose = websocket.FormatCloseMessage(code, reason)
		close(c.drain)
	})

	select {
	case <-c.ctx.Done():
	case <-time.After(writeWait):
		c.Close()
	}
}

// Wait blocks until both pumps have exited
func (c *Client) Wait() {
	c.wg.Wait()
}

func (c *Client) readPump() {
	defer func() {
		c.wg.Done()
		close(c.inbound)
		c.Close()
	}()

	if kt, ok := c.conn.(keepaliveTransport); ok {
		kt.SetReadLimit(maxMessageSize)
		kt.SetPongHandler(func(string) error {
			return c.conn.SetReadDeadline(time.Now().Add(pongWait))
		})
	}
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) && !c.IsClosed() {
				slog.Error("WebSocket error", "clientID", c.id, "userID", c.UserID(), "error", err)
			} else {
				slog.Debug("WebSocket connection closed", "clientID", c.id, "userID", c.UserID(), "error", err)
			}
			return
		}

		select {
		case c.inbound <- message:
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.wg.Done()
		c.Close()
	}()

	for {
		select {
		case message := <-c.send:
			if err := c.write(websocket.TextMessage, message); err != nil {
				slog.Debug("Error writing message", "clientID", c.id, "userID", c.UserID(), "error", err)
				return
			}

		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				slog.Debug("Error sending ping", "clientID", c.id, "userID", c.UserID(), "error", err)
				return
			}

		case <-c.drain:
			c.flush()
			_ = c.write(websocket.CloseMessage, c.pendingClose)
			return

		case <-c.ctx.Done():
			return
		}
	}
}

// flush writes whatever is queued without waiting for more
func (c *Client) flush() {
	for {
		select {
		case message := <-c.send:
			if err := c.write(websocket.TextMessage, message); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *Client) write(messageType int, data []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}
