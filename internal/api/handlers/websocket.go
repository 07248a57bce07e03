package handlers

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"

	"task-service/internal/api/middleware"
	"task-service/internal/websocket"
)

type WSHandler struct {
	hub            *websocket.Hub
	auth           websocket.Authenticator
	tasks          websocket.TaskManager
	upgrader       *gorilla.Upgrader
	authTimeout    time.Duration
	sendBufferSize int
}

type WSOptions struct {
	AllowedOrigins []string
	AuthTimeout    time.Duration
	SendBufferSize int
}

func NewWSHandler(hub *websocket.Hub, auth websocket.Authenticator, tasks websocket.TaskManager, opts WSOptions) *WSHandler {
	return &WSHandler{
		hub:            hub,
		auth:           auth,
		tasks:          tasks,
		upgrader:       websocket.NewUpgrader(opts.AllowedOrigins),
		authTimeout:    opts.AuthTimeout,
		sendBufferSize: opts.SendBufferSize,
	}
}

// HandleWebSocket godoc
// @Summary WebSocket connection
// @Description Establish a WebSocket connection for live task updates. The session token may be
// @Description passed as ?token=, as a Bearer header, or in the first message.
// @Tags websocket
// @Param token query string false "Session token"
// @Success 101 "Switching Protocols - WebSocket connection established"
// @Router /ws [get]
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	token := middleware.ExtractToken(c.Request)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already answered the request
		slog.Warn("Failed to upgrade WebSocket connection", "remote", c.ClientIP(), "error", err)
		return
	}

	client := websocket.NewClient(conn, h.sendBufferSize)
	slog.Info("New WebSocket connection established", "clientID", client.ID(), "remote", c.ClientIP())

	session := websocket.NewSession(client, h.hub, h.auth, h.tasks, websocket.SessionOptions{
		HandshakeToken: token,
		AuthTimeout:    h.authTimeout,
	})
	go session.Run()
}
