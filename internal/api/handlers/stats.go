package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"task-service/internal/api/middleware"
	"task-service/internal/websocket"
)

// PresenceStats exposes the state of the presence circuit breaker
type PresenceStats interface {
	Stats() map[string]interface{}
}

type StatsHandler struct {
	hub        *websocket.Hub
	dispatcher *websocket.Dispatcher
	metrics    *websocket.BroadcastMetrics
	presence   PresenceStats
}

// NewStatsHandler builds the handler. presence may be nil when redis is disabled.
func NewStatsHandler(hub *websocket.Hub, dispatcher *websocket.Dispatcher, metrics *websocket.BroadcastMetrics, presence PresenceStats) *StatsHandler {
	return &StatsHandler{hub: hub, dispatcher: dispatcher, metrics: metrics, presence: presence}
}

// GetStats godoc
// @Summary Real-time layer statistics
// @Description Registered connections, broadcast metrics and presence store health
// @Tags websocket
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /ws/stats [get]
func (h *StatsHandler) GetStats(c *gin.Context) {
	stats := gin.H{
		"connections":     h.hub.Count(),
		"userConnections": h.hub.CountForUser(c.GetString(middleware.ContextUserID)),
		"scope":           h.dispatcher.Scope(),
		"broadcasts":      h.metrics.Aggregated(),
		"recent":          h.metrics.History(),
	}
	if h.presence != nil {
		stats["presence"] = h.presence.Stats()
	}
	c.JSON(http.StatusOK, stats)
}
