package websocket

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

// NewUpgrader accepts handshakes from the given origins. "*" allows any
// origin; requests without an Origin header (non-browser clients) always pass.
func NewUpgrader(allowedOrigins []string) *websocket.Upgrader {
	allowAll := false
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[strings.TrimRight(o, "/")] = true
	}

	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowAll || allowed[strings.TrimRight(origin, "/")]
		},
	}
}
