package websocket

import (
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/stridehq/stride/internal/auth"
)

// HandleWebSocket returns an HTTP handler that upgrades connections to
// WebSocket and runs them as Hub clients bound to the authenticated user.
func HandleWebSocket(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ac, ok := auth.FromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := ws.Accept(w, r, nil)
		if err != nil {
			hub.logger.Error("websocket accept failed", "error", err)
			return
		}

		client := NewClient(hub, conn, ac.UserID)
		client.Run(r.Context())
	}
}
