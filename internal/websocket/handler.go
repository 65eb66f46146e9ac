package websocket

import (
	"encoding/json"
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/mauzenfan/mauzenfan/internal/metrics"
)

// Authenticator resolves the user behind an upgrade request, or 0.
type Authenticator func(r *http.Request) int64

type greeting struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// HandleWebSocket returns an HTTP handler that authenticates the caller,
// upgrades the connection and subscribes it to the caller's own group.
// Clients never choose their group.
func HandleWebSocket(registry Registry, authenticate Authenticator, groupFor func(userID int64) string, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := authenticate(r)
		if userID == 0 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			InsecureSkipVerify: true, // mobile apps connect without an Origin we could pin
		})
		if err != nil {
			logger.Warn("websocket accept", "error", err)
			return
		}
		defer conn.CloseNow()

		group := groupFor(userID)
		client := NewClient(registry, conn, group)
		logger.Info("websocket connected", "client", client.ID(), "user_id", userID, "group", group)

		hello, _ := json.Marshal(greeting{
			Type:    "connection_established",
			Message: "Connected to notifications",
		})
		client.Send(hello)

		metrics.ConnectedClients.Inc()
		client.Run(r.Context())
		metrics.ConnectedClients.Dec()

		logger.Info("websocket disconnected", "client", client.ID(), "user_id", userID)
	}
}
