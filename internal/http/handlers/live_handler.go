package handlers

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"invtrack/internal/broadcast"
	"invtrack/internal/domain"
	applog "invtrack/internal/log"
)

const pingInterval = 30 * time.Second

// LiveHandler streams equipment events to websocket clients.
type LiveHandler struct {
	Hub *broadcast.Hub
}

// Upgrade rejects plain HTTP requests to the websocket route.
func (h *LiveHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Stream handles GET /ws/equipment.
func (h *LiveHandler) Stream() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		events, cancel := h.Hub.Subscribe()
		defer cancel()

		user := ""
		if u, ok := conn.Locals("user").(*domain.User); ok && u != nil {
			user = u.ID
		}
		start := time.Now()
		applog.Logger().Info().Str("action", "ws.connect").Str("user_id", user).Send()
		defer func() {
			applog.Logger().Info().Str("action", "ws.disconnect").Str("user_id", user).
				Dur("took", time.Since(start)).Uint64("dropped", h.Hub.Dropped()).Send()
		}()

		// reader: only needed to notice the client going away
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ping := time.NewTicker(pingInterval)
		defer ping.Stop()
		for {
			select {
			case <-closed:
				return
			case ev, ok := <-events:
				if !ok {
					_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
					return
				}
				if err := conn.WriteJSON(ev); err != nil {
					return
				}
			case <-ping.C:
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	})
}
