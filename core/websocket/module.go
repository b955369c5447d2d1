package websocket

import (
	"backoffice/core/dataset"
	"backoffice/core/emitter"
	"backoffice/core/logger"
	"backoffice/core/router"
)

// InitWebSocketModule starts a hub, exposes it at GET /ws and forwards
// dataset change events to connected clients
func InitWebSocketModule(group *router.RouterGroup, em *emitter.Emitter, log logger.Logger) *Hub {
	hub := NewHub(log)
	go hub.Run()

	em.On(dataset.EventReplaced, func(data any) {
		if err := hub.BroadcastJSON(data); err != nil {
			hub.logger.Error("Failed to broadcast dataset change", logger.Err(err))
		}
	})

	group.GET("/ws", func(c *router.Context) error {
		if err := hub.ServeWS(c.Writer, c.Request); err != nil {
			hub.logger.Warn("WebSocket upgrade failed", logger.Err(err))
		}
		return nil
	})

	return hub
}
