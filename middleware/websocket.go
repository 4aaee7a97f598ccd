package middleware

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// WebSocketUpgrader lets only upgrade requests through to the websocket
// handler. Authentication happens per event once the socket is open.
func WebSocketUpgrader() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			log.Debug().Str("ip", c.IP()).Msg("[WS] upgrade accepted")
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}
