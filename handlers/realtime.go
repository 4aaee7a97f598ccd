package handlers

import (
	"cue-club-system/middleware"
	"cue-club-system/realtime"
	"cue-club-system/services"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

func SetupRealtimeRoutes(app *fiber.App, hub *realtime.Hub, matchService *services.MatchService, authService *services.ManagerAuthService) {
	app.Use("/ws", middleware.WebSocketUpgrader())
	app.Get("/ws", websocket.New(hub.NewWebSocketHandler(matchService, authService)))
}
