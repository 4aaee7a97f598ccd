package handlers

import (
	"cue-club-system/middleware"
	"cue-club-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupMatchRoutes(app *fiber.App, matchService *services.MatchService, authService *services.ManagerAuthService) {
	// 🔓 Public: lookups and self-service by identity
	app.Get("/matches/code/:matchCode", matchService.GetMatchByCodeEndpoint)
	app.Post("/matches/join", matchService.JoinMatchEndpoint)
	app.Post("/matches/leave", matchService.LeaveMatchEndpoint)
	app.Post("/matches/:matchId/session-token", matchService.SessionTokenEndpoint)
	app.Get("/matches/:id", matchService.GetMatchEndpoint)

	// Staff token optional on create, required on listing
	app.Post("/matches", middleware.OptionalManager(authService), matchService.CreateMatchEndpoint)
	app.Get("/matches", middleware.RequireManager(authService), matchService.ListMatchesEndpoint)

	// 🔐 Session-token routes
	app.Get("/matches/:id/me", middleware.RequireMember(matchService), matchService.MeEndpoint)
	app.Post("/matches/:id/leave-session", middleware.RequireParticipantRole(matchService), matchService.LeaveSessionEndpoint)

	// 🔐 Host or club manager
	hostOrManager := middleware.AllowManagerOrHost(matchService, authService)
	app.Put("/matches/:id/score", hostOrManager, matchService.UpdateScoreEndpoint)
	app.Put("/matches/:id/teams", hostOrManager, matchService.UpdateTeamsEndpoint)
	app.Put("/matches/:id/start", hostOrManager, matchService.StartMatchEndpoint)
	app.Put("/matches/:id/end", hostOrManager, matchService.EndMatchEndpoint)
	app.Delete("/matches/:id", hostOrManager, matchService.DeleteMatchEndpoint)

	// 🔐 Creator only
	creator := middleware.RequireMatchCreator(matchService)
	app.Put("/matches/:id/creator/end", creator, matchService.EndMatchEndpoint)
	app.Delete("/matches/:id/creator", creator, matchService.DeleteMatchEndpoint)
}

func SetupManagerRoutes(app *fiber.App, authService *services.ManagerAuthService) {
	app.Post("/managers/login", authService.LoginEndpoint)
	app.Post("/managers/logout", middleware.RequireManager(authService), authService.LogoutEndpoint)
}
