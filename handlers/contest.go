package handlers

import (
	"fantasy-sports-system/middleware"
	"fantasy-sports-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupContestRoutes(app *fiber.App, contestService *services.ContestService, leaderboardService *services.LeaderboardService) {
	// Contest cards are public; joining and managing entries requires auth.
	app.Get("/contests", leaderboardService.ListMatchContestsEndpoint)

	secured := app.Group("/contests", middleware.RequireAuth())
	secured.Get("/entries/me", contestService.ListMyEntriesEndpoint)
	secured.Post("/:matchId/entries", contestService.SubmitEntryEndpoint)
	secured.Delete("/:matchId/entries", contestService.DeleteEntryEndpoint)
}
