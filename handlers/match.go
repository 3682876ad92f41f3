package handlers

import (
	"fantasy-sports-system/middleware"
	"fantasy-sports-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupMatchRoutes(app *fiber.App, matchService *services.MatchService, leaderboardService *services.LeaderboardService, settlementService *services.SettlementService) {
	app.Get("/matches", matchService.ListCompletedMatchesEndpoint)
	app.Get("/matches/:id/scorecard", matchService.GetScorecardEndpoint)
	app.Get("/matches/:matchId/leaderboard", leaderboardService.GetLeaderboardEndpoint)

	admin := app.Group("/admin", middleware.RequireAuth(), middleware.RequireAdmin())
	admin.Get("/matches", matchService.ListMatchesForAdminEndpoint)
	admin.Patch("/matches/:id/lock", matchService.LockMatchEndpoint)
	admin.Patch("/matches/:id/complete", settlementService.CompleteAndSettleEndpoint)
	admin.Patch("/matches/:id/abandon", matchService.AbandonMatchEndpoint)
}
