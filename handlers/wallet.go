package handlers

import (
	"fantasy-sports-system/middleware"
	"fantasy-sports-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupWalletRoutes(app *fiber.App, walletService *services.WalletService) {
	wallet := app.Group("/wallet", middleware.RequireAuth())

	wallet.Get("/summary", walletService.GetSummaryEndpoint)
	wallet.Get("/transactions", walletService.ListTransactionsEndpoint)
	wallet.Post("/daily-bonus", walletService.ClaimDailyBonusEndpoint)
	wallet.Post("/welcome-bonus", walletService.ClaimWelcomeBonusEndpoint)
}
