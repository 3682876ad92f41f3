package handlers

import (
	"fantasy-sports-system/middleware"
	"fantasy-sports-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupNotificationRoutes(app *fiber.App, notificationService *services.NotificationService) {
	notifications := app.Group("/notifications", middleware.RequireAuth())

	notifications.Get("/", notificationService.ListEndpoint)
	notifications.Get("/unread-count", notificationService.UnreadCountEndpoint)
	notifications.Patch("/read-all", notificationService.MarkAllAsReadEndpoint)
	notifications.Patch("/:id/read", notificationService.MarkAsReadEndpoint)
	notifications.Delete("/:id", notificationService.DeleteEndpoint)
}
