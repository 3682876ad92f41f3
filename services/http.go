package services

import (
	"errors"

	"fantasy-sports-system/utils"

	"github.com/gofiber/fiber/v2"
)

// respondError maps domain errors to HTTP statuses. Anything unmapped is a 500
// with the fallback message; the underlying error is logged, not leaked.
func respondError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrInsufficientBalance):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": ErrInsufficientBalance.Error()})
	case errors.Is(err, ErrInvalidState):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	default:
		utils.Log.Errorw(fallback, "path", c.Path(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": fallback})
	}
}
