package routes

import (
	"github.com/gofiber/fiber/v2"

	"phototimeline/interfaces/api/handlers"
)

// SetupHealthRoutes registers the liveness probe and the detailed
// component report, plus a root welcome route in the teacher's style.
func SetupHealthRoutes(app *fiber.App, healthHandler *handlers.HealthHandler) {
	app.Get("/health", healthHandler.Liveness)
	app.Get("/health/detailed", healthHandler.DetailedHealth)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Photo Timeline ingest API",
			"health":  "/health",
			"docs":    "/docs",
		})
	})
}
