package routes

import (
	"github.com/gofiber/fiber/v2"

	"phototimeline/interfaces/api/handlers"
	"phototimeline/interfaces/api/middleware"
	"phototimeline/pkg/config"
	"phototimeline/pkg/scalar"
)

func SetupRoutes(app *fiber.App, h *handlers.Handlers, cfg *config.Config) {
	SetupHealthRoutes(app, h.Health)

	api := app.Group("/v1", middleware.RequireIngestToken(cfg.App.Token), middleware.RateLimiter(cfg.RateLimit))
	SetupIngestRoutes(api, h)

	scalar.SetupRoutes(app, scalar.Config{Title: cfg.App.Name + " API Reference"})
}
