package routes

import (
	"github.com/gofiber/fiber/v2"

	"phototimeline/interfaces/api/handlers"
)

func SetupIngestRoutes(api fiber.Router, h *handlers.Handlers) {
	api.Post("/groups/:group_id/photos", h.Ingest.UploadPhoto)
	api.Get("/photos/:photo_id", h.Ingest.GetPhoto)
}
