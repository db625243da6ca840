package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"phototimeline/domain/dto"
	"phototimeline/domain/services"
	"phototimeline/pkg/apperror"
)

// maxUploadBytes bounds a single multipart upload; spec.md leaves the
// exact limit to the deployment, this is a conservative default.
const maxUploadBytes = 50 * 1024 * 1024

var validate = validator.New()

type IngestHandler struct {
	ingest services.IngestService
}

func NewIngestHandler(ingest services.IngestService) *IngestHandler {
	return &IngestHandler{ingest: ingest}
}

// UploadPhoto handles the multipart ingest entry point from spec.md
// §4.1: group_id as a path parameter, uploader_id as a form field, the
// image itself as a file field named "file".
// @Summary Upload a photo into a group's timeline
// @Tags Photos
// @Accept multipart/form-data
// @Produce json
// @Param group_id path string true "Group ID"
// @Param uploader_id formData string true "Uploader ID"
// @Param file formData file true "Image file"
// @Success 200 {object} dto.UploadPhotoResponse
// @Router /v1/groups/{group_id}/photos [post]
func (h *IngestHandler) UploadPhoto(c *fiber.Ctx) error {
	groupID, err := uuid.Parse(c.Params("group_id"))
	if err != nil {
		return &apperror.ValidationError{Field: "group_id", Reason: "missing or not a uuid"}
	}
	uploaderID, err := uuid.Parse(c.FormValue("uploader_id"))
	if err != nil {
		return &apperror.ValidationError{Field: "uploader_id", Reason: "missing or not a uuid"}
	}

	req := dto.UploadPhotoRequest{GroupID: groupID, UploaderID: uploaderID}
	if err := validate.Struct(req); err != nil {
		return &apperror.ValidationError{Field: "request", Reason: err.Error()}
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return &apperror.ValidationError{Field: "file", Reason: "required"}
	}
	if fileHeader.Size > maxUploadBytes {
		return &apperror.ValidationError{Field: "file", Reason: "exceeds maximum upload size"}
	}

	f, err := fileHeader.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	declaredMime := fileHeader.Header.Get("Content-Type")

	photo, created, err := h.ingest.IngestPhoto(c.Context(), groupID, uploaderID, declaredMime, f)
	if err != nil {
		var valErr *apperror.ValidationError
		if errors.As(err, &valErr) {
			return valErr
		}
		return err
	}

	status := "accepted"
	if !created {
		status = "duplicate"
	}

	return c.JSON(dto.UploadPhotoResponse{
		PhotoID: photo.ID,
		Status:  status,
	})
}

// GetPhoto answers GET /v1/photos/{photo_id} with a photo's current
// processing/clustering state.
// @Summary Get a photo's current state
// @Tags Photos
// @Produce json
// @Param photo_id path string true "Photo ID"
// @Success 200 {object} dto.PhotoResponse
// @Router /v1/photos/{photo_id} [get]
func (h *IngestHandler) GetPhoto(c *fiber.Ctx) error {
	photoID, err := uuid.Parse(c.Params("photo_id"))
	if err != nil {
		return &apperror.ValidationError{Field: "photo_id", Reason: "not a uuid"}
	}

	photo, err := h.ingest.GetPhoto(c.Context(), photoID)
	if err != nil {
		return err
	}

	return c.JSON(dto.PhotoToResponse(photo))
}
