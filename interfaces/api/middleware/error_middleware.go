package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"phototimeline/pkg/apperror"
	"phototimeline/pkg/logger"
)

// ErrorHandler maps the error taxonomy from spec.md §7 onto HTTP
// status codes. Handlers return plain Go errors; this is the only
// place that decides what status code a caller sees.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code, message := classify(err)

		logger.Error(logger.CategoryAPI, "error_handler", "request error", err, map[string]interface{}{
			"status_code": code, "path": c.Path(), "method": c.Method(),
		})

		return c.Status(code).JSON(fiber.Map{
			"success": false,
			"error":   message,
		})
	}
}

func classify(err error) (int, string) {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code, fiberErr.Message
	}

	var validationErr *apperror.ValidationError
	if errors.As(err, &validationErr) {
		return fiber.StatusBadRequest, validationErr.Error()
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fiber.StatusNotFound, "not found"
	case errors.Is(err, apperror.ErrValidation):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, apperror.ErrConcurrencyConflict):
		return fiber.StatusServiceUnavailable, err.Error()
	case errors.Is(err, apperror.ErrTransientIO):
		return fiber.StatusServiceUnavailable, err.Error()
	default:
		return fiber.StatusInternalServerError, "an unexpected error occurred"
	}
}
