package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/stemwave/api/internal/apperr"
	"github.com/stemwave/api/pkg/response"
)

// serviceError maps a service-layer error onto the HTTP response.
func serviceError(c *fiber.Ctx, err error) error {
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		return response.NotFound(c, err.Error())
	case apperr.KindInvalidInput:
		return response.ValidationError(c, err.Error(), nil)
	case apperr.KindConflict:
		return response.Conflict(c, err.Error())
	case apperr.KindResourceExhausted:
		return response.StorageExhausted(c, err.Error())
	default:
		return response.ServiceError(c, err.Error())
	}
}

// formatValidationErrors formats validator errors for response
func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			errors[e.Field()] = e.Tag()
		}
		return errors
	}
	return nil
}
