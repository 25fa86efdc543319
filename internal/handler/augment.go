package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/stemwave/api/internal/middleware"
	"github.com/stemwave/api/internal/model"
	"github.com/stemwave/api/internal/service"
	"github.com/stemwave/api/pkg/response"
)

type AugmentHandler struct {
	service   *service.AugmentService
	validator *validator.Validate
}

func NewAugmentHandler(svc *service.AugmentService, v *validator.Validate) *AugmentHandler {
	return &AugmentHandler{
		service:   svc,
		validator: v,
	}
}

// Types handles GET /api/augment/types
// @Summary      List augment types
// @Description  List the supported augmentation operation names
// @Tags         Augment
// @Produce      json
// @Success      200 {array} string
// @Security     BearerAuth
// @Router       /api/augment/types [get]
func (h *AugmentHandler) Types(c *fiber.Ctx) error {
	return response.OK(c, model.ValidAugmentTypes)
}

// Apply handles POST /api/augment
// @Summary      Apply augmentations
// @Description  Apply a chain of augmentation operations to stems of one signal. Returns the augmented WAV bytes, or the persisted stem refs when persist is set.
// @Tags         Augment
// @Accept       json
// @Produce      json
// @Param        request body model.AugmentRequest true "Augment request"
// @Success      200 {object} model.AugmentPersistedResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/augment [post]
func (h *AugmentHandler) Apply(c *fiber.Ctx) error {
	var req model.AugmentRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	wav, persisted, err := h.service.Apply(c.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		return serviceError(c, err)
	}

	if persisted != nil {
		return response.OK(c, persisted)
	}

	c.Set(fiber.HeaderContentType, "audio/wav")
	return c.Send(wav)
}
