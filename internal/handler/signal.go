package handler

import (
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/stemwave/api/internal/middleware"
	"github.com/stemwave/api/internal/model"
	"github.com/stemwave/api/internal/service"
	"github.com/stemwave/api/pkg/response"
)

const maxUploadSize = 50 * 1024 * 1024 // 50MB

type SignalHandler struct {
	service   *service.SignalService
	validator *validator.Validate
}

func NewSignalHandler(svc *service.SignalService, v *validator.Validate) *SignalHandler {
	return &SignalHandler{
		service:   svc,
		validator: v,
	}
}

// Upload handles POST /api/signal/:signalType
// @Summary      Upload signal
// @Description  Upload an audio file and enqueue it for stem separation
// @Tags         Signal
// @Accept       multipart/form-data
// @Produce      json
// @Param        signalType path     string true "Signal type (Music or Speech)"
// @Param        file       formData file   true "Audio file (WAV; max 50MB)"
// @Success      201 {object} model.SignalInResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/signal/{signalType} [post]
func (h *SignalHandler) Upload(c *fiber.Ctx) error {
	signalType, ok := model.ParseSignalType(c.Params("signalType"))
	if !ok {
		return response.ValidationError(c, "Invalid signal type", map[string]interface{}{
			"valid": model.ValidSignalTypes,
		})
	}

	file, err := c.FormFile("file")
	if err != nil {
		return response.ValidationError(c, "File is required", nil)
	}

	if file.Size > maxUploadSize {
		return response.ValidationError(c, "File size exceeds 50MB limit", map[string]interface{}{
			"maxSize":  maxUploadSize,
			"fileSize": file.Size,
		})
	}

	f, err := file.Open()
	if err != nil {
		return response.ServiceError(c, "Failed to open file")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return response.ServiceError(c, "Failed to read file")
	}

	signal, err := h.service.Create(c.Context(), middleware.GetUserID(c), file.Filename, data, signalType)
	if err != nil {
		return serviceError(c, err)
	}

	return response.Created(c, model.SignalInResponse{Signal: signal})
}

// List handles GET /api/signal
// @Summary      List signals
// @Description  List all signals owned by the authenticated user
// @Tags         Signal
// @Produce      json
// @Success      200 {array} model.Signal
// @Failure      401 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/signal [get]
func (h *SignalHandler) List(c *fiber.Ctx) error {
	signals, err := h.service.List(c.Context(), middleware.GetUserID(c))
	if err != nil {
		return serviceError(c, err)
	}

	return response.OK(c, signals)
}

// State handles GET /api/signal/state/:signalId
// @Summary      Get signal state
// @Description  Read the current lifecycle state of a signal
// @Tags         Signal
// @Produce      json
// @Param        signalId path string true "Signal ID"
// @Success      200 {object} model.SignalStateResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/signal/state/{signalId} [get]
func (h *SignalHandler) State(c *fiber.Ctx) error {
	signalID := c.Params("signalId")
	if signalID == "" {
		return response.ValidationError(c, "Signal ID is required", nil)
	}

	state, err := h.service.State(c.Context(), middleware.GetUserID(c), signalID)
	if err != nil {
		return serviceError(c, err)
	}

	return response.OK(c, model.SignalStateResponse{
		SignalID: signalID,
		State:    state,
	})
}

// DownloadStem handles GET /api/signal/stem/:signalId/:stem
// @Summary      Download stem
// @Description  Stream the audio bytes of one stem
// @Tags         Signal
// @Produce      audio/wav
// @Param        signalId path string true "Signal ID"
// @Param        stem     path string true "Stem name"
// @Success      200 {file} binary
// @Failure      401 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/signal/stem/{signalId}/{stem} [get]
func (h *SignalHandler) DownloadStem(c *fiber.Ctx) error {
	signalID := c.Params("signalId")
	stem := c.Params("stem")
	if signalID == "" || stem == "" {
		return response.ValidationError(c, "Signal ID and stem name are required", nil)
	}

	data, err := h.service.DownloadStem(c.Context(), middleware.GetUserID(c), signalID, stem)
	if err != nil {
		return serviceError(c, err)
	}

	c.Set(fiber.HeaderContentType, "audio/wav")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", stem+".wav"))
	return c.Send(data)
}

// Copy handles POST /api/signal/copy/:signalId
// @Summary      Copy signal
// @Description  Duplicate a completed signal and all of its stems under a new ID
// @Tags         Signal
// @Produce      json
// @Param        signalId path string true "Signal ID"
// @Success      201 {object} model.SignalInResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      409 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/signal/copy/{signalId} [post]
func (h *SignalHandler) Copy(c *fiber.Ctx) error {
	signalID := c.Params("signalId")
	if signalID == "" {
		return response.ValidationError(c, "Signal ID is required", nil)
	}

	signal, err := h.service.Copy(c.Context(), middleware.GetUserID(c), signalID)
	if err != nil {
		return serviceError(c, err)
	}

	return response.Created(c, model.SignalInResponse{Signal: signal})
}

// AttachStem handles PATCH /api/signal/:signalId/:stem
// @Summary      Attach stem
// @Description  Upload an audio file as a new named stem of a completed signal
// @Tags         Signal
// @Accept       multipart/form-data
// @Produce      json
// @Param        signalId path     string true "Signal ID"
// @Param        stem     path     string true "Stem name"
// @Param        file     formData file   true "Audio file (WAV; max 50MB)"
// @Success      200 {object} model.SignalInResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      409 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/signal/{signalId}/{stem} [patch]
func (h *SignalHandler) AttachStem(c *fiber.Ctx) error {
	signalID := c.Params("signalId")
	// Params are views into fasthttp's reusable request buffer; the service
	// stores the stem name past the request, so it must be copied.
	stem := utils.CopyString(c.Params("stem"))
	if signalID == "" || stem == "" {
		return response.ValidationError(c, "Signal ID and stem name are required", nil)
	}

	file, err := c.FormFile("file")
	if err != nil {
		return response.ValidationError(c, "File is required", nil)
	}

	if file.Size > maxUploadSize {
		return response.ValidationError(c, "File size exceeds 50MB limit", map[string]interface{}{
			"maxSize":  maxUploadSize,
			"fileSize": file.Size,
		})
	}

	f, err := file.Open()
	if err != nil {
		return response.ServiceError(c, "Failed to open file")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return response.ServiceError(c, "Failed to read file")
	}

	signal, err := h.service.AttachStem(c.Context(), middleware.GetUserID(c), signalID, stem, file.Filename, data)
	if err != nil {
		return serviceError(c, err)
	}

	return response.OK(c, model.SignalInResponse{Signal: signal})
}

// RenameStem handles PATCH /api/signal/rename/:signalId/:stem
// @Summary      Rename stem
// @Description  Rename a stem; the stem stays downloadable under its new name
// @Tags         Signal
// @Produce      json
// @Param        signalId path  string true "Signal ID"
// @Param        stem     path  string true "Current stem name"
// @Param        newName  query string true "New stem name"
// @Success      200 {object} model.SignalInResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      409 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/signal/rename/{signalId}/{stem} [patch]
func (h *SignalHandler) RenameStem(c *fiber.Ctx) error {
	signalID := c.Params("signalId")
	stem := c.Params("stem")
	if signalID == "" || stem == "" {
		return response.ValidationError(c, "Signal ID and stem name are required", nil)
	}

	// Query values alias the request buffer; the new name outlives the request.
	newName := utils.CopyString(c.Query("newName"))
	if newName == "" {
		return response.ValidationError(c, "newName query parameter is required", nil)
	}

	signal, err := h.service.RenameStem(c.Context(), middleware.GetUserID(c), signalID, stem, newName)
	if err != nil {
		return serviceError(c, err)
	}

	return response.OK(c, model.SignalInResponse{Signal: signal})
}

// DeleteStem handles DELETE /api/signal/:signalId/:stem
// @Summary      Delete stem
// @Description  Delete one stem of a signal
// @Tags         Signal
// @Produce      json
// @Param        signalId path string true "Signal ID"
// @Param        stem     path string true "Stem name"
// @Success      200 {object} model.StemDeleteResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/signal/{signalId}/{stem} [delete]
func (h *SignalHandler) DeleteStem(c *fiber.Ctx) error {
	signalID := c.Params("signalId")
	stem := c.Params("stem")
	if signalID == "" || stem == "" {
		return response.ValidationError(c, "Signal ID and stem name are required", nil)
	}

	deleted, err := h.service.DeleteStem(c.Context(), middleware.GetUserID(c), signalID, stem)
	if err != nil {
		return serviceError(c, err)
	}

	return response.OK(c, model.StemDeleteResponse{
		StemName: stem,
		Deleted:  deleted,
	})
}

// Delete handles DELETE /api/signal/:signalId
// @Summary      Delete signal
// @Description  Delete a signal, all of its stems and its stored audio
// @Tags         Signal
// @Produce      json
// @Param        signalId path string true "Signal ID"
// @Success      200 {object} model.SignalDeleteResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/signal/{signalId} [delete]
func (h *SignalHandler) Delete(c *fiber.Ctx) error {
	signalID := c.Params("signalId")
	if signalID == "" {
		return response.ValidationError(c, "Signal ID is required", nil)
	}

	deleted, err := h.service.Delete(c.Context(), middleware.GetUserID(c), signalID)
	if err != nil {
		return serviceError(c, err)
	}

	return response.OK(c, model.SignalDeleteResponse{
		SignalID: signalID,
		Deleted:  deleted,
	})
}
