package handler

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/clipvibe/api/internal/middleware"
	"github.com/clipvibe/api/internal/model"
	"github.com/clipvibe/api/internal/service"
	"github.com/clipvibe/api/internal/store"
	"github.com/clipvibe/api/pkg/response"
)

const maxUploadSize = 200 * 1024 * 1024 // 200MB

type ClipHandler struct {
	service   *service.ClipService
	validator *validator.Validate
}

func NewClipHandler(svc *service.ClipService, v *validator.Validate) *ClipHandler {
	return &ClipHandler{
		service:   svc,
		validator: v,
	}
}

// Upload handles POST /api/clips
func (h *ClipHandler) Upload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return response.ValidationError(c, "File is required", nil)
	}

	if file.Size > maxUploadSize {
		return response.ValidationError(c, "File size exceeds 200MB limit", map[string]interface{}{
			"maxSize":  maxUploadSize,
			"fileSize": file.Size,
		})
	}

	contentType := file.Header.Get("Content-Type")
	validTypes := map[string]bool{
		"video/mp4":        true,
		"video/quicktime":  true,
		"video/webm":       true,
		"video/x-matroska": true,
		"video/x-msvideo":  true,
	}
	if !validTypes[contentType] {
		return response.ValidationError(c, "Invalid file type. Supported: MP4, MOV, WebM, MKV, AVI", map[string]interface{}{
			"contentType": contentType,
		})
	}

	meta := &model.UploadClipRequest{
		Duration:  parseFloatValue(c.FormValue("duration")),
		Width:     parseIntValue(c.FormValue("width")),
		Height:    parseIntValue(c.FormValue("height")),
		FrameRate: parseFloatValue(c.FormValue("frame_rate")),
	}
	if err := h.validator.Struct(meta); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	f, err := file.Open()
	if err != nil {
		return response.ServiceError(c, "Failed to open file")
	}
	defer f.Close()

	clip, err := h.service.Upload(c.Context(), middleware.GetUserID(c), file.Filename, file.Size, f, meta)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.Created(c, clip)
}

// List handles GET /api/clips
func (h *ClipHandler) List(c *fiber.Ctx) error {
	clips, err := h.service.List(c.Context(), middleware.GetUserID(c))
	if err != nil {
		return response.ServiceError(c, err.Error())
	}
	if clips == nil {
		clips = []model.Clip{}
	}
	return response.OK(c, clips)
}

// Delete handles DELETE /api/clips/:clipId
func (h *ClipHandler) Delete(c *fiber.Ctx) error {
	clipID := c.Params("clipId")
	if clipID == "" {
		return response.ValidationError(c, "Clip ID is required", nil)
	}

	if err := h.service.Delete(c.Context(), middleware.GetUserID(c), clipID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Clip not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.NoContent(c)
}

func parseFloatValue(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func parseIntValue(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}
