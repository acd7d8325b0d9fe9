package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/clipvibe/api/internal/model"
	"github.com/clipvibe/api/pkg/response"
)

type MoodHandler struct{}

func NewMoodHandler() *MoodHandler {
	return &MoodHandler{}
}

// List handles GET /api/moods
func (h *MoodHandler) List(c *fiber.Ctx) error {
	return response.OK(c, fiber.Map{"moods": model.ValidMoods})
}
