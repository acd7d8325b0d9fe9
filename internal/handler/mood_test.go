package handler

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/clipvibe/api/internal/model"
)

func TestMoodHandlerList(t *testing.T) {
	app := fiber.New()
	app.Get("/api/moods", NewMoodHandler().List)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/moods", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var got struct {
		Moods []model.Mood `json:"moods"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(got.Moods) != len(model.ValidMoods) {
		t.Errorf("expected %d moods, got %v", len(model.ValidMoods), got.Moods)
	}
	for _, m := range got.Moods {
		if !m.IsValid() {
			t.Errorf("listed mood %q is not valid", m)
		}
	}
}
