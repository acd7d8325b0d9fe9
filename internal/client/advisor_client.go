package client

import (
	"context"
	"net/http"
	"time"

	"github.com/clipvibe/api/internal/config"
	"github.com/clipvibe/api/internal/model"
)

// AdvisorClient implements GradingAdvisor against the grading advisor
// service. The advisor owns the filter-spec grammar; this client treats
// specs as opaque strings.
type AdvisorClient struct {
	httpClient *http.Client
	baseURL    string
}

type translateRequest struct {
	Mood  model.Mood           `json:"mood"`
	Clips []model.ClipAnalysis `json:"clips"`
}

type translateResponse struct {
	Filters []model.FilterAssignment `json:"filters"`
}

// NewAdvisorClient creates a client for the grading advisor service.
func NewAdvisorClient(cfg *config.AdvisorConfig) *AdvisorClient {
	return &AdvisorClient{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		baseURL: cfg.ServiceURL,
	}
}

// Translate asks for one filter specification per analyzed clip.
func (c *AdvisorClient) Translate(ctx context.Context, mood model.Mood, analyses []model.ClipAnalysis) ([]model.FilterAssignment, error) {
	var result translateResponse
	req := translateRequest{Mood: mood, Clips: analyses}
	if err := postJSON(ctx, c.httpClient, "grading advisor", c.baseURL+"/translate", req, &result); err != nil {
		return nil, err
	}
	return result.Filters, nil
}
