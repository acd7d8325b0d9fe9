package client

import (
	"context"
	"net/http"
	"time"

	"github.com/clipvibe/api/internal/config"
	"github.com/clipvibe/api/internal/model"
)

// AnalysisClient implements AnalysisService against the Python analyzer
// microservice.
type AnalysisClient struct {
	httpClient *http.Client
	baseURL    string
}

type analyzeRequest struct {
	ClipID  string `json:"clip_id"`
	ClipRef string `json:"clip_ref"`
}

// NewAnalysisClient creates a client for the analyzer service.
func NewAnalysisClient(cfg *config.AnalysisConfig) *AnalysisClient {
	return &AnalysisClient{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		baseURL: cfg.ServiceURL,
	}
}

// Analyze fetches the visual-property vector for one clip.
func (c *AnalysisClient) Analyze(ctx context.Context, clipID, storageRef string) (*model.ClipAnalysis, error) {
	var result model.ClipAnalysis
	req := analyzeRequest{ClipID: clipID, ClipRef: storageRef}
	if err := postJSON(ctx, c.httpClient, "analysis service", c.baseURL+"/analyze", req, &result); err != nil {
		return nil, err
	}
	if result.ClipID == "" {
		result.ClipID = clipID
	}
	return &result, nil
}
