package client

import (
	"context"
	"net/http"
	"time"

	"github.com/clipvibe/api/internal/config"
)

// ExecutorClient implements FilterExecutor against the ffmpeg grading
// microservice. Filter execution is the heaviest operation in the
// pipeline, so its timeout is on the order of minutes.
type ExecutorClient struct {
	httpClient *http.Client
	baseURL    string
}

type gradeRequest struct {
	ClipRef    string `json:"clip_ref"`
	FilterSpec string `json:"filter_spec"`
	OutputKey  string `json:"output_key"`
}

type gradeResponse struct {
	OutputRef string `json:"output_ref"`
}

// NewExecutorClient creates a client for the filter executor service.
func NewExecutorClient(cfg *config.ExecutorConfig) *ExecutorClient {
	return &ExecutorClient{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		baseURL: cfg.ServiceURL,
	}
}

// Grade applies filterSpec to the clip at storageRef and returns the
// graded output's storage reference.
func (c *ExecutorClient) Grade(ctx context.Context, storageRef, filterSpec, outputKey string) (string, error) {
	var result gradeResponse
	req := gradeRequest{ClipRef: storageRef, FilterSpec: filterSpec, OutputKey: outputKey}
	if err := postJSON(ctx, c.httpClient, "filter executor", c.baseURL+"/grade", req, &result); err != nil {
		return "", err
	}
	return result.OutputRef, nil
}
