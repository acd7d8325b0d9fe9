package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/clipvibe/api/internal/model"
)

// AnalysisService extracts a visual-property vector from one clip.
type AnalysisService interface {
	Analyze(ctx context.Context, clipID, storageRef string) (*model.ClipAnalysis, error)
}

// GradingAdvisor translates a mood plus the analyzed clips into one filter
// specification per clip.
type GradingAdvisor interface {
	Translate(ctx context.Context, mood model.Mood, analyses []model.ClipAnalysis) ([]model.FilterAssignment, error)
}

// FilterExecutor applies a filter specification to one clip and returns
// the storage reference of the graded output.
type FilterExecutor interface {
	Grade(ctx context.Context, storageRef, filterSpec, outputKey string) (string, error)
}

// APIError is a non-2xx response from an external service. The status
// code drives retry classification: 5xx is transient, 4xx is permanent.
type APIError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s error (status %d): %s", e.Service, e.StatusCode, e.Body)
}

// Transient reports whether the failure is worth retrying.
func (e *APIError) Transient() bool {
	return e.StatusCode >= 500
}

// postJSON sends a POST request with a JSON body and decodes the JSON
// response into result. Non-2xx responses come back as *APIError.
func postJSON(ctx context.Context, httpClient *http.Client, service, url string, body interface{}, result interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Service: service, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to unmarshal %s response: %w", service, err)
	}

	return nil
}
