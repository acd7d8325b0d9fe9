package pipeline

import (
	"context"
	"errors"
	"net"

	"github.com/clipvibe/api/internal/client"
)

// isTransient classifies an external-call failure. Timeouts, connection
// failures, and 5xx responses are retryable; 4xx responses and anything
// else (malformed payloads included) fail immediately.
func isTransient(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Transient()
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return false
}
