package store

import (
	"context"
	"errors"

	"github.com/clipvibe/api/internal/model"
)

// ErrNotFound is returned when a job or clip record no longer exists.
// A status write against a deleted job surfaces as ErrNotFound so the
// worker can treat it as a no-op rather than a fatal store failure.
var ErrNotFound = errors.New("record not found")

// ErrStatusRegression is returned when a job status write would move the
// status backward. That transition is never expected; callers treat it as
// an invariant violation, not a retryable condition.
var ErrStatusRegression = errors.New("job status moved backward")

// Store is the persistent record of clips and jobs. The pipeline reads and
// writes job state through it; all other callers are request glue.
type Store interface {
	CreateJob(ctx context.Context, job *model.Job) error
	GetJob(ctx context.Context, id string) (*model.Job, error)
	UpdateJob(ctx context.Context, job *model.Job) error

	CreateClip(ctx context.Context, clip *model.Clip) error
	GetClips(ctx context.Context, ids []string) ([]model.Clip, error)
	ListClipsByUser(ctx context.Context, userID string) ([]model.Clip, error)
	DeleteClip(ctx context.Context, id, userID string) error
}
