package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/clipvibe/api/internal/model"
	"github.com/clipvibe/api/internal/queue"
	"github.com/clipvibe/api/internal/store"
)

// JobService creates grading jobs and reads their state. Processing
// itself is the pipeline's business; this is the submit side.
type JobService struct {
	store    store.Store
	enqueuer queue.Enqueuer
}

func NewJobService(st store.Store, enqueuer queue.Enqueuer) *JobService {
	return &JobService{
		store:    st,
		enqueuer: enqueuer,
	}
}

// Create validates the request, persists a queued job, and enqueues it.
// Every clip must exist and belong to the submitting user.
func (s *JobService) Create(ctx context.Context, userID string, req *model.CreateJobRequest) (*model.CreateJobResponse, error) {
	mood := model.Mood(req.Mood)
	if !mood.IsValid() {
		return nil, fmt.Errorf("unsupported mood %q", req.Mood)
	}

	clips, err := s.store.GetClips(ctx, req.ClipIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load clips: %w", err)
	}
	if len(clips) != len(req.ClipIDs) {
		return nil, fmt.Errorf("one or more clips do not exist")
	}
	for _, clip := range clips {
		if clip.UserID != userID {
			return nil, fmt.Errorf("clip %s does not belong to user", clip.ID)
		}
	}

	job := &model.Job{
		ID:      uuid.New().String(),
		UserID:  userID,
		Mood:    mood,
		ClipIDs: model.StringList(req.ClipIDs),
		Status:  model.JobStatusQueued,
	}
	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	priority := queue.Priority(req.Priority)
	if priority == "" {
		priority = queue.PriorityDefault
	}
	if err := s.enqueuer.Enqueue(ctx, job.ID, priority); err != nil {
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	return &model.CreateJobResponse{
		JobID:  job.ID,
		Status: job.Status,
	}, nil
}

// Get returns a job owned by the given user.
func (s *JobService) Get(ctx context.Context, userID, jobID string) (*model.Job, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.UserID != userID {
		return nil, store.ErrNotFound
	}
	return job, nil
}
