package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/clipvibe/api/internal/model"
	"github.com/clipvibe/api/internal/queue"
	"github.com/clipvibe/api/internal/store"
)

type memStore struct {
	mu    sync.Mutex
	jobs  map[string]*model.Job
	clips map[string]model.Clip
}

func newMemStore() *memStore {
	return &memStore{
		jobs:  make(map[string]*model.Job),
		clips: make(map[string]model.Clip),
	}
}

func (s *memStore) CreateJob(ctx context.Context, job *model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *job
	s.jobs[job.ID] = &cp
	return nil
}

func (s *memStore) GetJob(ctx context.Context, id string) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (s *memStore) UpdateJob(ctx context.Context, job *model.Job) error {
	return s.CreateJob(ctx, job)
}

func (s *memStore) CreateClip(ctx context.Context, clip *model.Clip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clips[clip.ID] = *clip
	return nil
}

func (s *memStore) GetClips(ctx context.Context, ids []string) ([]model.Clip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Clip
	for _, id := range ids {
		if c, ok := s.clips[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *memStore) ListClipsByUser(ctx context.Context, userID string) ([]model.Clip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Clip
	for _, c := range s.clips {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *memStore) DeleteClip(ctx context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clips[id]
	if !ok || c.UserID != userID {
		return store.ErrNotFound
	}
	delete(s.clips, id)
	return nil
}

type fakeEnqueuer struct {
	jobIDs     []string
	priorities []queue.Priority
	err        error
}

func (f *fakeEnqueuer) Enqueue(ctx context.Context, jobID string, priority queue.Priority) error {
	if f.err != nil {
		return f.err
	}
	f.jobIDs = append(f.jobIDs, jobID)
	f.priorities = append(f.priorities, priority)
	return nil
}

func seedClip(st *memStore, id, userID string) {
	st.clips[id] = model.Clip{ID: id, UserID: userID, FileName: id + ".mp4", StorageRef: "clips/" + userID + "/" + id + ".mp4"}
}

func TestJobServiceCreate(t *testing.T) {
	st := newMemStore()
	enq := &fakeEnqueuer{}
	svc := NewJobService(st, enq)
	seedClip(st, "clip-a", "user-1")
	seedClip(st, "clip-b", "user-1")

	resp, err := svc.Create(context.Background(), "user-1", &model.CreateJobRequest{
		Mood:    "cinematic",
		ClipIDs: []string{"clip-a", "clip-b"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if resp.Status != model.JobStatusQueued {
		t.Errorf("expected queued, got %s", resp.Status)
	}

	job, err := st.GetJob(context.Background(), resp.JobID)
	if err != nil {
		t.Fatalf("job not persisted: %v", err)
	}
	if len(job.ClipIDs) != 2 || job.Mood != model.MoodCinematic {
		t.Errorf("unexpected job record: %+v", job)
	}

	if len(enq.jobIDs) != 1 || enq.jobIDs[0] != resp.JobID {
		t.Fatalf("expected one enqueue for %s, got %v", resp.JobID, enq.jobIDs)
	}
	if enq.priorities[0] != queue.PriorityDefault {
		t.Errorf("missing priority should default, got %s", enq.priorities[0])
	}
}

func TestJobServiceCreateRejectsUnknownMood(t *testing.T) {
	st := newMemStore()
	enq := &fakeEnqueuer{}
	svc := NewJobService(st, enq)
	seedClip(st, "clip-a", "user-1")

	_, err := svc.Create(context.Background(), "user-1", &model.CreateJobRequest{
		Mood:    "noir",
		ClipIDs: []string{"clip-a"},
	})
	if err == nil {
		t.Fatal("expected error for unsupported mood")
	}
	if len(enq.jobIDs) != 0 {
		t.Error("nothing should be enqueued on validation failure")
	}
}

func TestJobServiceCreateRejectsMissingClip(t *testing.T) {
	st := newMemStore()
	svc := NewJobService(st, &fakeEnqueuer{})
	seedClip(st, "clip-a", "user-1")

	_, err := svc.Create(context.Background(), "user-1", &model.CreateJobRequest{
		Mood:    "chill",
		ClipIDs: []string{"clip-a", "clip-missing"},
	})
	if err == nil {
		t.Fatal("expected error for missing clip")
	}
}

func TestJobServiceCreateRejectsForeignClip(t *testing.T) {
	st := newMemStore()
	svc := NewJobService(st, &fakeEnqueuer{})
	seedClip(st, "clip-a", "someone-else")

	_, err := svc.Create(context.Background(), "user-1", &model.CreateJobRequest{
		Mood:    "chill",
		ClipIDs: []string{"clip-a"},
	})
	if err == nil {
		t.Fatal("expected error for clip owned by another user")
	}
}

func TestJobServiceCreateEnqueueFailure(t *testing.T) {
	st := newMemStore()
	svc := NewJobService(st, &fakeEnqueuer{err: errors.New("redis down")})
	seedClip(st, "clip-a", "user-1")

	_, err := svc.Create(context.Background(), "user-1", &model.CreateJobRequest{
		Mood:    "vibrant",
		ClipIDs: []string{"clip-a"},
	})
	if err == nil {
		t.Fatal("expected enqueue failure to surface")
	}
}

func TestJobServiceGetEnforcesOwnership(t *testing.T) {
	st := newMemStore()
	svc := NewJobService(st, &fakeEnqueuer{})
	st.jobs["job-1"] = &model.Job{ID: "job-1", UserID: "user-1", Status: model.JobStatusComplete}

	if _, err := svc.Get(context.Background(), "user-1", "job-1"); err != nil {
		t.Fatalf("owner should read the job: %v", err)
	}
	if _, err := svc.Get(context.Background(), "user-2", "job-1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("foreign job must read as not found, got %v", err)
	}
	if _, err := svc.Get(context.Background(), "user-1", "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("missing job must be not found, got %v", err)
	}
}
