package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"
)

// TypeGradeJob is the asynq task type for grading jobs.
const TypeGradeJob = "job:grade"

// Priority selects which queue a job lands on. Queues are drained
// highest-weight first; ordering is FIFO within one priority class.
type Priority string

const (
	PriorityHigh    Priority = "high"
	PriorityDefault Priority = "default"
	PriorityLow     Priority = "low"
)

// QueueWeights is the drain ratio the worker server applies across
// priority classes.
var QueueWeights = map[string]int{
	string(PriorityHigh):    6,
	string(PriorityDefault): 3,
	string(PriorityLow):     1,
}

// GradePayload is the task body handed from submitter to worker. The job
// record itself lives in the store; the queue carries only the id.
type GradePayload struct {
	JobID string `json:"job_id"`
}

// Enqueuer is the submit side of the job queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, jobID string, priority Priority) error
}

// Queue enqueues grading jobs on asynq. Delivery is at-least-once: a task
// whose worker dies or exceeds the lease timeout becomes re-deliverable,
// so the pipeline must tolerate reprocessing.
type Queue struct {
	client       *asynq.Client
	leaseTimeout time.Duration
	retention    time.Duration
}

// New creates a Queue. leaseTimeout bounds how long a single delivery may
// run before the task is considered lost and redelivered.
func New(client *asynq.Client, leaseTimeout time.Duration) *Queue {
	return &Queue{
		client:       client,
		leaseTimeout: leaseTimeout,
		retention:    24 * time.Hour,
	}
}

// Enqueue submits a job for processing. Enqueueing a job id that is still
// pending is a no-op, which makes duplicate submissions harmless.
func (q *Queue) Enqueue(ctx context.Context, jobID string, priority Priority) error {
	payload, err := json.Marshal(GradePayload{JobID: jobID})
	if err != nil {
		return fmt.Errorf("marshal payload failed: %w", err)
	}

	task := asynq.NewTask(TypeGradeJob, payload)
	info, err := q.client.EnqueueContext(ctx, task,
		asynq.TaskID(TaskID(jobID)),
		asynq.Queue(QueueName(priority)),
		asynq.MaxRetry(5),
		asynq.Timeout(q.leaseTimeout),
		asynq.Retention(q.retention),
	)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			log.Printf("[queue] job %s already pending, enqueue skipped", jobID)
			return nil
		}
		return fmt.Errorf("enqueue failed: %w", err)
	}

	log.Printf("[queue] job %s enqueued on %s (task %s)", jobID, info.Queue, info.ID)
	return nil
}

// TaskID derives the asynq task id that guarantees at most one pending
// task per job id.
func TaskID(jobID string) string {
	return "grade:" + jobID
}

// QueueName maps a priority class to its asynq queue, defaulting unknown
// values to the default class.
func QueueName(p Priority) string {
	switch p {
	case PriorityHigh, PriorityDefault, PriorityLow:
		return string(p)
	default:
		return string(PriorityDefault)
	}
}
