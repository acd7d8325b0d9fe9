package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/clipvibe/api/internal/broadcast"
	"github.com/clipvibe/api/internal/client"
	"github.com/clipvibe/api/internal/model"
	"github.com/clipvibe/api/internal/queue"
	"github.com/clipvibe/api/internal/store"
)

// Orchestrator runs the per-job stage sequence: load, per-clip analysis,
// mood-to-filter translation, per-clip execution, finalize. One asynq
// worker holds one job at a time; the queue's task lease guarantees no
// other worker processes the same job id concurrently, even across
// processes. All per-job scratch state is local to a single ProcessTask
// call and discarded when it returns.
type Orchestrator struct {
	store     store.Store
	analysis  client.AnalysisService
	advisor   client.GradingAdvisor
	executor  client.FilterExecutor
	publisher broadcast.Publisher
	retry     RetryPolicy

	analysisTimeout time.Duration
	advisorTimeout  time.Duration
	executorTimeout time.Duration
}

// Options wires the orchestrator's collaborators and timeouts.
type Options struct {
	Store     store.Store
	Analysis  client.AnalysisService
	Advisor   client.GradingAdvisor
	Executor  client.FilterExecutor
	Publisher broadcast.Publisher
	Retry     RetryPolicy

	AnalysisTimeout time.Duration
	AdvisorTimeout  time.Duration
	ExecutorTimeout time.Duration
}

// New creates an Orchestrator. Zero timeouts fall back to defaults sized
// for the operation: tens of seconds for analysis and translation,
// minutes for filter execution.
func New(opts Options) *Orchestrator {
	if opts.AnalysisTimeout == 0 {
		opts.AnalysisTimeout = 30 * time.Second
	}
	if opts.AdvisorTimeout == 0 {
		opts.AdvisorTimeout = 30 * time.Second
	}
	if opts.ExecutorTimeout == 0 {
		opts.ExecutorTimeout = 3 * time.Minute
	}
	if len(opts.Retry.Delays) == 0 {
		opts.Retry = NewRetryPolicy(500*time.Millisecond, 2*time.Second)
	}
	return &Orchestrator{
		store:           opts.Store,
		analysis:        opts.Analysis,
		advisor:         opts.Advisor,
		executor:        opts.Executor,
		publisher:       opts.Publisher,
		retry:           opts.Retry,
		analysisTimeout: opts.AnalysisTimeout,
		advisorTimeout:  opts.AdvisorTimeout,
		executorTimeout: opts.ExecutorTimeout,
	}
}

// ProcessTask handles one delivery of a grading job. Returning nil acks
// the task; returning an error releases it for redelivery, which is how
// store failures and worker shutdown resolve. Duplicate deliveries of a
// finished job are detected at load time and acked without side effects.
func (o *Orchestrator) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.GradePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("malformed task payload: %v: %w", err, asynq.SkipRetry)
	}
	jobID := payload.JobID
	log.Printf("[pipeline] job %s: delivery received", jobID)

	// Load
	job, err := o.store.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Printf("[pipeline] job %s: record gone, discarding delivery", jobID)
			return nil
		}
		return fmt.Errorf("load job %s: %w", jobID, err)
	}
	if job.Status.IsTerminal() {
		log.Printf("[pipeline] job %s: already %s, discarding duplicate delivery", jobID, job.Status)
		return nil
	}

	clips, err := o.store.GetClips(ctx, job.ClipIDs)
	if err != nil {
		return fmt.Errorf("load clips for job %s: %w", jobID, err)
	}

	total := len(job.ClipIDs)
	progress := model.NewJobProgress(job.ClipIDs)

	// Clips deleted between submission and processing fail individually.
	present := make(map[string]bool, len(clips))
	for _, c := range clips {
		present[c.ID] = true
	}
	for _, id := range job.ClipIDs {
		if !present[id] {
			progress.Fail(id, "clip no longer exists")
		}
	}

	// Transition to analyzing. A redelivered job may already be past this
	// status; persisting is skipped then, since writing an earlier status
	// would trip the store's monotonic guard. The work itself always reruns
	// from the top: per-job scratch state died with the previous worker.
	if stop, err := o.advance(ctx, job, model.JobStatusAnalyzing); stop {
		return err
	}
	o.publish(model.ProgressEvent{JobID: jobID, Stage: model.StageAnalyzing, ClipIndex: 0, Total: total})

	// Per-clip analysis
	analyses := o.analyzeClips(ctx, job, clips, progress)
	if ctx.Err() != nil {
		return fmt.Errorf("job %s interrupted during analysis: %w", jobID, ctx.Err())
	}

	if len(analyses) == 0 {
		return o.finalize(ctx, job, progress, nil)
	}

	// Translate mood + analyses into one filter spec per clip
	gradable := o.translate(ctx, job, clips, analyses, progress)
	if ctx.Err() != nil {
		return fmt.Errorf("job %s interrupted during translation: %w", jobID, ctx.Err())
	}

	if len(gradable) == 0 {
		return o.finalize(ctx, job, progress, nil)
	}

	// Transition to grading
	if stop, err := o.advance(ctx, job, model.JobStatusGrading); stop {
		return err
	}
	o.publish(model.ProgressEvent{JobID: jobID, Stage: model.StageGrading, ClipIndex: 0, Total: total})

	// Per-clip filter execution
	outputs := o.gradeClips(ctx, job, gradable, progress)
	if ctx.Err() != nil {
		return fmt.Errorf("job %s interrupted during grading: %w", jobID, ctx.Err())
	}

	return o.finalize(ctx, job, progress, outputs)
}

// analyzeClips runs the analysis stage in clip list order and returns the
// vectors of the clips that survived it. Individual failures are recorded
// and skipped; the job carries on with the analyzable subset.
func (o *Orchestrator) analyzeClips(ctx context.Context, job *model.Job, clips []model.Clip, progress *model.JobProgress) []model.ClipAnalysis {
	total := len(job.ClipIDs)
	analyses := make([]model.ClipAnalysis, 0, len(clips))

	for i, clip := range clips {
		if i > 0 {
			o.publish(model.ProgressEvent{JobID: job.ID, Stage: model.StageAnalyzing, ClipIndex: i, Total: total})
		}
		progress.SetStage(clip.ID, model.ClipStageAnalyzing)

		var result *model.ClipAnalysis
		err := o.retry.Do(ctx, func(ctx context.Context) error {
			callCtx, cancel := context.WithTimeout(ctx, o.analysisTimeout)
			defer cancel()
			var callErr error
			result, callErr = o.analysis.Analyze(callCtx, clip.ID, clip.StorageRef)
			return callErr
		})
		if err != nil {
			if ctx.Err() != nil {
				return analyses
			}
			log.Printf("[pipeline] job %s: analysis failed for clip %s: %v", job.ID, clip.ID, err)
			progress.Fail(clip.ID, fmt.Sprintf("analysis failed: %v", err))
			continue
		}

		result.ClipID = clip.ID
		progress.SetStage(clip.ID, model.ClipStageAnalyzed)
		analyses = append(analyses, *result)
	}
	return analyses
}

// gradedClip pairs a clip with the filter spec chosen for it.
type gradedClip struct {
	clip model.Clip
	spec string
}

// translate calls the Grading Advisor once with every successful analysis
// and matches the returned specs back to clips by id. A clip the advisor
// skipped, or answered with an empty spec, is dropped as a partial
// failure; spec entries for clip ids we never asked about are ignored.
// Advisor failure after its retry budget drops every analyzed clip, which
// fails the job at finalize.
func (o *Orchestrator) translate(ctx context.Context, job *model.Job, clips []model.Clip, analyses []model.ClipAnalysis, progress *model.JobProgress) []gradedClip {
	var filters []model.FilterAssignment
	err := o.retry.Do(ctx, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, o.advisorTimeout)
		defer cancel()
		var callErr error
		filters, callErr = o.advisor.Translate(callCtx, job.Mood, analyses)
		return callErr
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		log.Printf("[pipeline] job %s: grading advisor failed: %v", job.ID, err)
		for _, a := range analyses {
			progress.Fail(a.ClipID, fmt.Sprintf("grading advisor failed: %v", err))
		}
		return nil
	}

	analyzed := make(map[string]bool, len(analyses))
	for _, a := range analyses {
		analyzed[a.ClipID] = true
	}

	specs := make(map[string]string, len(filters))
	for _, f := range filters {
		if !analyzed[f.ClipID] {
			log.Printf("[pipeline] job %s: advisor returned spec for unknown clip %s, ignoring", job.ID, f.ClipID)
			continue
		}
		specs[f.ClipID] = f.FilterSpec
	}

	var out []gradedClip
	for _, clip := range clips {
		if !analyzed[clip.ID] {
			continue
		}
		spec, ok := specs[clip.ID]
		if !ok {
			log.Printf("[pipeline] job %s: advisor returned no filter for clip %s", job.ID, clip.ID)
			progress.Fail(clip.ID, "advisor returned no filter specification")
			continue
		}
		if spec == "" {
			log.Printf("[pipeline] job %s: advisor returned empty filter for clip %s", job.ID, clip.ID)
			progress.Fail(clip.ID, "advisor returned an empty filter specification")
			continue
		}
		out = append(out, gradedClip{clip: clip, spec: spec})
	}
	return out
}

// gradeClips runs filter execution for every clip that has a spec and
// returns the output references in clip list order.
func (o *Orchestrator) gradeClips(ctx context.Context, job *model.Job, gradable []gradedClip, progress *model.JobProgress) []string {
	total := len(job.ClipIDs)
	outputs := make([]string, 0, len(gradable))

	for i, g := range gradable {
		if i > 0 {
			o.publish(model.ProgressEvent{JobID: job.ID, Stage: model.StageGrading, ClipIndex: i, Total: total})
		}
		progress.SetStage(g.clip.ID, model.ClipStageGrading)
		outputKey := fmt.Sprintf("graded/%s/%s.mp4", job.ID, g.clip.ID)

		var outputRef string
		err := o.retry.Do(ctx, func(ctx context.Context) error {
			callCtx, cancel := context.WithTimeout(ctx, o.executorTimeout)
			defer cancel()
			var callErr error
			outputRef, callErr = o.executor.Grade(callCtx, g.clip.StorageRef, g.spec, outputKey)
			return callErr
		})
		if err != nil {
			if ctx.Err() != nil {
				return outputs
			}
			log.Printf("[pipeline] job %s: grading failed for clip %s: %v", job.ID, g.clip.ID, err)
			progress.Fail(g.clip.ID, fmt.Sprintf("grading failed: %v", err))
			continue
		}

		progress.SetStage(g.clip.ID, model.ClipStageGraded)
		outputs = append(outputs, outputRef)
	}
	return outputs
}

// finalize writes the terminal status. At least one graded output makes
// the job complete, with dropped clips enumerated in the error message;
// zero outputs fail it outright.
func (o *Orchestrator) finalize(ctx context.Context, job *model.Job, progress *model.JobProgress, outputs []string) error {
	total := len(job.ClipIDs)
	errMsg := summarizeFailures(progress.Failures())

	if len(outputs) > 0 {
		job.Status = model.JobStatusComplete
		job.OutputPaths = outputs
		job.ErrorMessage = errMsg
		if err := o.store.UpdateJob(ctx, job); err != nil {
			return o.storeFailure(job.ID, err)
		}
		o.publish(model.ProgressEvent{JobID: job.ID, Stage: model.StageComplete, Total: total})
		log.Printf("[pipeline] job %s: complete, %d/%d clips graded", job.ID, len(outputs), total)
		return nil
	}

	job.Status = model.JobStatusFailed
	job.OutputPaths = nil
	job.ErrorMessage = errMsg
	if err := o.store.UpdateJob(ctx, job); err != nil {
		return o.storeFailure(job.ID, err)
	}
	o.publish(model.ProgressEvent{JobID: job.ID, Stage: model.StageFailed, Total: total, Error: errMsg})
	log.Printf("[pipeline] job %s: failed, %s", job.ID, errMsg)
	return nil
}

// advance persists a forward status transition. A redelivered job can
// already be at or past next (the previous worker persisted the status,
// then died), in which case there is nothing to write and processing
// continues from where the records left off. stop means the caller must
// return err from ProcessTask: the job write failed or the record is gone.
func (o *Orchestrator) advance(ctx context.Context, job *model.Job, next model.JobStatus) (stop bool, err error) {
	if !job.Status.CanTransition(next) {
		log.Printf("[pipeline] job %s: already %s, resuming without status write", job.ID, job.Status)
		return false, nil
	}
	job.Status = next
	if err := o.store.UpdateJob(ctx, job); err != nil {
		return true, o.storeFailure(job.ID, err)
	}
	return false, nil
}

// storeFailure maps a failed job write to the right delivery outcome.
// A deleted job is acked as a no-op, a backward status transition is an
// invariant violation that must not be retried, anything else releases
// the lease so the queue redelivers.
func (o *Orchestrator) storeFailure(jobID string, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		log.Printf("[pipeline] job %s: deleted mid-flight, abandoning attempt", jobID)
		return nil
	case errors.Is(err, store.ErrStatusRegression):
		log.Printf("[pipeline] INVARIANT VIOLATION for job %s: %v", jobID, err)
		return fmt.Errorf("job %s invariant violation: %v: %w", jobID, err, asynq.SkipRetry)
	default:
		return fmt.Errorf("persist job %s: %w", jobID, err)
	}
}

func (o *Orchestrator) publish(event model.ProgressEvent) {
	if o.publisher != nil {
		o.publisher.Publish(event)
	}
}

func summarizeFailures(failures []model.ClipProgress) string {
	if len(failures) == 0 {
		return ""
	}
	parts := make([]string, 0, len(failures))
	for _, f := range failures {
		parts = append(parts, fmt.Sprintf("clip %s: %s", f.ClipID, f.Err))
	}
	return strings.Join(parts, "; ")
}
