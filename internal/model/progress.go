package model

// Progress event stages. These track the job status names plus per-clip
// updates within the analyzing and grading phases.
const (
	StageAnalyzing = "analyzing"
	StageGrading   = "grading"
	StageComplete  = "complete"
	StageFailed    = "failed"
)

// ProgressEvent is published after every sub-step of job processing.
// Delivery to observers is best-effort and at-most-once; per-job ordering
// follows emission order.
type ProgressEvent struct {
	JobID     string `json:"job_id"`
	Stage     string `json:"stage"`
	ClipIndex int    `json:"clip_index"`
	Total     int    `json:"total"`
	Error     string `json:"error,omitempty"`
}

// ClipProgress tracks one clip's stage inside a running job attempt.
type ClipProgress struct {
	ClipID string
	Stage  ClipStage
	Err    string
}

// JobProgress is the worker-local scratch state for one job attempt.
// It is created when processing begins and discarded once the job reaches
// a terminal status; nothing in it is shared across workers.
type JobProgress struct {
	clips []ClipProgress
	index map[string]int
}

// NewJobProgress initializes per-clip tracking in clip list order.
func NewJobProgress(clipIDs []string) *JobProgress {
	p := &JobProgress{
		clips: make([]ClipProgress, len(clipIDs)),
		index: make(map[string]int, len(clipIDs)),
	}
	for i, id := range clipIDs {
		p.clips[i] = ClipProgress{ClipID: id, Stage: ClipStagePending}
		p.index[id] = i
	}
	return p
}

// SetStage moves a clip to the given stage.
func (p *JobProgress) SetStage(clipID string, stage ClipStage) {
	if i, ok := p.index[clipID]; ok {
		p.clips[i].Stage = stage
	}
}

// Fail marks a clip as terminally failed for this attempt.
func (p *JobProgress) Fail(clipID, reason string) {
	if i, ok := p.index[clipID]; ok {
		p.clips[i].Stage = ClipStageFailed
		p.clips[i].Err = reason
	}
}

// Stage returns a clip's current stage.
func (p *JobProgress) Stage(clipID string) ClipStage {
	if i, ok := p.index[clipID]; ok {
		return p.clips[i].Stage
	}
	return ClipStagePending
}

// Failures returns the failed clips in clip list order.
func (p *JobProgress) Failures() []ClipProgress {
	var out []ClipProgress
	for _, c := range p.clips {
		if c.Stage == ClipStageFailed {
			out = append(out, c)
		}
	}
	return out
}

// CountStage returns how many clips are currently in the given stage.
func (p *JobProgress) CountStage(stage ClipStage) int {
	n := 0
	for _, c := range p.clips {
		if c.Stage == stage {
			n++
		}
	}
	return n
}
