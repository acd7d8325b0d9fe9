package model

// Job status. Transitions are strictly forward: queued -> analyzing ->
// grading -> complete, or to failed from any non-terminal status.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusAnalyzing JobStatus = "analyzing"
	JobStatusGrading   JobStatus = "grading"
	JobStatusComplete  JobStatus = "complete"
	JobStatusFailed    JobStatus = "failed"
)

var statusRank = map[JobStatus]int{
	JobStatusQueued:    0,
	JobStatusAnalyzing: 1,
	JobStatusGrading:   2,
	JobStatusComplete:  3,
	JobStatusFailed:    3,
}

// IsTerminal reports whether no further transition is allowed.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusComplete || s == JobStatusFailed
}

// CanTransition reports whether moving from s to next keeps the status
// monotonic. Failed is reachable from any non-terminal status.
func (s JobStatus) CanTransition(next JobStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if next == JobStatusFailed {
		return true
	}
	return statusRank[next] > statusRank[s]
}

// Mood is the aesthetic target a job grades its clips toward.
type Mood string

const (
	MoodCinematic Mood = "cinematic"
	MoodChill     Mood = "chill"
	MoodVibrant   Mood = "vibrant"
	MoodVintage   Mood = "vintage"
	MoodMoody     Mood = "moody"
	MoodDreamy    Mood = "dreamy"
)

var ValidMoods = []Mood{
	MoodCinematic, MoodChill, MoodVibrant,
	MoodVintage, MoodMoody, MoodDreamy,
}

// IsValid reports whether m is one of the supported moods.
func (m Mood) IsValid() bool {
	for _, v := range ValidMoods {
		if m == v {
			return true
		}
	}
	return false
}

// ClipStage is the per-clip processing state inside one job attempt.
// It is never persisted; it lives in the worker-local JobProgress.
type ClipStage string

const (
	ClipStagePending   ClipStage = "pending"
	ClipStageAnalyzing ClipStage = "analyzing"
	ClipStageAnalyzed  ClipStage = "analyzed"
	ClipStageGrading   ClipStage = "grading"
	ClipStageGraded    ClipStage = "graded"
	ClipStageFailed    ClipStage = "failed"
)
