package model

// CreateJobRequest starts a grading job over previously uploaded clips.
type CreateJobRequest struct {
	Mood     string   `json:"mood" validate:"required,oneof=cinematic chill vibrant vintage moody dreamy"`
	ClipIDs  []string `json:"clip_ids" validate:"required,min=1,max=50,dive,required"`
	Priority string   `json:"priority" validate:"omitempty,oneof=high default low"`
}

// CreateJobResponse acknowledges an accepted grading job.
type CreateJobResponse struct {
	JobID  string    `json:"job_id"`
	Status JobStatus `json:"status"`
}

// UploadClipRequest carries the metadata fields of a multipart clip upload.
type UploadClipRequest struct {
	Duration  float64 `json:"duration" validate:"omitempty,min=0"`
	Width     int     `json:"width" validate:"omitempty,min=0"`
	Height    int     `json:"height" validate:"omitempty,min=0"`
	FrameRate float64 `json:"frame_rate" validate:"omitempty,min=0"`
}
