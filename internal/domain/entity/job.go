package entity

import "time"

type JobStatus string

const (
	StatusQueued      JobStatus = "queued"
	StatusProcessing  JobStatus = "processing"
	StatusSummarizing JobStatus = "summarizing"
	StatusDone        JobStatus = "done"
	StatusError       JobStatus = "error"
)

// Job is the mutable state document for one video analysis request.
// Timestamps are unix milliseconds to match the stored JSON layout.
type Job struct {
	ID        string    `json:"id"`
	Status    JobStatus `json:"status"`
	URL       string    `json:"url"`
	CreatedAt int64     `json:"createdAt"`
	UpdatedAt int64     `json:"updatedAt"`
	Duration  int64     `json:"duration,omitempty"` // video duration in ms, set by transcription
	Language  string    `json:"language,omitempty"` // set by transcription
	Error     string    `json:"error,omitempty"`    // set only when Status == StatusError
}

func NewJob(id, url string) *Job {
	now := time.Now().UnixMilli()
	return &Job{
		ID:        id,
		Status:    StatusQueued,
		URL:       url,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Terminal reports whether the job can no longer change state.
func (j *Job) Terminal() bool {
	return j.Status == StatusDone || j.Status == StatusError
}

type StepState string

const (
	StepPending    StepState = "pending"
	StepProcessing StepState = "processing"
	StepCompleted  StepState = "completed"
	StepErrored    StepState = "error"
)

type ProcessingStep struct {
	Step   string    `json:"step"`
	Status StepState `json:"status"`
}

// JobProgress is the polling view returned by GET /status.
type JobProgress struct {
	JobID                 string           `json:"jobId"`
	Status                JobStatus        `json:"status"`
	Progress              int              `json:"progress"`
	CurrentStep           string           `json:"currentStep"`
	Steps                 []ProcessingStep `json:"steps"`
	EstimatedTimeRemaining *int64          `json:"estimatedTimeRemaining,omitempty"`
}
