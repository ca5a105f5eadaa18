package entity

type Step string

const (
	StepTranscription Step = "transcription"
	StepKeyframes     Step = "keyframes"
	StepVision        Step = "vision"
	StepSummarization Step = "summarization"
)

// StepMessage is the unit of dispatch: one execution attempt of one pipeline
// step for one job. URL is carried only for steps reading the source video
// directly (transcription, keyframes).
type StepMessage struct {
	JobID      string `json:"jobId"`
	Step       Step   `json:"step"`
	URL        string `json:"url,omitempty"`
	RetryCount int    `json:"retryCount"`
}

func (s Step) Valid() bool {
	switch s {
	case StepTranscription, StepKeyframes, StepVision, StepSummarization:
		return true
	default:
		return false
	}
}
