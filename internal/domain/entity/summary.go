package entity

type Chapter struct {
	Title   string   `json:"title"`
	Start   int64    `json:"start"`
	End     int64    `json:"end"`
	Bullets []string `json:"bullets"`
}

type VisualMoment struct {
	Timestamp   int64  `json:"timestamp"`
	Title       string `json:"title"`
	Description string `json:"description"`
	FrameURL    string `json:"frameUrl,omitempty"`
}

type QAItem struct {
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	Timestamp *int64 `json:"timestamp,omitempty"`
}

type GlossaryItem struct {
	Term        string `json:"term"`
	Explanation string `json:"explanation"`
}

type SummarySources struct {
	TranscriptProvider string `json:"transcriptProvider"`
	VisionProvider     string `json:"visionProvider"`
	OCRProvider        string `json:"ocrProvider,omitempty"`
	LLM                string `json:"llm"`
}

// Summary is the terminal artifact of a successful job.
type Summary struct {
	JobID         string         `json:"jobId"`
	TLDR          string         `json:"tldr"`
	KeyPoints     []string       `json:"key_points"`
	Chapters      []Chapter      `json:"chapters"`
	ActionItems   []string       `json:"action_items"`
	Glossary      []GlossaryItem `json:"glossary,omitempty"`
	QA            []QAItem       `json:"qa"`
	VisualMoments []VisualMoment `json:"visual_moments"`
	Sources       SummarySources `json:"sources"`
}
