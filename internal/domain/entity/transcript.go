package entity

// TranscriptSegment is one sentence-sized slice of spoken audio.
// Start and End are milliseconds from the beginning of the video.
type TranscriptSegment struct {
	Start   int64  `json:"start"`
	End     int64  `json:"end"`
	Text    string `json:"text"`
	Speaker string `json:"speaker,omitempty"`
}
