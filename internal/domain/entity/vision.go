package entity

// MaxKeyframes caps how many frames are sampled from a single video.
const MaxKeyframes = 12

// VisionCaption describes one extracted keyframe and what the vision model
// saw in it. Before vision analysis runs, only Timestamp and ImageRef are set.
type VisionCaption struct {
	Timestamp int64    `json:"timestamp"` // keyframe time in ms
	ImageRef  string   `json:"imageRef"`  // artifact store reference
	Caption   string   `json:"caption"`
	Objects   []string `json:"objects,omitempty"`
	Labels    []string `json:"labels,omitempty"`
	OCRText   string   `json:"ocrText,omitempty"`
}

// VisionAnalysis is a single model pass over one frame.
type VisionAnalysis struct {
	Caption string
	Objects []string
	Labels  []string
	OCRText string
}

// TextBearing reports whether the frame was labeled as likely containing
// readable text, which triggers the dedicated OCR pass.
func (c VisionCaption) TextBearing() bool {
	for _, l := range c.Labels {
		if l == "text-heavy" || l == "presentation" {
			return true
		}
	}
	return false
}
