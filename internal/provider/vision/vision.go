// Package vision captions keyframes with a multimodal model and derives
// object/label metadata from the caption text.
package vision

import (
	"context"
	"fmt"
	"strings"

	"github.com/Jan-H2M/vidsum/internal/domain/entity"
	"github.com/Jan-H2M/vidsum/pkg/client/openai"
)

const analyzePrompt = "Analyze this image and provide a detailed description. " +
	"Focus on: 1) What you see in the image, 2) Any text or writing visible, " +
	"3) Whether this appears to be a presentation slide, screen capture, chart, " +
	"diagram, or regular video frame. Be specific and factual."

const ocrPrompt = "Extract all text visible in this image. Return only the text " +
	"content, preserving line breaks and formatting where possible. If there is " +
	"no text, return an empty string."

type Model struct {
	client *openai.Client
	model  string
}

func NewModel(client *openai.Client, model string) *Model {
	if model == "" {
		model = "gpt-4o"
	}
	return &Model{client: client, model: model}
}

// Analyze captions one frame and derives objects, labels, and any text the
// model read directly from the image.
func (m *Model) Analyze(ctx context.Context, imageRef string) (entity.VisionAnalysis, error) {
	caption, err := m.ask(ctx, analyzePrompt, imageRef, 500)
	if err != nil {
		return entity.VisionAnalysis{}, fmt.Errorf("image analysis: %w", err)
	}

	caption = strings.TrimSpace(caption)
	return entity.VisionAnalysis{
		Caption: caption,
		Objects: ExtractObjects(caption),
		Labels:  ExtractLabels(caption),
		OCRText: ExtractTextFromCaption(caption),
	}, nil
}

// OCR runs a dedicated text-extraction pass over one frame.
func (m *Model) OCR(ctx context.Context, imageRef string) (string, error) {
	text, err := m.ask(ctx, ocrPrompt, imageRef, 1000)
	if err != nil {
		return "", fmt.Errorf("ocr extraction: %w", err)
	}
	return strings.TrimSpace(text), nil
}

func (m *Model) ask(ctx context.Context, prompt, imageRef string, maxTokens int) (string, error) {
	return m.client.ChatCompletion(ctx, openai.ChatRequest{
		Model: m.model,
		Messages: []openai.ChatMessage{
			{
				Role: "user",
				Content: []any{
					openai.Text(prompt),
					openai.Image(imageRef),
				},
			},
		},
		MaxTokens: maxTokens,
	})
}

var objectKeywords = []string{
	"person", "people", "man", "woman", "chart", "graph", "table", "slide",
	"screen", "computer", "phone", "car", "building", "text", "logo", "button",
	"diagram", "presentation", "whiteboard", "blackboard",
}

// ExtractObjects lists known object keywords mentioned in the caption.
func ExtractObjects(caption string) []string {
	lower := strings.ToLower(caption)
	var objects []string
	for _, keyword := range objectKeywords {
		if strings.Contains(lower, keyword) {
			objects = append(objects, keyword)
		}
	}
	return objects
}

// ExtractLabels classifies the frame from its caption. The text-heavy and
// presentation labels trigger the OCR pass downstream.
func ExtractLabels(caption string) []string {
	lower := strings.ToLower(caption)
	var labels []string

	if strings.Contains(lower, "slide") || strings.Contains(lower, "presentation") {
		labels = append(labels, "presentation")
	}
	if strings.Contains(lower, "screen") || strings.Contains(lower, "computer") {
		labels = append(labels, "screen-capture")
	}
	if strings.Contains(lower, "chart") || strings.Contains(lower, "graph") {
		labels = append(labels, "data-visualization")
	}
	if strings.Contains(lower, "text") || strings.Contains(lower, "writing") {
		labels = append(labels, "text-heavy")
	}
	if strings.Contains(lower, "diagram") || strings.Contains(lower, "flowchart") {
		labels = append(labels, "diagram")
	}
	return labels
}

// ExtractTextFromCaption pulls text the model quoted or described while
// captioning, so obvious on-screen text is captured without a separate pass.
func ExtractTextFromCaption(caption string) string {
	var quoted []string
	rest := caption
	for {
		start := strings.IndexByte(rest, '"')
		if start < 0 {
			break
		}
		end := strings.IndexByte(rest[start+1:], '"')
		if end < 0 {
			break
		}
		quoted = append(quoted, rest[start+1:start+1+end])
		rest = rest[start+end+2:]
	}
	if len(quoted) > 0 {
		return strings.Join(quoted, " ")
	}
	return ""
}
