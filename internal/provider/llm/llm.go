// Package llm builds the combined transcript + vision prompt and requests the
// final structured summary document.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Jan-H2M/vidsum/internal/domain/entity"
	"github.com/Jan-H2M/vidsum/pkg/client/openai"
)

const systemPrompt = "You are an analytical video analyst. Your goal is to create " +
	"clear video summaries with exact timestamps, chapters, and action items. You " +
	"combine audio content (transcript) with visual context (captions/objects/OCR) " +
	"to produce rich, compact results. Be factual, concise, and structure your " +
	"output strictly as valid JSON matching the requested schema."

type Summarizer struct {
	client *openai.Client
	model  string
}

func NewSummarizer(client *openai.Client, model string) *Summarizer {
	if model == "" {
		model = "gpt-4-turbo"
	}
	return &Summarizer{client: client, model: model}
}

// summaryPayload is the shape the model is asked to return. Any deviation
// from it fails the summarization step; partial summaries are not accepted.
type summaryPayload struct {
	TLDR          string                `json:"tldr"`
	KeyPoints     []string              `json:"key_points"`
	Chapters      []entity.Chapter      `json:"chapters"`
	ActionItems   []string              `json:"action_items"`
	Glossary      []entity.GlossaryItem `json:"glossary"`
	QA            []entity.QAItem       `json:"qa"`
	VisualMoments []entity.VisualMoment `json:"visual_moments"`
}

func (s *Summarizer) Generate(
	ctx context.Context,
	jobID string,
	transcript []entity.TranscriptSegment,
	captions []entity.VisionCaption,
	durationMs int64,
	language string,
) (*entity.Summary, error) {
	prompt, err := buildPrompt(transcript, captions, durationMs, language)
	if err != nil {
		return nil, err
	}

	content, err := s.client.ChatCompletion(ctx, openai.ChatRequest{
		Model: s.model,
		Messages: []openai.ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   4096,
		Temperature: 0.1,
	})
	if err != nil {
		return nil, fmt.Errorf("summary generation: %w", err)
	}

	var payload summaryPayload
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &payload); err != nil {
		return nil, fmt.Errorf("model returned non-conforming summary: %w", err)
	}

	return &entity.Summary{
		JobID:         jobID,
		TLDR:          payload.TLDR,
		KeyPoints:     orEmpty(payload.KeyPoints),
		Chapters:      payload.Chapters,
		ActionItems:   orEmpty(payload.ActionItems),
		Glossary:      payload.Glossary,
		QA:            payload.QA,
		VisualMoments: payload.VisualMoments,
		Sources: entity.SummarySources{
			TranscriptProvider: "OpenAI Whisper",
			VisionProvider:     "OpenAI GPT-4 Vision",
			OCRProvider:        "OpenAI GPT-4 Vision",
			LLM:                "OpenAI GPT-4",
		},
	}, nil
}

func buildPrompt(
	transcript []entity.TranscriptSegment,
	captions []entity.VisionCaption,
	durationMs int64,
	language string,
) (string, error) {
	transcriptJSON, err := json.MarshalIndent(transcript, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal transcript: %w", err)
	}
	visionJSON, err := json.MarshalIndent(captions, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal vision captions: %w", err)
	}

	return fmt.Sprintf(`Context:
- User goal: Get a video summary with TL;DR, key points, chapters with timestamps, action items, Q&A, and important visual moments (slide transitions, demos, charts, products shown).
- Video duration (ms): %d
- Transcript language: %s

Data:
TRANSCRIPT_SEGMENTS (JSON):
%s

VISION_CAPTIONS (JSON):
%s

Instructions:
1) Combine transcript + visual info.
2) Create "chapters" that logically segment the video (title + bullets).
3) Add "visual_moments" when visual analysis shows slides, products, screen demos, or charts; reference frameUrl if available.
4) "action_items": create tasks/next steps if the video is a briefing/meeting/tutorial.
5) "qa": formulate 5 relevant questions+answers someone would typically ask after watching the video, with timestamp if appropriate.
6) Use **short sentences** and **max 8 bullets per section**.
7) Respect **the JSON schema** exactly; provide no extra text outside the JSON.

Return only the JSON result.`, durationMs, language, transcriptJSON, visionJSON), nil
}

// stripCodeFence unwraps ```json fenced responses some models produce despite
// being asked for bare JSON.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
