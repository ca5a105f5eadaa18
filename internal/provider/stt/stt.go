// Package stt turns a video's audio into an ordered transcript, either by
// fetching pre-existing YouTube captions or by running speech-to-text with
// word-level timestamps.
package stt

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Jan-H2M/vidsum/internal/domain/entity"
	"github.com/Jan-H2M/vidsum/pkg/client/openai"
)

// MergeGapMs is the pause threshold below which adjacent word entries are
// merged into one sentence-sized segment.
const MergeGapMs = 2000

type Whisper struct {
	client *openai.Client
	model  string
	http   *http.Client
}

func NewWhisper(client *openai.Client, model string) *Whisper {
	if model == "" {
		model = "whisper-1"
	}
	return &Whisper{
		client: client,
		model:  model,
		http:   &http.Client{Timeout: 5 * time.Minute},
	}
}

// Transcribe downloads the audio stream and submits it for transcription.
// Returns merged segments, the detected language, and the duration in ms.
func (w *Whisper) Transcribe(ctx context.Context, audioURL string) ([]entity.TranscriptSegment, string, int64, error) {
	audio, err := w.download(ctx, audioURL)
	if err != nil {
		return nil, "", 0, err
	}

	result, err := w.client.TranscribeAudio(ctx, w.model, "audio.mp3", audio)
	if err != nil {
		return nil, "", 0, fmt.Errorf("transcription failed: %w", err)
	}
	if len(result.Words) == 0 {
		return nil, "", 0, fmt.Errorf("no word-level timestamps received")
	}

	segments := make([]entity.TranscriptSegment, 0, len(result.Words))
	for _, word := range result.Words {
		segments = append(segments, entity.TranscriptSegment{
			Start: int64(word.Start * 1000),
			End:   int64(word.End * 1000),
			Text:  word.Word,
		})
	}

	language := result.Language
	if language == "" {
		language = "en"
	}
	return MergeSegmentsByPause(segments), language, int64(result.Duration * 1000), nil
}

func (w *Whisper) download(ctx context.Context, audioURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, audioURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build audio request: %w", err)
	}
	resp, err := w.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download audio: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download audio: unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// MergeSegmentsByPause concatenates adjacent segments whenever the gap
// between one segment's end and the next's start is below MergeGapMs. Merged
// text keeps word order with a single separating space, and the merged
// segment's end extends to the last member's end.
func MergeSegmentsByPause(segments []entity.TranscriptSegment) []entity.TranscriptSegment {
	if len(segments) == 0 {
		return nil
	}

	merged := make([]entity.TranscriptSegment, 0, len(segments))
	current := segments[0]

	for _, segment := range segments[1:] {
		if segment.Start-current.End < MergeGapMs {
			current.Text += " " + segment.Text
			current.End = segment.End
		} else {
			merged = append(merged, current)
			current = segment
		}
	}

	return append(merged, current)
}
