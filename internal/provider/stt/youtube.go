package stt

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Jan-H2M/vidsum/internal/domain/entity"
	"github.com/Jan-H2M/vidsum/pkg/utils"
)

// CaptionFetcher pulls pre-existing captions from YouTube's timedtext
// endpoint, avoiding a speech-to-text run when the provider already has a
// transcript. Best effort: any failure reports no captions, not an error.
type CaptionFetcher struct {
	http     *http.Client
	endpoint string
	language string
}

func NewCaptionFetcher() *CaptionFetcher {
	return &CaptionFetcher{
		http:     &http.Client{Timeout: 30 * time.Second},
		endpoint: "https://video.google.com/timedtext",
		language: "en",
	}
}

type timedText struct {
	Texts []struct {
		Start float64 `xml:"start,attr"`
		Dur   float64 `xml:"dur,attr"`
		Body  string  `xml:",chardata"`
	} `xml:"text"`
}

// FetchCaptions returns (nil, nil) when the video has no usable captions.
func (f *CaptionFetcher) FetchCaptions(ctx context.Context, videoURL string) ([]entity.TranscriptSegment, error) {
	videoID := utils.YouTubeVideoID(videoURL)
	if videoID == "" {
		return nil, nil
	}

	q := url.Values{}
	q.Set("lang", f.language)
	q.Set("v", videoID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build caption request: %w", err)
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil || len(body) == 0 {
		return nil, nil
	}

	var doc timedText
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, nil
	}

	segments := make([]entity.TranscriptSegment, 0, len(doc.Texts))
	for _, t := range doc.Texts {
		start := int64(t.Start * 1000)
		segments = append(segments, entity.TranscriptSegment{
			Start: start,
			End:   start + int64(t.Dur*1000),
			Text:  html.UnescapeString(t.Body),
		})
	}
	if len(segments) == 0 {
		return nil, nil
	}
	return segments, nil
}
