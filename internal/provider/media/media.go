// Package media shells out to yt-dlp and ffmpeg for stream resolution and
// frame extraction. Both tools must be on PATH unless overridden.
package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/Jan-H2M/vidsum/pkg/utils"
)

type Extractor struct {
	FFmpegPath string
	YtDlpPath  string

	mu      sync.Mutex
	streams map[string]string // video URL -> resolved direct stream URL
}

func NewExtractor(ffmpegPath, ytDlpPath string) *Extractor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ytDlpPath == "" {
		ytDlpPath = "yt-dlp"
	}
	return &Extractor{
		FFmpegPath: ffmpegPath,
		YtDlpPath:  ytDlpPath,
		streams:    make(map[string]string),
	}
}

// AudioURL resolves a direct audio-only stream URL for the video.
func (e *Extractor) AudioURL(ctx context.Context, videoURL string) (string, error) {
	out, err := e.runYtDlp(ctx, "-f", "bestaudio", "-g", videoURL)
	if err != nil {
		return "", fmt.Errorf("resolve audio stream: %w", err)
	}
	return out, nil
}

// Frame extracts a single JPEG frame at the given offset. For hosted videos
// the direct stream URL is resolved once and cached for subsequent frames of
// the same video.
func (e *Extractor) Frame(ctx context.Context, videoURL string, timestampMs int64) ([]byte, error) {
	input := videoURL
	if utils.IsYouTubeURL(videoURL) {
		stream, err := e.streamURL(ctx, videoURL)
		if err != nil {
			return nil, err
		}
		input = stream
	}

	seconds := float64(timestampMs) / 1000.0
	args := []string{
		"-ss", fmt.Sprintf("%.3f", seconds),
		"-i", input,
		"-frames:v", "1",
		"-q:v", "2",
		"-f", "image2",
		"pipe:1",
	}

	cmd := exec.CommandContext(ctx, e.FFmpegPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg frame at %dms: %w (%s)", timestampMs, err, lastLine(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg produced no frame at %dms", timestampMs)
	}
	return stdout.Bytes(), nil
}

func (e *Extractor) streamURL(ctx context.Context, videoURL string) (string, error) {
	e.mu.Lock()
	cached, ok := e.streams[videoURL]
	e.mu.Unlock()
	if ok {
		return cached, nil
	}

	out, err := e.runYtDlp(ctx, "-f", "best[ext=mp4]/best", "-g", videoURL)
	if err != nil {
		return "", fmt.Errorf("resolve video stream: %w", err)
	}

	e.mu.Lock()
	e.streams[videoURL] = out
	e.mu.Unlock()
	return out, nil
}

func (e *Extractor) runYtDlp(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, e.YtDlpPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("yt-dlp: %w (%s)", err, lastLine(stderr.String()))
	}
	out := strings.TrimSpace(stdout.String())
	if out == "" {
		return "", fmt.Errorf("yt-dlp returned no output")
	}
	// -g may print one URL per line; the first is the selected format.
	if i := strings.IndexByte(out, '\n'); i > 0 {
		out = out[:i]
	}
	return out, nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
