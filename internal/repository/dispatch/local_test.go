package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jan-H2M/vidsum/internal/domain/entity"
)

type recordingProcessor struct {
	mu       sync.Mutex
	received []entity.StepMessage
	notify   chan struct{}
}

func newRecordingProcessor() *recordingProcessor {
	return &recordingProcessor{notify: make(chan struct{}, 16)}
}

func (r *recordingProcessor) ProcessStep(_ context.Context, msg entity.StepMessage) {
	r.mu.Lock()
	r.received = append(r.received, msg)
	r.mu.Unlock()
	r.notify <- struct{}{}
}

func (r *recordingProcessor) wait(t *testing.T) entity.StepMessage {
	t.Helper()
	select {
	case <-r.notify:
	case <-time.After(2 * time.Second):
		t.Fatal("no message processed in time")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.received[len(r.received)-1]
}

func TestLocalEnqueueRunsAsynchronously(t *testing.T) {
	proc := newRecordingProcessor()
	local := NewLocal()
	local.Bind(proc)

	msg := entity.StepMessage{JobID: "job-1", Step: entity.StepTranscription, URL: "https://example.com/v.mp4"}
	id, err := local.Enqueue(context.Background(), msg, 0)
	require.NoError(t, err)
	assert.Contains(t, id, "job-1-transcription")

	got := proc.wait(t)
	assert.Equal(t, msg, got)
}

func TestLocalEnqueueHonorsDelay(t *testing.T) {
	proc := newRecordingProcessor()
	local := NewLocal()
	local.Bind(proc)

	start := time.Now()
	_, err := local.Enqueue(context.Background(), entity.StepMessage{
		JobID: "job-1",
		Step:  entity.StepVision,
	}, 50*time.Millisecond)
	require.NoError(t, err)

	proc.wait(t)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestLocalEnqueueRequiresBoundProcessor(t *testing.T) {
	local := NewLocal()
	_, err := local.Enqueue(context.Background(), entity.StepMessage{JobID: "job-1", Step: entity.StepVision}, 0)
	assert.Error(t, err)
}
