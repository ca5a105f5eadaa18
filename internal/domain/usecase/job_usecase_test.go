package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jan-H2M/vidsum/internal/domain/entity"
	"github.com/Jan-H2M/vidsum/internal/domain/errs"
	"github.com/Jan-H2M/vidsum/internal/repository/artifact"
)

func newTestJobUseCase() (*JobUseCase, *artifact.Store, *recordingQueue) {
	store := artifact.NewStore(nil)
	queue := &recordingQueue{}
	return NewJobUseCase(store, queue, nil), store, queue
}

func TestIngestCreatesJobAndEnqueuesTranscription(t *testing.T) {
	ctx := context.Background()
	u, store, queue := newTestJobUseCase()

	job, err := u.Ingest(ctx, "https://example.com/talk.mp4")
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, entity.StatusQueued, job.Status)
	assert.Equal(t, "https://example.com/talk.mp4", job.URL)

	stored, err := store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job, stored)

	next, ok := queue.pop()
	require.True(t, ok)
	assert.Equal(t, entity.StepTranscription, next.msg.Step)
	assert.Equal(t, job.ID, next.msg.JobID)
	assert.Equal(t, job.URL, next.msg.URL)
	assert.Equal(t, 0, next.msg.RetryCount)
	assert.Equal(t, time.Duration(0), next.delay)
}

func TestIngestRejectsInvalidURL(t *testing.T) {
	u, _, queue := newTestJobUseCase()

	for _, raw := range []string{"", "not a url", "ftp://example.com/x"} {
		_, err := u.Ingest(context.Background(), raw)
		require.Error(t, err, "url: %q", raw)
		assert.Equal(t, 400, errs.HTTPStatus(err))
		assert.Equal(t, "Valid URL is required", errs.PublicMessage(err))
	}
	assert.Zero(t, queue.pending(), "invalid requests must not enqueue work")
}

func TestStatusUnknownJob(t *testing.T) {
	u, _, _ := newTestJobUseCase()

	_, err := u.Status(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, 404, errs.HTTPStatus(err))
}

func TestStatusProgressByStatus(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		status       entity.JobStatus
		wantProgress int
		wantStep     string
	}{
		{entity.StatusQueued, 0, "In queue"},
		{entity.StatusProcessing, 25, "Processing video"},
		{entity.StatusSummarizing, 85, "Generating summary"},
		{entity.StatusDone, 100, "Complete"},
		{entity.StatusError, 0, "Error occurred"},
	}

	for _, tt := range tests {
		u, store, _ := newTestJobUseCase()
		job := entity.NewJob("job-1", "https://example.com/talk.mp4")
		job.Status = tt.status
		require.NoError(t, store.SaveJob(ctx, job))

		progress, err := u.Status(ctx, "job-1")
		require.NoError(t, err)
		assert.Equal(t, tt.wantProgress, progress.Progress, "status %s", tt.status)
		assert.Equal(t, tt.wantStep, progress.CurrentStep, "status %s", tt.status)
		assert.Len(t, progress.Steps, 4)
	}
}

func TestStatusStepTable(t *testing.T) {
	ctx := context.Background()
	u, store, _ := newTestJobUseCase()

	job := entity.NewJob("job-1", "https://example.com/talk.mp4")
	job.Status = entity.StatusSummarizing
	require.NoError(t, store.SaveJob(ctx, job))

	progress, err := u.Status(ctx, "job-1")
	require.NoError(t, err)
	require.Len(t, progress.Steps, 4)
	assert.Equal(t, entity.StepCompleted, progress.Steps[0].Status)
	assert.Equal(t, entity.StepCompleted, progress.Steps[1].Status)
	assert.Equal(t, entity.StepCompleted, progress.Steps[2].Status)
	assert.Equal(t, entity.StepProcessing, progress.Steps[3].Status)
}

func TestStatusEstimatedTimeRemaining(t *testing.T) {
	ctx := context.Background()
	u, store, _ := newTestJobUseCase()

	job := entity.NewJob("job-1", "https://example.com/talk.mp4")
	require.NoError(t, store.SaveJob(ctx, job))

	progress, err := u.Status(ctx, "job-1")
	require.NoError(t, err)
	require.NotNil(t, progress.EstimatedTimeRemaining)
	assert.Equal(t, int64(300_000), *progress.EstimatedTimeRemaining)

	require.NoError(t, store.UpdateJobStatus(ctx, "job-1", entity.StatusDone))
	progress, err = u.Status(ctx, "job-1")
	require.NoError(t, err)
	require.NotNil(t, progress.EstimatedTimeRemaining)
	assert.Equal(t, int64(0), *progress.EstimatedTimeRemaining)

	job.Status = entity.StatusError
	require.NoError(t, store.SaveJob(ctx, job))
	progress, err = u.Status(ctx, "job-1")
	require.NoError(t, err)
	assert.Nil(t, progress.EstimatedTimeRemaining)
}

func TestSummaryNotReadyWhileRunning(t *testing.T) {
	ctx := context.Background()
	u, store, _ := newTestJobUseCase()

	job := entity.NewJob("job-1", "https://example.com/talk.mp4")
	job.Status = entity.StatusProcessing
	require.NoError(t, store.SaveJob(ctx, job))

	_, err := u.Summary(ctx, "job-1")
	require.Error(t, err)
	assert.Equal(t, 202, errs.HTTPStatus(err))
	assert.Equal(t, "Job not complete. Current status: processing", errs.PublicMessage(err))
}

func TestSummaryReturnsStoredDocument(t *testing.T) {
	ctx := context.Background()
	u, store, _ := newTestJobUseCase()

	job := entity.NewJob("job-1", "https://example.com/talk.mp4")
	job.Status = entity.StatusDone
	require.NoError(t, store.SaveJob(ctx, job))
	require.NoError(t, store.SaveSummary(ctx, "job-1", &entity.Summary{JobID: "job-1", TLDR: "done"}))

	summary, err := u.Summary(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "done", summary.TLDR)
}

func TestSummaryMissingArtifactIs404(t *testing.T) {
	ctx := context.Background()
	u, store, _ := newTestJobUseCase()

	job := entity.NewJob("job-1", "https://example.com/talk.mp4")
	job.Status = entity.StatusDone
	require.NoError(t, store.SaveJob(ctx, job))

	_, err := u.Summary(ctx, "job-1")
	require.Error(t, err)
	assert.Equal(t, 404, errs.HTTPStatus(err))
}

func TestCleanupRemovesJob(t *testing.T) {
	ctx := context.Background()
	u, store, _ := newTestJobUseCase()

	require.NoError(t, store.SaveJob(ctx, entity.NewJob("job-1", "https://example.com/talk.mp4")))
	u.Cleanup(ctx, "job-1")

	_, err := store.GetJob(ctx, "job-1")
	assert.ErrorIs(t, err, artifact.ErrNotFound)
}
