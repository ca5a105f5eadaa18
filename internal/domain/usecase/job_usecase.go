package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/Jan-H2M/vidsum/internal/domain/entity"
	"github.com/Jan-H2M/vidsum/internal/domain/errs"
	"github.com/Jan-H2M/vidsum/internal/metrics"
	"github.com/Jan-H2M/vidsum/internal/repository/artifact"
	"github.com/Jan-H2M/vidsum/pkg/utils"
)

// JobUseCase serves the public polling API: ingestion, status, summary
// retrieval, and cleanup.
type JobUseCase struct {
	Repo    ArtifactRepo
	Queue   Dispatcher
	Metrics *metrics.Collector
}

func NewJobUseCase(repo ArtifactRepo, queue Dispatcher, collector *metrics.Collector) *JobUseCase {
	return &JobUseCase{Repo: repo, Queue: queue, Metrics: collector}
}

// Ingest validates the URL, creates the job record, and kicks off the
// pipeline with a transcription message.
func (u *JobUseCase) Ingest(ctx context.Context, url string) (*entity.Job, error) {
	if !utils.IsValidURL(url) {
		return nil, errs.Validation("Valid URL is required")
	}

	job := entity.NewJob(uuid.New().String(), url)
	if err := u.Repo.SaveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("save job: %w", err)
	}

	msg := entity.StepMessage{JobID: job.ID, Step: entity.StepTranscription, URL: url}
	if _, err := u.Queue.Enqueue(ctx, msg, 0); err != nil {
		return nil, fmt.Errorf("enqueue transcription: %w", err)
	}

	u.Metrics.JobIngested()
	log.Printf("ingested job %s for %s", job.ID, url)
	return job, nil
}

// Status builds the polling view for one job.
func (u *JobUseCase) Status(ctx context.Context, jobID string) (*entity.JobProgress, error) {
	job, err := u.Repo.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, artifact.ErrNotFound) {
			return nil, errs.NotFound("Job")
		}
		return nil, err
	}

	return &entity.JobProgress{
		JobID:                  job.ID,
		Status:                 job.Status,
		Progress:               progressFor(job.Status),
		CurrentStep:            currentStepFor(job.Status),
		Steps:                  stepsFor(job.Status),
		EstimatedTimeRemaining: estimatedTimeRemaining(job.Status, job.CreatedAt),
	}, nil
}

// Summary returns the terminal artifact, or NotReady while the pipeline is
// still running.
func (u *JobUseCase) Summary(ctx context.Context, jobID string) (*entity.Summary, error) {
	job, err := u.Repo.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, artifact.ErrNotFound) {
			return nil, errs.NotFound("Job")
		}
		return nil, err
	}

	if job.Status != entity.StatusDone {
		return nil, errs.NotReady(fmt.Sprintf("Job not complete. Current status: %s", job.Status))
	}

	summary, err := u.Repo.GetSummary(ctx, jobID)
	if err != nil {
		if errors.Is(err, artifact.ErrNotFound) {
			return nil, errs.NotFound("Summary")
		}
		return nil, err
	}
	return summary, nil
}

// Cleanup removes all artifacts for a job. Best effort.
func (u *JobUseCase) Cleanup(ctx context.Context, jobID string) {
	u.Repo.CleanupJob(ctx, jobID)
}

// progressFor is a fixed lookup keyed by status.
func progressFor(status entity.JobStatus) int {
	switch status {
	case entity.StatusProcessing:
		return 25
	case entity.StatusSummarizing:
		return 85
	case entity.StatusDone:
		return 100
	default: // queued, error
		return 0
	}
}

func currentStepFor(status entity.JobStatus) string {
	switch status {
	case entity.StatusQueued:
		return "In queue"
	case entity.StatusProcessing:
		return "Processing video"
	case entity.StatusSummarizing:
		return "Generating summary"
	case entity.StatusDone:
		return "Complete"
	case entity.StatusError:
		return "Error occurred"
	default:
		return "Unknown"
	}
}

func stepsFor(status entity.JobStatus) []entity.ProcessingStep {
	steps := []entity.ProcessingStep{
		{Step: "Transcription", Status: entity.StepPending},
		{Step: "Keyframe Extraction", Status: entity.StepPending},
		{Step: "Visual Analysis", Status: entity.StepPending},
		{Step: "AI Summarization", Status: entity.StepPending},
	}

	switch status {
	case entity.StatusProcessing:
		steps[0].Status = entity.StepProcessing
	case entity.StatusSummarizing:
		steps[0].Status = entity.StepCompleted
		steps[1].Status = entity.StepCompleted
		steps[2].Status = entity.StepCompleted
		steps[3].Status = entity.StepProcessing
	case entity.StatusDone:
		for i := range steps {
			steps[i].Status = entity.StepCompleted
		}
	case entity.StatusError:
		steps[0].Status = entity.StepErrored
	}
	return steps
}

func estimatedTimeRemaining(status entity.JobStatus, createdAt int64) *int64 {
	elapsed := time.Now().UnixMilli() - createdAt

	var estimate int64
	switch status {
	case entity.StatusQueued:
		estimate = 300_000
	case entity.StatusProcessing:
		estimate = max64(180_000-elapsed, 30_000)
	case entity.StatusSummarizing:
		estimate = max64(60_000-elapsed, 10_000)
	case entity.StatusDone:
		estimate = 0
	default:
		return nil
	}
	return &estimate
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
