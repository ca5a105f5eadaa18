package artifact

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/Jan-H2M/vidsum/internal/domain/entity"
)

// Artifact key layout, stable across backends.
func jobKey(id string) string        { return "jobs/" + id + ".json" }
func transcriptKey(id string) string { return "transcripts/" + id + ".json" }
func visionKey(id string) string     { return "vision/" + id + ".json" }
func summaryKey(id string) string    { return "summaries/" + id + ".json" }

func keyframeKey(id string, index int) string {
	return fmt.Sprintf("keyframes/%s-%d.jpg", id, index)
}

func (s *Store) putJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if _, err := s.Put(ctx, key, data); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (s *Store) SaveJob(ctx context.Context, job *entity.Job) error {
	return s.putJSON(ctx, jobKey(job.ID), job)
}

func (s *Store) GetJob(ctx context.Context, jobID string) (*entity.Job, error) {
	data, err := s.Get(ctx, jobKey(jobID))
	if err != nil {
		return nil, err
	}
	var job entity.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", jobID, err)
	}
	return &job, nil
}

// UpdateJobStatus is a read-modify-write with last-writer-wins semantics; one
// job is processed by one step at a time, so no optimistic concurrency is
// applied.
func (s *Store) UpdateJobStatus(ctx context.Context, jobID string, status entity.JobStatus) error {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	job.Status = status
	job.UpdatedAt = time.Now().UnixMilli()
	return s.SaveJob(ctx, job)
}

func (s *Store) MarkJobError(ctx context.Context, jobID, cause string) error {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	job.Status = entity.StatusError
	job.Error = cause
	job.UpdatedAt = time.Now().UnixMilli()
	return s.SaveJob(ctx, job)
}

func (s *Store) SaveTranscript(ctx context.Context, jobID string, segments []entity.TranscriptSegment) error {
	return s.putJSON(ctx, transcriptKey(jobID), segments)
}

func (s *Store) GetTranscript(ctx context.Context, jobID string) ([]entity.TranscriptSegment, error) {
	data, err := s.Get(ctx, transcriptKey(jobID))
	if err != nil {
		return nil, err
	}
	var segments []entity.TranscriptSegment
	if err := json.Unmarshal(data, &segments); err != nil {
		return nil, fmt.Errorf("decode transcript %s: %w", jobID, err)
	}
	return segments, nil
}

func (s *Store) SaveVisionCaptions(ctx context.Context, jobID string, captions []entity.VisionCaption) error {
	return s.putJSON(ctx, visionKey(jobID), captions)
}

func (s *Store) GetVisionCaptions(ctx context.Context, jobID string) ([]entity.VisionCaption, error) {
	data, err := s.Get(ctx, visionKey(jobID))
	if err != nil {
		return nil, err
	}
	var captions []entity.VisionCaption
	if err := json.Unmarshal(data, &captions); err != nil {
		return nil, fmt.Errorf("decode vision captions %s: %w", jobID, err)
	}
	return captions, nil
}

func (s *Store) SaveSummary(ctx context.Context, jobID string, summary *entity.Summary) error {
	return s.putJSON(ctx, summaryKey(jobID), summary)
}

func (s *Store) GetSummary(ctx context.Context, jobID string) (*entity.Summary, error) {
	data, err := s.Get(ctx, summaryKey(jobID))
	if err != nil {
		return nil, err
	}
	var summary entity.Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("decode summary %s: %w", jobID, err)
	}
	return &summary, nil
}

// SaveKeyframe stores one extracted frame image and returns its reference.
func (s *Store) SaveKeyframe(ctx context.Context, jobID string, index int, frame []byte) (string, error) {
	ref, err := s.Put(ctx, keyframeKey(jobID, index), frame)
	if err != nil {
		return "", fmt.Errorf("put keyframe %d: %w", index, err)
	}
	return ref, nil
}

// CleanupJob removes every artifact owned by the job id. Best effort: delete
// failures are logged inside the store and never block the caller.
func (s *Store) CleanupJob(ctx context.Context, jobID string) {
	log.Printf("cleaning up artifacts for job %s", jobID)
	s.Delete(ctx, jobKey(jobID))
	s.Delete(ctx, transcriptKey(jobID))
	s.Delete(ctx, visionKey(jobID))
	s.Delete(ctx, summaryKey(jobID))
	for i := 0; i < entity.MaxKeyframes; i++ {
		s.Delete(ctx, keyframeKey(jobID, i))
	}
}
