package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/Jan-H2M/vidsum/internal/domain/entity"
	"github.com/Jan-H2M/vidsum/internal/metrics"
	"github.com/Jan-H2M/vidsum/internal/repository/artifact"
	"github.com/Jan-H2M/vidsum/pkg/utils"
)

const MaxRetries = 3

// retryDelays is indexed by retry count and clamped to its last entry.
var retryDelays = []time.Duration{30 * time.Second, 120 * time.Second, 300 * time.Second}

// MinFrameIntervalMs bounds keyframe density: one frame per five seconds.
const MinFrameIntervalMs = 5000

// ArtifactRepo persists job records and pipeline artifacts. Missing reads
// return artifact.ErrNotFound.
type ArtifactRepo interface {
	SaveJob(ctx context.Context, job *entity.Job) error
	GetJob(ctx context.Context, jobID string) (*entity.Job, error)
	UpdateJobStatus(ctx context.Context, jobID string, status entity.JobStatus) error
	MarkJobError(ctx context.Context, jobID, cause string) error

	SaveTranscript(ctx context.Context, jobID string, segments []entity.TranscriptSegment) error
	GetTranscript(ctx context.Context, jobID string) ([]entity.TranscriptSegment, error)
	SaveVisionCaptions(ctx context.Context, jobID string, captions []entity.VisionCaption) error
	GetVisionCaptions(ctx context.Context, jobID string) ([]entity.VisionCaption, error)
	SaveSummary(ctx context.Context, jobID string, summary *entity.Summary) error
	GetSummary(ctx context.Context, jobID string) (*entity.Summary, error)
	SaveKeyframe(ctx context.Context, jobID string, index int, frame []byte) (string, error)
	CleanupJob(ctx context.Context, jobID string)
}

// Dispatcher schedules a step execution immediately or after a delay.
type Dispatcher interface {
	Enqueue(ctx context.Context, msg entity.StepMessage, delay time.Duration) (string, error)
}

// Transcriber is the speech-to-text collaborator.
type Transcriber interface {
	Transcribe(ctx context.Context, audioURL string) (segments []entity.TranscriptSegment, language string, durationMs int64, err error)
}

// CaptionFetcher retrieves pre-existing captions; (nil, nil) means none.
type CaptionFetcher interface {
	FetchCaptions(ctx context.Context, videoURL string) ([]entity.TranscriptSegment, error)
}

// MediaExtractor resolves streams and extracts frame images.
type MediaExtractor interface {
	AudioURL(ctx context.Context, videoURL string) (string, error)
	Frame(ctx context.Context, videoURL string, timestampMs int64) ([]byte, error)
}

// VisionModel captions frames and reads on-screen text.
type VisionModel interface {
	Analyze(ctx context.Context, imageRef string) (entity.VisionAnalysis, error)
	OCR(ctx context.Context, imageRef string) (string, error)
}

// SummaryModel produces the final structured summary document.
type SummaryModel interface {
	Generate(ctx context.Context, jobID string, transcript []entity.TranscriptSegment, captions []entity.VisionCaption, durationMs int64, language string) (*entity.Summary, error)
}

// PipelineUseCase is the orchestrator: it executes one step per message,
// persists the results, and decides the next transition or retry.
type PipelineUseCase struct {
	Repo     ArtifactRepo
	Queue    Dispatcher
	Captions CaptionFetcher
	STT      Transcriber
	Media    MediaExtractor
	Vision   VisionModel
	LLM      SummaryModel
	Metrics  *metrics.Collector

	// StepTimeout bounds each step's external work so a hung provider call
	// fails into the retry path instead of stalling the job forever.
	StepTimeout time.Duration
	// VisionConcurrency bounds the per-frame fan-out in the vision step.
	VisionConcurrency int64

	locks sync.Map // jobID -> *sync.Mutex
}

func NewPipelineUseCase(
	repo ArtifactRepo,
	queue Dispatcher,
	captions CaptionFetcher,
	stt Transcriber,
	media MediaExtractor,
	vision VisionModel,
	llm SummaryModel,
	collector *metrics.Collector,
) *PipelineUseCase {
	return &PipelineUseCase{
		Repo:              repo,
		Queue:             queue,
		Captions:          captions,
		STT:               stt,
		Media:             media,
		Vision:            vision,
		LLM:               llm,
		Metrics:           collector,
		StepTimeout:       10 * time.Minute,
		VisionConcurrency: 4,
	}
}

func (p *PipelineUseCase) jobLock(jobID string) *sync.Mutex {
	mu, _ := p.locks.LoadOrStore(jobID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// ProcessStep runs one execution attempt of one step. Two deliveries for the
// same job serialize on a per-job mutex, so a duplicate message observes the
// already-advanced job state instead of racing it.
func (p *PipelineUseCase) ProcessStep(ctx context.Context, msg entity.StepMessage) {
	mu := p.jobLock(msg.JobID)
	mu.Lock()
	defer mu.Unlock()

	job, err := p.Repo.GetJob(ctx, msg.JobID)
	if err != nil {
		if errors.Is(err, artifact.ErrNotFound) {
			log.Printf("job %s not found, dropping %s message", msg.JobID, msg.Step)
		} else {
			log.Printf("failed to load job %s: %v", msg.JobID, err)
		}
		return
	}

	if job.Status == entity.StatusError {
		log.Printf("job %s already in error state, skipping %s", msg.JobID, msg.Step)
		return
	}

	stepCtx := ctx
	if p.StepTimeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, p.StepTimeout)
		defer cancel()
	}

	switch msg.Step {
	case entity.StepTranscription:
		err = p.runTranscription(stepCtx, job, msg.URL)
	case entity.StepKeyframes:
		err = p.runKeyframes(stepCtx, job, msg.URL)
	case entity.StepVision:
		err = p.runVision(stepCtx, job)
	case entity.StepSummarization:
		err = p.runSummarization(stepCtx, job)
	default:
		err = fmt.Errorf("unknown step: %s", msg.Step)
	}

	if err != nil {
		log.Printf("error in step %s for job %s: %v", msg.Step, msg.JobID, err)
		p.Metrics.StepFailed(string(msg.Step))
		p.retryOrFail(ctx, msg, err)
		return
	}
	p.Metrics.StepSucceeded(string(msg.Step))
}

// retryOrFail re-enqueues the same step with an incremented retry count and a
// backoff delay, or marks the job terminally failed once retries run out.
// Retries are step-scoped: artifacts from completed steps stay persisted.
func (p *PipelineUseCase) retryOrFail(ctx context.Context, msg entity.StepMessage, cause error) {
	// The step context may already be canceled; scheduling must still work.
	ctx = context.WithoutCancel(ctx)

	if msg.RetryCount < MaxRetries {
		delay := retryDelays[len(retryDelays)-1]
		if msg.RetryCount < len(retryDelays) {
			delay = retryDelays[msg.RetryCount]
		}
		retry := msg
		retry.RetryCount++
		log.Printf("scheduling retry %d for job %s step %s in %s", retry.RetryCount, msg.JobID, msg.Step, delay)
		if _, err := p.Queue.Enqueue(ctx, retry, delay); err != nil {
			log.Printf("failed to schedule retry for job %s: %v", msg.JobID, err)
			return
		}
		p.Metrics.RetryScheduled()
		return
	}

	if err := p.Repo.MarkJobError(ctx, msg.JobID, fmt.Sprintf("Failed in step %s: %v", msg.Step, cause)); err != nil {
		log.Printf("failed to mark job %s as errored: %v", msg.JobID, err)
		return
	}
	p.Metrics.JobErrored()
}

func (p *PipelineUseCase) runTranscription(ctx context.Context, job *entity.Job, url string) error {
	log.Printf("starting transcription for job %s", job.ID)

	if err := p.Repo.UpdateJobStatus(ctx, job.ID, entity.StatusProcessing); err != nil {
		return err
	}

	var (
		segments []entity.TranscriptSegment
		language = "en"
		duration int64
	)

	if utils.IsYouTubeURL(url) {
		existing, err := p.Captions.FetchCaptions(ctx, url)
		if err != nil {
			log.Printf("caption fetch for job %s failed, falling back to STT: %v", job.ID, err)
		}
		if len(existing) > 0 {
			log.Printf("using existing captions for job %s", job.ID)
			segments = existing
			for _, s := range segments {
				if s.End > duration {
					duration = s.End
				}
			}
		} else {
			audioURL, err := p.Media.AudioURL(ctx, url)
			if err != nil {
				return err
			}
			segments, language, duration, err = p.STT.Transcribe(ctx, audioURL)
			if err != nil {
				return err
			}
		}
	} else {
		var err error
		segments, language, duration, err = p.STT.Transcribe(ctx, url)
		if err != nil {
			return err
		}
	}

	if err := p.Repo.SaveTranscript(ctx, job.ID, segments); err != nil {
		return err
	}

	// Reload before writing fields: UpdateJobStatus already advanced the
	// record, and saving the stale copy would revert the status.
	fresh, err := p.Repo.GetJob(ctx, job.ID)
	if err != nil {
		return err
	}
	fresh.Duration = duration
	fresh.Language = language
	fresh.UpdatedAt = time.Now().UnixMilli()
	if err := p.Repo.SaveJob(ctx, fresh); err != nil {
		return err
	}
	job.Duration = duration
	job.Language = language

	log.Printf("transcription complete for job %s, enqueueing keyframes", job.ID)
	_, err = p.Queue.Enqueue(ctx, entity.StepMessage{JobID: job.ID, Step: entity.StepKeyframes, URL: url}, 0)
	return err
}

func (p *PipelineUseCase) runKeyframes(ctx context.Context, job *entity.Job, url string) error {
	log.Printf("starting keyframe extraction for job %s", job.ID)

	if job.Duration <= 0 {
		return fmt.Errorf("job duration not available")
	}

	frameCount := int(job.Duration / MinFrameIntervalMs)
	if frameCount > entity.MaxKeyframes {
		frameCount = entity.MaxKeyframes
	}
	if frameCount == 0 {
		return fmt.Errorf("video too short for keyframe extraction (%dms)", job.Duration)
	}
	interval := job.Duration / int64(frameCount)

	keyframes := make([]entity.VisionCaption, 0, frameCount)
	for i := 0; i < frameCount; i++ {
		timestamp := int64(i) * interval

		frame, err := p.Media.Frame(ctx, url, timestamp)
		if err != nil {
			log.Printf("failed to extract frame at %dms for job %s: %v", timestamp, job.ID, err)
			continue
		}
		ref, err := p.Repo.SaveKeyframe(ctx, job.ID, i, frame)
		if err != nil {
			log.Printf("failed to store frame %d for job %s: %v", i, job.ID, err)
			continue
		}

		keyframes = append(keyframes, entity.VisionCaption{
			Timestamp: timestamp,
			ImageRef:  ref,
		})
	}

	if len(keyframes) == 0 {
		return fmt.Errorf("no keyframes extracted")
	}

	if err := p.Repo.SaveVisionCaptions(ctx, job.ID, keyframes); err != nil {
		return err
	}

	log.Printf("extracted %d keyframes for job %s, enqueueing vision analysis", len(keyframes), job.ID)
	_, err := p.Queue.Enqueue(ctx, entity.StepMessage{JobID: job.ID, Step: entity.StepVision}, 0)
	return err
}

func (p *PipelineUseCase) runVision(ctx context.Context, job *entity.Job) error {
	log.Printf("starting vision analysis for job %s", job.ID)

	keyframes, err := p.Repo.GetVisionCaptions(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("keyframes not found: %w", err)
	}

	concurrency := p.VisionConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	sem := semaphore.NewWeighted(concurrency)

	// One slot per frame; a failed frame leaves its slot nil and is dropped
	// without affecting siblings.
	analyzed := make([]*entity.VisionCaption, len(keyframes))
	var wg sync.WaitGroup

	for i, frame := range keyframes {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(i int, frame entity.VisionCaption) {
			defer wg.Done()
			defer sem.Release(1)

			analysis, err := p.Vision.Analyze(ctx, frame.ImageRef)
			if err != nil {
				log.Printf("vision analysis of frame %d failed for job %s: %v", i, job.ID, err)
				return
			}
			frame.Caption = analysis.Caption
			frame.Objects = analysis.Objects
			frame.Labels = analysis.Labels
			frame.OCRText = analysis.OCRText
			analyzed[i] = &frame
		}(i, frame)
	}
	wg.Wait()

	final := make([]entity.VisionCaption, 0, len(keyframes))
	for _, frame := range analyzed {
		if frame != nil {
			final = append(final, *frame)
		}
	}
	sort.Slice(final, func(i, j int) bool { return final[i].Timestamp < final[j].Timestamp })

	// Second, best-effort OCR pass for frames likely to carry readable text.
	for i := range final {
		if !final[i].TextBearing() {
			continue
		}
		text, err := p.Vision.OCR(ctx, final[i].ImageRef)
		if err != nil {
			log.Printf("ocr of frame at %dms failed for job %s: %v", final[i].Timestamp, job.ID, err)
			continue
		}
		if text != "" {
			final[i].OCRText = text
		}
	}

	if err := p.Repo.SaveVisionCaptions(ctx, job.ID, final); err != nil {
		return err
	}

	log.Printf("vision analysis complete for job %s, enqueueing summarization", job.ID)
	_, err = p.Queue.Enqueue(ctx, entity.StepMessage{JobID: job.ID, Step: entity.StepSummarization}, 0)
	return err
}

func (p *PipelineUseCase) runSummarization(ctx context.Context, job *entity.Job) error {
	log.Printf("starting summarization for job %s", job.ID)

	if err := p.Repo.UpdateJobStatus(ctx, job.ID, entity.StatusSummarizing); err != nil {
		return err
	}

	transcript, err := p.Repo.GetTranscript(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("transcript not found: %w", err)
	}
	captions, err := p.Repo.GetVisionCaptions(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("vision captions not found: %w", err)
	}
	if job.Duration <= 0 || job.Language == "" {
		return fmt.Errorf("job duration or language not available")
	}

	summary, err := p.LLM.Generate(ctx, job.ID, transcript, captions, job.Duration, job.Language)
	if err != nil {
		return err
	}

	if err := p.Repo.SaveSummary(ctx, job.ID, summary); err != nil {
		return err
	}
	if err := p.Repo.UpdateJobStatus(ctx, job.ID, entity.StatusDone); err != nil {
		return err
	}

	p.Metrics.JobCompleted()
	log.Printf("summarization complete for job %s", job.ID)
	return nil
}
