package v1

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Jan-H2M/vidsum/internal/domain/entity"
	"github.com/Jan-H2M/vidsum/internal/domain/errs"
)

type JobUseCase interface {
	Ingest(ctx context.Context, url string) (*entity.Job, error)
	Status(ctx context.Context, jobID string) (*entity.JobProgress, error)
	Summary(ctx context.Context, jobID string) (*entity.Summary, error)
	Cleanup(ctx context.Context, jobID string)
}

// StepProcessor executes one pipeline step; the worker endpoint hands
// messages to it in the background.
type StepProcessor interface {
	ProcessStep(ctx context.Context, msg entity.StepMessage)
}

type JobHandler struct {
	UseCase JobUseCase
	Worker  StepProcessor
}

func NewJobHandler(u JobUseCase, w StepProcessor) *JobHandler {
	return &JobHandler{UseCase: u, Worker: w}
}

type ingestRequest struct {
	URL string `json:"url"`
}

func (h *JobHandler) Ingest(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Valid URL is required"})
		return
	}

	job, err := h.UseCase.Ingest(c.Request.Context(), req.URL)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobId": job.ID, "status": job.Status})
}

func (h *JobHandler) Status(c *gin.Context) {
	jobID := c.Query("jobId")
	if jobID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "jobId is required"})
		return
	}

	progress, err := h.UseCase.Status(c.Request.Context(), jobID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, progress)
}

func (h *JobHandler) Summary(c *gin.Context) {
	jobID := c.Query("jobId")
	if jobID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "jobId is required"})
		return
	}

	summary, err := h.UseCase.Summary(c.Request.Context(), jobID)
	if err != nil {
		status := errs.HTTPStatus(err)
		if status == http.StatusAccepted || status == http.StatusNotFound {
			c.JSON(status, gin.H{"summary": nil, "error": errs.PublicMessage(err)})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

// Work accepts a step message, acknowledges immediately, and continues
// processing in the background; the orchestrator owns all failure handling
// past this point.
func (h *JobHandler) Work(c *gin.Context) {
	var msg entity.StepMessage
	if err := c.ShouldBindJSON(&msg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid message format"})
		return
	}
	if msg.JobID == "" || !msg.Step.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid message format"})
		return
	}

	go h.Worker.ProcessStep(context.WithoutCancel(c.Request.Context()), msg)

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *JobHandler) Delete(c *gin.Context) {
	jobID := c.Param("job_id")
	h.UseCase.Cleanup(c.Request.Context(), jobID)
	c.JSON(http.StatusOK, gin.H{"deleted": jobID})
}

func respondError(c *gin.Context, err error) {
	c.JSON(errs.HTTPStatus(err), gin.H{"error": errs.PublicMessage(err)})
}
