package dispatch

import (
	"bytes"
	"context"
	"log"
	"net/http"
	"time"

	"github.com/Jan-H2M/vidsum/internal/domain/entity"
	"github.com/Jan-H2M/vidsum/pkg/utils"
)

// HTTP re-enters the process (or a sibling instance) through POST /worker.
// This is the transport for stateless request-scoped hosts; the call is
// fire-and-forget and failures are logged, not returned.
type HTTP struct {
	workerURL string
	token     string
	client    *http.Client
}

func NewHTTP(workerURL, token string, client *http.Client) *HTTP {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTP{
		workerURL: workerURL,
		token:     token,
		client:    client,
	}
}

func (h *HTTP) Enqueue(_ context.Context, msg entity.StepMessage, delay time.Duration) (string, error) {
	id := dispatchID(msg)
	if delay > 0 {
		log.Printf("scheduling step %s for job %s in %s", msg.Step, msg.JobID, delay)
		time.AfterFunc(delay, func() { h.post(msg) })
	} else {
		go h.post(msg)
	}
	return id, nil
}

func (h *HTTP) post(msg entity.StepMessage) {
	body, err := utils.ToRawMessage(msg)
	if err != nil {
		log.Printf("failed to encode step message for job %s: %v", msg.JobID, err)
		return
	}

	req, err := http.NewRequest(http.MethodPost, h.workerURL, bytes.NewReader(body))
	if err != nil {
		log.Printf("failed to build worker request for job %s: %v", msg.JobID, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if h.token != "" {
		req.Header.Set("X-Worker-Token", h.token)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		log.Printf("failed to enqueue job %s step %s: %v", msg.JobID, msg.Step, err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Printf("worker returned %d for job %s step %s", resp.StatusCode, msg.JobID, msg.Step)
	}
}
