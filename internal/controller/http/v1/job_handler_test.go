package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jan-H2M/vidsum/internal/domain/entity"
	"github.com/Jan-H2M/vidsum/internal/domain/usecase"
	"github.com/Jan-H2M/vidsum/internal/repository/artifact"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// captureQueue records messages so tests can execute steps deterministically.
type captureQueue struct {
	mu     sync.Mutex
	queued []entity.StepMessage
}

func (q *captureQueue) Enqueue(_ context.Context, msg entity.StepMessage, _ time.Duration) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.queued = append(q.queued, msg)
	return msg.JobID + "-" + string(msg.Step), nil
}

func (q *captureQueue) pop() (entity.StepMessage, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.queued) == 0 {
		return entity.StepMessage{}, false
	}
	next := q.queued[0]
	q.queued = q.queued[1:]
	return next, true
}

type fakeCaptions struct{}

func (fakeCaptions) FetchCaptions(context.Context, string) ([]entity.TranscriptSegment, error) {
	return nil, nil
}

type fakeTranscriber struct{}

func (fakeTranscriber) Transcribe(context.Context, string) ([]entity.TranscriptSegment, string, int64, error) {
	return []entity.TranscriptSegment{{Start: 0, End: 2000, Text: "hello"}}, "en", 30000, nil
}

type fakeMedia struct{}

func (fakeMedia) AudioURL(context.Context, string) (string, error) {
	return "https://cdn.example.com/audio.mp3", nil
}

func (fakeMedia) Frame(context.Context, string, int64) ([]byte, error) {
	return []byte{0xff, 0xd8}, nil
}

type fakeVision struct{}

func (fakeVision) Analyze(context.Context, string) (entity.VisionAnalysis, error) {
	return entity.VisionAnalysis{Caption: "a frame"}, nil
}

func (fakeVision) OCR(context.Context, string) (string, error) { return "", nil }

type fakeLLM struct{}

func (fakeLLM) Generate(_ context.Context, jobID string, _ []entity.TranscriptSegment, _ []entity.VisionCaption, _ int64, _ string) (*entity.Summary, error) {
	return &entity.Summary{JobID: jobID, TLDR: "short and sweet"}, nil
}

type testServer struct {
	router   *gin.Engine
	queue    *captureQueue
	pipeline *usecase.PipelineUseCase
	store    *artifact.Store
}

func newTestServer() *testServer {
	store := artifact.NewStore(nil)
	queue := &captureQueue{}
	pipeline := usecase.NewPipelineUseCase(
		store, queue, fakeCaptions{}, fakeTranscriber{}, fakeMedia{}, fakeVision{}, fakeLLM{}, nil,
	)
	jobs := usecase.NewJobUseCase(store, queue, nil)
	handler := NewJobHandler(jobs, pipeline)

	r := gin.New()
	r.POST("/ingest", handler.Ingest)
	r.GET("/status", handler.Status)
	r.GET("/summary", handler.Summary)
	r.POST("/worker", handler.Work)
	r.DELETE("/jobs/:job_id", handler.Delete)

	return &testServer{router: r, queue: queue, pipeline: pipeline, store: store}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// drain executes every captured message until the pipeline goes quiet.
func (s *testServer) drain(t *testing.T) {
	t.Helper()
	for i := 0; i < 10; i++ {
		msg, ok := s.queue.pop()
		if !ok {
			return
		}
		s.pipeline.ProcessStep(context.Background(), msg)
	}
	t.Fatal("pipeline did not settle")
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestIngestEndpoint(t *testing.T) {
	s := newTestServer()

	w := s.do(t, http.MethodPost, "/ingest", `{"url":"https://example.com/talk.mp4"}`)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.NotEmpty(t, body["jobId"])
	assert.Equal(t, "queued", body["status"])
}

func TestIngestEndpointRejectsBadInput(t *testing.T) {
	s := newTestServer()

	for _, payload := range []string{``, `not json`, `{"url":""}`, `{"url":"nope"}`} {
		w := s.do(t, http.MethodPost, "/ingest", payload)
		assert.Equal(t, http.StatusBadRequest, w.Code, "payload: %q", payload)
		body := decodeBody(t, w)
		assert.Equal(t, "Valid URL is required", body["error"])
	}
}

func TestStatusEndpointUnknownJob(t *testing.T) {
	s := newTestServer()

	w := s.do(t, http.MethodGet, "/status?jobId=ghost", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/status", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSummaryEndpointNotReady(t *testing.T) {
	s := newTestServer()

	w := s.do(t, http.MethodPost, "/ingest", `{"url":"https://example.com/talk.mp4"}`)
	require.Equal(t, http.StatusOK, w.Code)
	jobID := decodeBody(t, w)["jobId"].(string)

	w = s.do(t, http.MethodGet, "/summary?jobId="+jobID, "")
	assert.Equal(t, http.StatusAccepted, w.Code)

	body := decodeBody(t, w)
	assert.Nil(t, body["summary"])
	assert.Equal(t, "Job not complete. Current status: queued", body["error"])
}

func TestWorkerEndpointRejectsMalformedMessages(t *testing.T) {
	s := newTestServer()

	for _, payload := range []string{`not json`, `{}`, `{"jobId":"a","step":"reticulation"}`} {
		w := s.do(t, http.MethodPost, "/worker", payload)
		assert.Equal(t, http.StatusBadRequest, w.Code, "payload: %q", payload)
		body := decodeBody(t, w)
		assert.Equal(t, "Invalid message format", body["error"])
	}
}

func TestFullJobLifecycle(t *testing.T) {
	s := newTestServer()

	w := s.do(t, http.MethodPost, "/ingest", `{"url":"https://example.com/talk.mp4"}`)
	require.Equal(t, http.StatusOK, w.Code)
	jobID := decodeBody(t, w)["jobId"].(string)

	s.drain(t)

	w = s.do(t, http.MethodGet, "/status?jobId="+jobID, "")
	require.Equal(t, http.StatusOK, w.Code)
	status := decodeBody(t, w)
	assert.Equal(t, "done", status["status"])
	assert.Equal(t, float64(100), status["progress"])

	w = s.do(t, http.MethodGet, "/summary?jobId="+jobID, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	summary, ok := body["summary"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "short and sweet", summary["tldr"])
}

func TestDeleteEndpoint(t *testing.T) {
	s := newTestServer()

	w := s.do(t, http.MethodPost, "/ingest", `{"url":"https://example.com/talk.mp4"}`)
	require.Equal(t, http.StatusOK, w.Code)
	jobID := decodeBody(t, w)["jobId"].(string)

	w = s.do(t, http.MethodDelete, "/jobs/"+jobID, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/status?jobId="+jobID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
