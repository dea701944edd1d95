package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stillwave/recut/internal/cleanup"
	"github.com/stillwave/recut/internal/splice"
	"github.com/stillwave/recut/internal/subtitle"
	"github.com/stillwave/recut/internal/websocket"
	"github.com/stillwave/recut/internal/whisper"
	"github.com/stillwave/recut/pkg/logger"
)

type stubEngine struct{}

func (stubEngine) Transcribe(ctx context.Context, audioPath string, opts whisper.Options) (string, error) {
	return "", errors.New("engine not wired in tests")
}

type stubEvaluator struct{}

func (stubEvaluator) Evaluate(ctx context.Context, segments []subtitle.Segment) (map[int]struct{}, error) {
	return map[int]struct{}{}, nil
}

type stubSplicer struct{}

func (stubSplicer) Splice(ctx context.Context, audioPath string, segments []subtitle.Segment, deletions map[int]struct{}, outputPath, format string) (*splice.ExportResult, error) {
	return &splice.ExportResult{}, nil
}

type memStore struct {
	mu   sync.Mutex
	jobs map[string]*cleanup.Job
}

func newMemStore() *memStore {
	return &memStore{jobs: make(map[string]*cleanup.Job)}
}

func (m *memStore) StoreJob(job *cleanup.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job
	return nil
}

func (m *memStore) UpdateJob(job *cleanup.Job) error {
	return m.StoreJob(job)
}

func (m *memStore) GetJob(id string) (*cleanup.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jobs[id], nil
}

func (m *memStore) GetJobs(limit, offset int) ([]*cleanup.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	jobs := make([]*cleanup.Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func testRouter(t *testing.T) (http.Handler, *cleanup.Service) {
	t.Helper()
	svc := cleanup.NewService(stubEngine{}, stubEvaluator{}, stubSplicer{}, nil, newMemStore(), nil, "", logger.NewNop())
	t.Cleanup(svc.Stop)
	router := NewRouter(svc, websocket.NewServer(logger.NewNop()), logger.NewNop())
	return router.Routes(), svc
}

func TestHealthEndpoint(t *testing.T) {
	handler, _ := testRouter(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/health = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q, want ok", body["status"])
	}
}

func TestSubmitJobValidation(t *testing.T) {
	handler, _ := testRouter(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: "{not json"},
		{name: "missing input path", body: `{"output_path": "out.wav"}`},
		{name: "missing output path", body: `{"input_path": "in.wav"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest("POST", "/api/jobs", strings.NewReader(tt.body))
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("POST /api/jobs = %d, want 400", rec.Code)
			}
		})
	}
}

func TestSubmitJobAccepted(t *testing.T) {
	handler, _ := testRouter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/jobs", strings.NewReader(`{"input_path": "in.wav", "output_path": "out.wav"}`))
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("POST /api/jobs = %d, want 202", rec.Code)
	}

	var job cleanup.Job
	if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if job.ID == "" {
		t.Error("accepted job has no ID")
	}

	// The job must be retrievable by the returned ID
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/jobs/"+job.ID, nil))
	if rec.Code != http.StatusOK {
		t.Errorf("GET /api/jobs/{id} = %d, want 200", rec.Code)
	}
}

func TestGetJobNotFound(t *testing.T) {
	handler, _ := testRouter(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/jobs/no-such-job", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /api/jobs/no-such-job = %d, want 404", rec.Code)
	}
}

func TestGetJobsListShape(t *testing.T) {
	handler, _ := testRouter(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/jobs", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/jobs = %d, want 200", rec.Code)
	}

	var body struct {
		Jobs  []cleanup.Job `json:"jobs"`
		Count int           `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body.Jobs == nil {
		t.Error("jobs field is null, want empty array")
	}
}
