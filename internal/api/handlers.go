// Package api exposes the cleanup service over HTTP: job submission and
// inspection endpoints plus the WebSocket progress stream.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/stillwave/recut/internal/cleanup"
	"github.com/stillwave/recut/internal/websocket"
	"github.com/stillwave/recut/pkg/logger"
)

const defaultJobListLimit = 50

// Handler contains the API handlers
type Handler struct {
	service  *cleanup.Service
	wsServer *websocket.Server
	logger   *logger.Logger
}

// NewHandler creates a new API handler
func NewHandler(service *cleanup.Service, wsServer *websocket.Server, log *logger.Logger) *Handler {
	return &Handler{
		service:  service,
		wsServer: wsServer,
		logger:   log.Named("api-handler"),
	}
}

// SubmitJob accepts a job config and starts a cleanup run
func (h *Handler) SubmitJob(w http.ResponseWriter, r *http.Request) {
	var config cleanup.JobConfig
	if err := json.NewDecoder(r.Body).Decode(&config); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	job, err := h.service.Submit(config)
	if err != nil {
		h.logger.Error("Job submission rejected", logger.Error(err))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	WriteJSON(w, http.StatusAccepted, job)
}

// GetJobs returns jobs newest first with pagination
func (h *Handler) GetJobs(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultJobListLimit)
	offset := queryInt(r, "offset", 0)

	jobs, err := h.service.List(limit, offset)
	if err != nil {
		h.logger.Error("Failed to list jobs", logger.Error(err))
		http.Error(w, "failed to list jobs", http.StatusInternalServerError)
		return
	}
	if jobs == nil {
		jobs = []*cleanup.Job{}
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// GetJob returns a single job by ID
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	job, ok := h.lookupJob(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// GetJobSegments returns a job's optimized segments with deletion marks
func (h *Handler) GetJobSegments(w http.ResponseWriter, r *http.Request) {
	job, ok := h.lookupJob(w, r)
	if !ok {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"job_id":   job.ID,
		"segments": job.Segments,
		"deleted":  job.Deleted,
	})
}

// Health reports service liveness
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleWebSocket upgrades the connection and attaches it to the hub
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	h.wsServer.HandleConnection(w, r)
}

func (h *Handler) lookupJob(w http.ResponseWriter, r *http.Request) (*cleanup.Job, bool) {
	id := chi.URLParam(r, "id")

	job, err := h.service.Get(id)
	if err != nil {
		h.logger.Error("Failed to load job",
			logger.String("id", id),
			logger.Error(err))
		http.Error(w, "failed to load job", http.StatusInternalServerError)
		return nil, false
	}
	if job == nil {
		http.Error(w, "job not found", http.StatusNotFound)
		return nil, false
	}
	return job, true
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
