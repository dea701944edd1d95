package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/stillwave/recut/internal/cleanup"
	"github.com/stillwave/recut/internal/websocket"
	"github.com/stillwave/recut/pkg/logger"
)

// Router wires the API handlers into a chi mux
type Router struct {
	handler *Handler
	logger  *logger.Logger
}

// NewRouter creates a new API router
func NewRouter(service *cleanup.Service, wsServer *websocket.Server, log *logger.Logger) *Router {
	return &Router{
		handler: NewHandler(service, wsServer, log),
		logger:  log.Named("api-router"),
	}
}

// Routes returns the HTTP handler for the server
func (r *Router) Routes() http.Handler {
	mux := chi.NewRouter()

	mux.Use(middleware.RequestID)
	mux.Use(middleware.Recoverer)

	mux.Route("/api", func(api chi.Router) {
		api.Get("/health", r.handler.Health)
		api.Post("/jobs", r.handler.SubmitJob)
		api.Get("/jobs", r.handler.GetJobs)
		api.Get("/jobs/{id}", r.handler.GetJob)
		api.Get("/jobs/{id}/segments", r.handler.GetJobSegments)
	})

	mux.Get("/ws", r.handler.HandleWebSocket)

	return mux
}
