// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/gympulse/pkg/logger"
)

// Service is what the handlers need from the application layer.
type Service interface {
	SnapshotComputer
	SubjectResolver
	Ingester
	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	eventsHandler   *EventsHandler
	snapshotHandler *SnapshotHandler
	subjectsHandler *SubjectsHandler
	logger          logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(svc Service, opts ...Option) *Server {
	cfg := settings{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logger.Get().Named("http")
	}
	auth := NewAuthenticator(cfg.jwtSecret)
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(svc),
		eventsHandler:   NewEventsHandler(svc, auth),
		snapshotHandler: NewSnapshotHandler(svc, auth, cfg.logger),
		subjectsHandler: NewSubjectsHandler(svc, auth, cfg.logger),
		logger:          cfg.logger,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("/healthz", s.wrap(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", s.wrap(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/events", s.wrap(s.eventsHandler.HandlePostEvent, "events"))
	mux.HandleFunc("/snapshot", s.wrap(s.snapshotHandler.HandleGetSnapshot, "snapshot"))
	mux.HandleFunc("/subjects/{id}", s.wrap(s.subjectsHandler.HandleGetSubject, "subjects"))
}

func (s *Server) wrap(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return RequestIDMiddleware(MetricsMiddleware(next, endpoint))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
