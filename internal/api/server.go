// Package api exposes the memory engine over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/yairfalse/muisti/engine"
	"github.com/yairfalse/muisti/telemetry"
)

// Server serves the query and ingest API.
type Server struct {
	engine *engine.Engine
	logger *telemetry.Logger
	http   *http.Server
}

// NewServer builds a server around an initialized engine.
func NewServer(eng *engine.Engine, addr string, logger *telemetry.Logger) *Server {
	s := &Server{
		engine: eng,
		logger: logger,
	}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Routes builds the router. Exposed separately so tests can drive the
// handler without a listener.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/healthz", s.handleHealthz)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/metrics", s.handleStoreMetrics)
		r.Get("/metrics", s.handleQueryMetrics)

		r.Post("/events", s.handleStoreEvent)
		r.Get("/events", s.handleQueryEvents)

		r.Post("/predictions", s.handleStorePrediction)
		r.Get("/predictions", s.handleQueryPredictions)

		r.Get("/nodes", s.handleNodes)
		r.Route("/nodes/{node}", func(r chi.Router) {
			r.Get("/summary", s.handleNodeSummary)
			r.Post("/annotations", s.handleAddAnnotation)
			r.Get("/annotations", s.handleGetAnnotations)
		})

		r.Get("/cluster/overview", s.handleClusterOverview)
	})

	return r
}

// Start begins serving. It blocks until the listener fails or Stop is
// called.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.http.Addr).Msg("api server listening")
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop shuts the listener down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		if err := json.NewEncoder(w).Encode(body); err != nil {
			s.logger.Error().Err(err).Msg("encode response")
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, err error) {
	s.respond(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	metrics, events, predictions := s.engine.CacheSizes()
	keys, dbSize := s.engine.StorageStats()
	s.respond(w, http.StatusOK, map[string]any{
		"status": "ok",
		"cache": map[string]int{
			"metrics":     metrics,
			"events":      events,
			"predictions": predictions,
		},
		"storage": map[string]int64{
			"keys":     int64(keys),
			"db_bytes": dbSize,
		},
	})
}
