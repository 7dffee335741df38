// Package api exposes the transcription pipeline as a tool-calling HTTP
// service: tool listing and dispatch, per-job progress streams, health,
// and metrics.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/scribeworks/meeting-transcriber/internal/config"
	"github.com/scribeworks/meeting-transcriber/internal/metrics"
	"github.com/scribeworks/meeting-transcriber/internal/pipeline"
)

type Server struct {
	http *http.Server
	log  zerolog.Logger
}

// NewServer assembles the router. Tool routes live behind bearer auth when
// a token is configured; health and metrics stay open.
func NewServer(cfg *config.Config, registry *ToolRegistry, bus *pipeline.ProgressBus, version string, startTime time.Time, checks map[string]HealthCheck, log zerolog.Logger) *Server {
	r := chi.NewRouter()

	// Global middleware
	r.Use(RequestID)
	r.Use(Recoverer)
	r.Use(Logger(log))
	r.Use(metrics.InstrumentHandler)

	health := NewHealthHandler(version, startTime, checks)
	r.Get("/api/v1/health", health.ServeHTTP)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Authenticated routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(BearerAuth(cfg.AuthToken))
		NewToolsHandler(registry).Routes(r)
		NewEventsHandler(bus).Routes(r)
	})

	return &Server{
		http: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      r,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		log: log,
	}
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("http server starting")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http server shutting down")
	return s.http.Shutdown(ctx)
}
