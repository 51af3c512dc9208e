// Package api exposes the sync service's operational HTTP surface:
// health, per-platform run status, manual triggers, and key-generator
// stats. Ingestion itself never flows through HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ignite/outreach-sync/internal/eventkey"
	"github.com/ignite/outreach-sync/internal/pipeline"
	"github.com/ignite/outreach-sync/internal/pkg/httputil"
)

// SyncRunner is the worker surface the API drives.
type SyncRunner interface {
	LatestReports() map[string]*pipeline.RunReport
	LastErrors() map[string]string
	TriggerPlatform(ctx context.Context, platform string) (*pipeline.RunReport, error)
}

// KeyStatsSource exposes event-key generator counters.
type KeyStatsSource interface {
	KeyStats() eventkey.Stats
}

// EventCounter reports stored event totals per platform.
type EventCounter interface {
	EventCount(ctx context.Context, platform string) (int64, error)
}

// Server holds the API dependencies.
type Server struct {
	runner    SyncRunner
	keys      KeyStatsSource
	events    EventCounter
	platforms []string
}

// NewServer creates the API server.
func NewServer(runner SyncRunner, keys KeyStatsSource, events EventCounter, platforms []string) *Server {
	return &Server{runner: runner, keys: keys, events: events, platforms: platforms}
}

// Routes builds the chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/sync/status", s.handleSyncStatus)
		r.Post("/sync/{platform}/run", s.handleTriggerSync)
		r.Get("/eventkey/stats", s.handleKeyStats)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]string{"status": "ok"})
}

type platformStatus struct {
	LastRun    *pipeline.RunReport `json:"last_run,omitempty"`
	LastError  string              `json:"last_error,omitempty"`
	EventTotal int64               `json:"event_total"`
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	reports := s.runner.LatestReports()
	lastErrs := s.runner.LastErrors()

	out := make(map[string]platformStatus, len(s.platforms))
	for _, platform := range s.platforms {
		total, err := s.events.EventCount(r.Context(), platform)
		if err != nil {
			httputil.InternalError(w, err)
			return
		}
		out[platform] = platformStatus{
			LastRun:    reports[platform],
			LastError:  lastErrs[platform],
			EventTotal: total,
		}
	}
	httputil.OK(w, out)
}

func (s *Server) handleTriggerSync(w http.ResponseWriter, r *http.Request) {
	platform := chi.URLParam(r, "platform")
	if !eventkey.KnownPlatform(platform) {
		httputil.NotFound(w, "unknown platform "+platform)
		return
	}

	report, err := s.runner.TriggerPlatform(r.Context(), strings.ToLower(platform))
	if err != nil {
		var cfgErr *pipeline.ConfigurationError
		if errors.As(err, &cfgErr) {
			httputil.Error(w, http.StatusConflict, cfgErr.Error())
			return
		}
		httputil.Error(w, http.StatusBadGateway, err.Error())
		return
	}
	httputil.OK(w, report)
}

func (s *Server) handleKeyStats(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, s.keys.KeyStats())
}
