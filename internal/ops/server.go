// Package ops serves the operational HTTP surface: health probes, the
// Prometheus scrape endpoint, and a small status snapshot.
package ops

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/orb-chat/orb/internal/observability"
)

// Status is the snapshot returned by /status.
type Status struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	UptimeS   int64     `json:"uptime_s"`
	Model     string    `json:"model"`
	Connected bool      `json:"connected"`
}

// StatusFunc supplies the current snapshot; called per request.
type StatusFunc func() Status

// Server hosts the ops endpoints.
type Server struct {
	addr   string
	status StatusFunc
	logger *slog.Logger
	srv    *http.Server
}

// New creates a Server bound to addr. logger may be nil.
func New(addr string, status StatusFunc, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{addr: addr, status: status, logger: logger}
}

// Router builds the handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleHealth)
	r.Handle("/metrics", observability.MetricsHandler())
	r.Get("/status", s.handleStatus)
	return r
}

// Start begins serving in a background goroutine.
func (s *Server) Start() {
	s.srv = &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		s.logger.Info("ops server listening", "addr", s.addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("ops server failed", "error", err)
		}
	}()
}

// Shutdown stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	st := s.status()
	st.UptimeS = int64(time.Since(st.StartedAt).Seconds())
	respondJSON(w, http.StatusOK, st)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
