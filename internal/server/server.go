// Package server exposes a session's roster over a small read-only HTTP
// API for overlays and other local tools.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/bwlog/bwlog-go/internal/classifier"
	"github.com/bwlog/bwlog-go/pkg/bwlog"
	"github.com/bwlog/bwlog-go/pkg/bwlog/stats"
)

// shutdownTimeout bounds graceful shutdown in ListenAndServe.
const shutdownTimeout = 5 * time.Second

// SnapshotSource provides the roster to serve. *bwlog.Session
// implements it.
type SnapshotSource interface {
	Snapshot() bwlog.Snapshot
}

// Server serves the snapshot API.
type Server struct {
	HTTPServer *http.Server

	src   SnapshotSource
	stats stats.Provider
	log   *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.log = logger
		}
	}
}

// WithStats enables GET /api/v1/stats/{name}.
func WithStats(p stats.Provider) Option {
	return func(s *Server) {
		s.stats = p
	}
}

// New returns a server for addr. It does not start listening.
func New(addr string, src SnapshotSource, opts ...Option) *Server {
	s := &Server{
		src: src,
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/snapshot", s.handleSnapshot)
		r.Get("/roster", s.handleRoster)
		r.Get("/party", s.handleParty)
		r.Get("/guild", s.handleGuild)
		r.Get("/stats/{name}", s.handleStats)
	})

	s.HTTPServer = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", s.HTTPServer.Addr)
		errCh <- s.HTTPServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.HTTPServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type rosterResponse struct {
	Players   []bwlog.Player `json:"players"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type namesResponse struct {
	Names     []string  `json:"names"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.src.Snapshot())
}

func (s *Server) handleRoster(w http.ResponseWriter, r *http.Request) {
	snap := s.src.Snapshot()
	writeJSON(w, http.StatusOK, rosterResponse{Players: nonNil(snap.Active), UpdatedAt: snap.UpdatedAt})
}

func (s *Server) handleParty(w http.ResponseWriter, r *http.Request) {
	snap := s.src.Snapshot()
	writeJSON(w, http.StatusOK, namesResponse{Names: nonNil(snap.Party), UpdatedAt: snap.UpdatedAt})
}

func (s *Server) handleGuild(w http.ResponseWriter, r *http.Request) {
	snap := s.src.Snapshot()
	writeJSON(w, http.StatusOK, namesResponse{Names: nonNil(snap.Guild), UpdatedAt: snap.UpdatedAt})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		writeError(w, http.StatusNotFound, "stats lookups are disabled")
		return
	}
	name := chi.URLParam(r, "name")
	if !classifier.ValidName(name) {
		writeError(w, http.StatusBadRequest, "invalid player name")
		return
	}

	st, err := s.stats.Fetch(r.Context(), name)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, st)
	case errors.Is(err, stats.ErrNotFound):
		writeError(w, http.StatusNotFound, "player not found")
	case errors.Is(err, stats.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate limited")
	default:
		s.log.Warn("stats lookup failed", "name", name, "error", err)
		writeError(w, http.StatusBadGateway, "stats lookup failed")
	}
}

// logRequests logs each request at debug level.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.log.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// nonNil keeps empty lists as [] rather than null in responses.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
