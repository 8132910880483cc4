// Package api exposes the curation HTTP surface consumed by the UI.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"versecull/internal/bulk"
	"versecull/internal/store"
)

// maxRequestBody is the maximum allowed request body size (4 MB; a
// whole library can be imported in one request).
const maxRequestBody int64 = 4 << 20

// RunLister provides read access to the run history.
type RunLister interface {
	List(ctx context.Context, limit int) ([]bulk.Run, error)
}

// Server holds the HTTP handlers and dependencies.
type Server struct {
	store      *store.Store
	controller *bulk.Controller
	history    RunLister // optional
	corsOrigin string
	router     chi.Router
}

// ServerOption configures the API server.
type ServerOption func(*Server)

// WithCORSOrigin sets the allowed CORS origin (default "*").
func WithCORSOrigin(origin string) ServerOption {
	return func(s *Server) {
		if origin != "" {
			s.corsOrigin = origin
		}
	}
}

// WithRunHistory attaches a run-history reader for GET /api/runs.
func WithRunHistory(h RunLister) ServerOption {
	return func(s *Server) { s.history = h }
}

// New creates the API server.
func New(st *store.Store, ctrl *bulk.Controller, opts ...ServerOption) *Server {
	s := &Server{
		store:      st,
		controller: ctrl,
		corsOrigin: "*",
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

// Handler returns the root http.Handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(s.corsMiddleware, limitBody, jsonContent)

	r.Route("/api", func(r chi.Router) {
		r.Get("/poems", s.handleListPoems)
		r.Post("/poems", s.handleCreatePoem)
		r.Get("/poems/{id}", s.handleGetPoem)
		r.Post("/poems/{id}/accept", s.handleAccept)
		r.Post("/poems/{id}/delete", s.handleDelete)
		r.Put("/poems/{id}", s.handleEdit)

		r.Post("/evaluate", s.handleEvaluate)
		r.Get("/evaluate/status", s.handleEvaluateStatus)
		r.Get("/runs", s.handleRuns)

		r.Get("/export", s.handleExport)
		r.Post("/import", s.handleImport)
	})
	return r
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.corsOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// limitBody restricts the request body to maxRequestBody bytes.
func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
		next.ServeHTTP(w, r)
	})
}

func jsonContent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// ---------------------------------------------------------------------------
// Response helpers
// ---------------------------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
