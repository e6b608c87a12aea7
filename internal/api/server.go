// Package api serves a read-only HTTP view of a review run: tracking state,
// circuit breaker, artifacts and, while a run is in progress, live events.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/hugo-lorenzo-mato/crossreview/internal/breaker"
	"github.com/hugo-lorenzo-mato/crossreview/internal/events"
	"github.com/hugo-lorenzo-mato/crossreview/internal/logging"
	"github.com/hugo-lorenzo-mato/crossreview/internal/review"
	"github.com/hugo-lorenzo-mato/crossreview/internal/tracking"
)

// Server provides the HTTP endpoints.
type Server struct {
	router         chi.Router
	runState       func() (*tracking.State, error)
	circuitState   func() (breaker.Snapshot, []breaker.Transition, error)
	artifacts      *review.ArtifactStore
	eventBus       *events.Bus
	allowedOrigins []string
	logger         *logging.Logger
	now            func() time.Time
}

// ServerOption configures the server.
type ServerOption func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *logging.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithEventBus enables the live event stream.
func WithEventBus(bus *events.Bus) ServerOption {
	return func(s *Server) {
		s.eventBus = bus
	}
}

// WithLiveRun serves the run and circuit from the in-memory state of a run
// in this process instead of reading the files the run is writing.
func WithLiveRun(tr *tracking.Store, cb *breaker.CircuitBreaker) ServerOption {
	return func(s *Server) {
		s.runState = func() (*tracking.State, error) {
			return tr.State(), nil
		}
		s.circuitState = func() (breaker.Snapshot, []breaker.Transition, error) {
			return cb.Snapshot(), cb.History(), nil
		}
	}
}

// WithAllowedOrigins restricts CORS. An empty list allows any origin.
func WithAllowedOrigins(origins []string) ServerOption {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

// NewServer creates a new API server over the stores of one run directory.
// The stores are only read; corrupt files are reported, never repaired.
func NewServer(tr *tracking.Store, br *breaker.Store, artifacts *review.ArtifactStore, opts ...ServerOption) *Server {
	s := &Server{
		runState:     tr.Read,
		circuitState: br.Read,
		artifacts:    artifacts,
		logger:       logging.NewNop(),
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.router = s.setupRouter()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRouter configures Chi router with all routes and middleware.
func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.loggingMiddleware)

	origins := s.allowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		AllowCredentials: false,
		MaxAge:           300,
	})
	r.Use(corsHandler.Handler)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))

		r.Get("/health", s.handleHealth)

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/run", s.handleGetRun)

			r.Route("/circuit", func(r chi.Router) {
				r.Get("/", s.handleGetCircuit)
				r.Get("/history", s.handleGetCircuitHistory)
			})

			r.Route("/artifacts", func(r chi.Router) {
				r.Get("/", s.handleListArtifacts)
				r.Get("/{name}", s.handleGetArtifact)
			})
		})
	})

	// Streams outlive the request timeout.
	r.Get("/api/v1/events", s.handleSSE)

	return r
}

// loggingMiddleware logs HTTP requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"bytes", ww.BytesWritten(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// respondJSON sends a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.Error("failed to encode response", "error", err)
		}
	}
}

// respondError sends a JSON error body.
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   s.now().UTC().Format(time.RFC3339),
	})
}

// ListenAndServe starts the HTTP server and shuts it down when ctx ends.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("starting API server", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
