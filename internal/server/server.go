// Package server exposes the task repository over a JSON REST API under
// /api, with server-side views, statistics and CSV export.
package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/sadopc/taskboard/internal/clog"
	"github.com/sadopc/taskboard/internal/config"
	"github.com/sadopc/taskboard/internal/export"
	"github.com/sadopc/taskboard/internal/task"
	"github.com/sadopc/taskboard/internal/view"
)

const Version = "1.0"

type Server struct {
	mu           sync.Mutex
	server       *http.Server
	closed       bool
	env          *config.HTTPEnv
	logger       *slog.Logger
	repo         task.Repository
	columns      []view.Column
	exportPrefix string
	now          func() time.Time
}

type Option func(*Server)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

func WithExportPrefix(prefix string) Option {
	return func(s *Server) { s.exportPrefix = prefix }
}

func New(env *config.HTTPEnv, logger *slog.Logger, repo task.Repository, opts ...Option) *Server {
	s := &Server{
		env:          env,
		logger:       logger,
		repo:         repo,
		columns:      view.DefaultColumns(),
		exportPrefix: export.DefaultPrefix,
		now:          time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// apiFunc returns the response status and body, or an error that is
// written as a JSON error document.
type apiFunc func(r *http.Request) (int, any, error)

func (s *Server) handle(fn apiFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, body, err := fn(r)
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}
		if body == nil {
			w.WriteHeader(status)
			return
		}
		writeJSON(r.Context(), w, status, body)
	}
}

// Handler builds the router with CORS and request logging applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		clog.ChiMiddleware(s.logger),
		middleware.Recoverer,
	)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(r.Context(), w, NewError(CodeNotFound, "not found", nil))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(r.Context(), w, http.StatusMethodNotAllowed, httpError{Code: "method_not_allowed", Message: "method not allowed"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/", s.handle(s.health))
		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", s.handle(s.listTasks))
			r.Post("/", s.handle(s.createTask))
			r.Get("/{id}", s.handle(s.getTask))
			r.Patch("/{id}", s.handle(s.updateTask))
			r.Delete("/{id}", s.handle(s.deleteTask))
		})
		r.Get("/stats", s.handle(s.getStats))
		r.Get("/export.csv", s.exportCSV)
	})

	return cors.New(cors.Options{
		AllowedOrigins: s.env.AllowedOrigins(),
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(r)
}

// ListenAndServe starts the HTTP server. Requests inherit the values of ctx
// but not its cancellation, so in-flight requests finish during Shutdown.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := s.env.Addr()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return http.ErrServerClosed
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       baseContext(ctx),
	}
	s.server = srv
	s.mu.Unlock()

	s.logger.Info("starting server", "addr", addr)
	return srv.ListenAndServe()
}

func baseContext(ctx context.Context) func(net.Listener) context.Context {
	base := context.WithoutCancel(ctx)
	return func(net.Listener) context.Context { return base }
}

// Shutdown stops a running server gracefully. Called before
// ListenAndServe, it makes the later call return http.ErrServerClosed.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

type healthDoc struct {
	Message   string            `json:"message"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

func (s *Server) health(*http.Request) (int, any, error) {
	return http.StatusOK, healthDoc{
		Message: "Jira Statistics API is running",
		Version: Version,
		Endpoints: map[string]string{
			"tasks":  "/api/tasks",
			"stats":  "/api/stats",
			"export": "/api/export.csv",
		},
	}, nil
}
