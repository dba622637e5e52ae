package server

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/yujing9528/go-todo-api/internal/middleware"
	"github.com/yujing9528/go-todo-api/internal/stats"
	"github.com/yujing9528/go-todo-api/internal/todo"
)

const Version = "1.0.0"

type Options struct {
	Todos  *todo.Store
	Stats  *stats.Store
	Logger *logrus.Logger

	// CORSAllowAll opens the API to every origin.
	CORSAllowAll bool
	// LazyInit runs Todos.Init before each request instead of at startup.
	LazyInit bool
}

func NewRouter(opts Options) http.Handler {
	// middleware order: request id first so every log line carries it
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(opts.Logger))
	r.Use(middleware.Metrics)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	if opts.CORSAllowAll {
		r.Use(middleware.AllowAllCORS())
	}

	s := &service{todos: opts.Todos, logger: opts.Logger}

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Get("/test", s.handleTest)
	r.Method(http.MethodGet, "/metrics", middleware.MetricsHandler())

	r.Group(func(r chi.Router) {
		if opts.LazyInit {
			r.Use(s.ensureInit)
		}
		todo.NewHandler(opts.Todos, opts.Logger).Register(r)
		stats.NewHandler(opts.Stats, opts.Logger).Register(r)
	})

	return r
}

type service struct {
	todos  *todo.Store
	logger *logrus.Logger
}

func (s *service) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"message": "Todo API",
		"status":  "working",
		"version": Version,
	})
}

// handleTest is a liveness check that never touches the database.
func (s *service) handleTest(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"message":   "Test endpoint working",
		"framework": "chi",
		"platform":  runtime.GOOS + "/" + runtime.GOARCH,
	})
}

func (s *service) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.todos.Ping(ctx); err != nil {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"detail": err.Error(),
		})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// ensureInit creates the schema on the first request; the store makes
// later calls free.
func (s *service) ensureInit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := s.todos.Init(r.Context()); err != nil {
			s.logger.WithError(err).Error("store init failed")
			s.writeJSON(w, http.StatusInternalServerError, map[string]string{
				"detail": "Internal server error: " + err.Error(),
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *service) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Warn("json encode error")
	}
}
