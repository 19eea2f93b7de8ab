// Package httpapi exposes the user service over HTTP: a public read
// endpoint, an admin update endpoint, health and metrics.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/codewandler/userd-go/core/cqrs"
	"github.com/codewandler/userd-go/internal/config"
)

// Handler routes HTTP requests into the command and query dispatchers.
type Handler struct {
	commands *cqrs.CommandDispatcher
	queries  *cqrs.QueryDispatcher
	log      *slog.Logger
	metrics  http.Handler
}

type Option func(*Handler)

func WithLogger(log *slog.Logger) Option {
	return func(h *Handler) { h.log = log }
}

// WithMetricsHandler mounts handler at GET /metrics.
func WithMetricsHandler(handler http.Handler) Option {
	return func(h *Handler) { h.metrics = handler }
}

func NewHandler(commands *cqrs.CommandDispatcher, queries *cqrs.QueryDispatcher, opts ...Option) *Handler {
	h := &Handler{
		commands: commands,
		queries:  queries,
		log:      slog.Default().With(slog.String("component", "http")),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes builds the router. Domain endpoints are mounted under
// cfg.Prefix; health and metrics stay at the root.
func (h *Handler) Routes(cfg config.Server) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}

	r.Route(cfg.Prefix, func(r chi.Router) {
		r.Get("/users/{user_id}", h.getUser)
		r.Put("/admin/users/{user_id}", h.updateUser)
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.log.InfoContext(r.Context(), "request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
