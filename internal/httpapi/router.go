package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/plumehq/plume/internal/permalink"
	"github.com/plumehq/plume/pkg/logger"
)

// Handler holds the HTTP layer's dependencies.
type Handler struct {
	svc    *permalink.Service
	auth   *Authenticator
	log    *slog.Logger
	checks map[string]func(ctx context.Context) error
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the request logger.
func WithLogger(log *slog.Logger) Option {
	return func(h *Handler) {
		h.log = log
	}
}

// WithHealthcheck registers a named dependency probe for /healthz.
func WithHealthcheck(name string, check func(ctx context.Context) error) Option {
	return func(h *Handler) {
		h.checks[name] = check
	}
}

// NewRouter assembles the full route tree: public resolver routes at the
// root, authenticated management routes under /api.
func NewRouter(svc *permalink.Service, auth *Authenticator, opts ...Option) http.Handler {
	h := &Handler{
		svc:    svc,
		auth:   auth,
		log:    logger.NewNop(),
		checks: make(map[string]func(ctx context.Context) error),
	}
	for _, opt := range opts {
		opt(h)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", h.healthz)

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware)
		r.Post("/posts", h.createPost)
		r.Post("/posts/{id}/rename", h.renamePost)
		r.Get("/slugs/check", h.checkSlug)
		r.Get("/slugs/suggest", h.suggestSlug)
		r.Put("/account/handle", h.updateHandle)
	})

	r.Get("/p/{id}", h.locatePost)
	r.Get("/{handle}", h.resolveOwner)
	r.Get("/{handle}/{slug}", h.resolveContent)

	return r
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		h.log.InfoContext(r.Context(), "request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	out := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(r.Context()); err != nil {
			status = http.StatusServiceUnavailable
			out[name] = err.Error()
			continue
		}
		out[name] = "ok"
	}
	writeJSON(w, status, out)
}
