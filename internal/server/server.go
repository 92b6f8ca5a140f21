// Package server runs the HTTP listener with graceful shutdown.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/plumehq/plume/internal/config"
	"github.com/plumehq/plume/pkg/logger"
)

// Server wraps http.Server with signal handling and ordered shutdown
// hooks.
type Server struct {
	cfg   config.HTTP
	log   *slog.Logger
	hooks []func(ctx context.Context) error
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		s.log = log
	}
}

// WithShutdownHook registers fn to run after the listener has drained.
// Hooks run in registration order; use it to close pools and clients.
func WithShutdownHook(fn func(ctx context.Context) error) Option {
	return func(s *Server) {
		s.hooks = append(s.hooks, fn)
	}
}

// New creates a Server.
func New(cfg config.HTTP, opts ...Option) *Server {
	s := &Server{
		cfg: cfg,
		log: logger.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run serves handler until the context is canceled or SIGINT/SIGTERM
// arrives, then shuts down gracefully within the configured timeout.
func (s *Server) Run(ctx context.Context, handler http.Handler) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           handler,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       2 * time.Minute,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("server starting", slog.String("address", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()

		s.log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()

		errs := []error{srv.Shutdown(shutdownCtx)}
		for _, hook := range s.hooks {
			if err := hook(shutdownCtx); err != nil {
				s.log.Error("shutdown hook failed", slog.Any("error", err))
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	s.log.Info("shutdown completed")
	return nil
}
