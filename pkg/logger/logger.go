// Package logger builds the application's slog loggers: JSON to stdout,
// optionally teed to Sentry for warnings and errors.
package logger

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
)

// Config holds logging configuration, populated from the environment.
type Config struct {
	// SentryDSN enables Sentry fan-out when non-empty.
	SentryDSN string `env:"SENTRY_DSN"`

	// Environment tags events in Sentry (production, staging, ...).
	Environment string `env:"SENTRY_ENVIRONMENT" envDefault:"production"`
}

// New creates a JSON logger writing to stdout. When cfg.SentryDSN is set,
// errors additionally create Sentry issues and warnings are forwarded as
// Sentry logs. A failed Sentry init degrades to stdout-only logging rather
// than aborting startup.
func New(cfg Config) *slog.Logger {
	stdout := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})

	if cfg.SentryDSN == "" {
		return slog.New(stdout)
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.SentryDSN,
		Environment: cfg.Environment,
		EnableLogs:  true,
	}); err != nil {
		log := slog.New(stdout)
		log.Error("sentry init failed, falling back to stdout only", slog.String("error", err.Error()))
		return log
	}

	sentryHandler := sentryslog.Option{
		EventLevel: []slog.Level{slog.LevelError},
		LogLevel:   []slog.Level{slog.LevelWarn, slog.LevelError},
	}.NewSentryHandler(context.Background())

	return slog.New(&teeHandler{console: stdout, sentry: sentryHandler})
}

// NewNop returns a logger that discards everything. Used as the default in
// constructors that accept an optional logger.
func NewNop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// teeHandler writes every record to the console and forwards the subset
// the Sentry handler accepts. Unlike a generic fan-out it keeps going when
// one side fails, reporting the combined error afterwards: losing the
// console line is no reason to also lose the Sentry event, or vice versa.
type teeHandler struct {
	console slog.Handler
	sentry  slog.Handler
}

func (h *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.console.Enabled(ctx, level) || h.sentry.Enabled(ctx, level)
}

func (h *teeHandler) Handle(ctx context.Context, rec slog.Record) error {
	var errs []error
	if h.console.Enabled(ctx, rec.Level) {
		errs = append(errs, h.console.Handle(ctx, rec.Clone()))
	}
	if h.sentry.Enabled(ctx, rec.Level) {
		errs = append(errs, h.sentry.Handle(ctx, rec.Clone()))
	}
	return errors.Join(errs...)
}

func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &teeHandler{
		console: h.console.WithAttrs(attrs),
		sentry:  h.sentry.WithAttrs(attrs),
	}
}

func (h *teeHandler) WithGroup(name string) slog.Handler {
	return &teeHandler{
		console: h.console.WithGroup(name),
		sentry:  h.sentry.WithGroup(name),
	}
}
