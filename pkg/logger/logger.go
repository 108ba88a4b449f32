package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
)

const serviceName = "hvac-backoffice"

// New builds the process logger on stdout. See NewWriter.
func New(appEnv string) *slog.Logger {
	return NewWriter(appEnv, os.Stdout)
}

// NewWriter builds a logger writing to w. local runs get a text handler for
// terminals; every other env logs JSON. local and dev log at debug.
// Every record carries service and env.
func NewWriter(appEnv string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if appEnv == "local" || appEnv == "dev" {
		opts.Level = slog.LevelDebug
	}

	var h slog.Handler
	if appEnv == "local" {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(h).With("service", serviceName, "env", appEnv)
}

type ctxKey struct{}

// With stores a logger in context.
func With(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// WithAttrs returns ctx carrying the context logger enriched with args, so
// everything downstream of a webhook logs its company and call.
func WithAttrs(ctx context.Context, args ...any) context.Context {
	return With(ctx, From(ctx).With(args...))
}

// From gets a logger from context, falling back to slog.Default().
func From(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}
