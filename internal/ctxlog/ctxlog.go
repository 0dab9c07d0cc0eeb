// Package ctxlog carries a slog.Logger through context.Context so that
// deeply nested resolution code can log without threading a logger argument.
package ctxlog

import (
	"context"
	"log/slog"
)

// key is an unexported type to avoid collisions with context keys from other packages.
type key struct{}

var loggerKey = key{}

// WithLogger returns a new context with the provided logger embedded.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext extracts the slog.Logger from a context. Callers are expected
// to install one near the entrypoint; falling back to the global default
// keeps library code usable from tests.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}
