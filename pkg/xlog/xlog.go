// Package xlog configures log/slog for console and rotated file output.
package xlog

import (
	"context"
	"log/slog"
	"sync/atomic"
)

var defaultLogger atomic.Value

func init() {
	defaultLogger.Store(New(NewConfig()))
}

// Default returns the default Logger.
func Default() *slog.Logger { return defaultLogger.Load().(*slog.Logger) }

// SetDefault makes l the default Logger.
func SetDefault(l *slog.Logger) {
	defaultLogger.Store(l)
}

// C is a short alias of FromContext function.
var C = FromContext

type contextKey struct{}

// FromContext gets the Logger from context, if not found then returns the
// default one.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		ctx = context.Background()
	}
	logger, ok := ctx.Value(contextKey{}).(*slog.Logger)
	if !ok {
		logger = Default()
	}
	return logger
}

// WithContext injects a Logger with the given attributes into ctx and returns
// a new child context.
func WithContext(ctx context.Context, args ...any) context.Context {
	logger := FromContext(ctx).With(args...)
	return context.WithValue(ctx, contextKey{}, logger)
}
