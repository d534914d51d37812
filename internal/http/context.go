package http

import (
	"context"
	"log/slog"

	"github.com/souzalinux78/gestao-organista/internal/logging"
)

type contextKey string

const requestIDContextKey contextKey = "request_id"

// ContextWithLogger returns a derived context carrying the request scoped logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext extracts the request scoped logger if available.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}

// ContextWithRequestID injects the identifier assigned to the current request.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, requestID)
}

// RequestIDFromContext extracts the request identifier previously associated with the context.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDContextKey).(string)
	return id, ok
}

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// handlerLogger prefers the request scoped logger, which already carries the
// request id. A handler's own fallback logger gets the id attached here so
// log lines from handlers called outside RequestLogger still correlate.
func handlerLogger(ctx context.Context, fallback *slog.Logger, handler, operation string, attrs ...any) *slog.Logger {
	pairs := make([]any, 0, len(attrs)+6)
	logger := LoggerFromContext(ctx)
	if logger == nil {
		logger = defaultLogger(fallback)
		if id, ok := RequestIDFromContext(ctx); ok {
			pairs = append(pairs, "request_id", id)
		}
	}
	pairs = append(pairs, "handler", handler, "operation", operation)
	return logger.With(append(pairs, attrs...)...)
}
