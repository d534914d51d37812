package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/souzalinux78/gestao-organista/internal/cycle"
	"github.com/souzalinux78/gestao-organista/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = base
	}
	if logger == nil {
		logger = slog.Default()
	}

	pairs := []any{"service", serviceName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if len(attrs) > 0 {
		pairs = append(pairs, attrs...)
	}
	return logger.With(pairs...)
}

// ErrorKind maps sentinel and validation errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, ErrConcurrencyConflict):
		return "concurrency_conflict"
	case errors.Is(err, cycle.ErrUnknownCycle):
		return "unknown_cycle"
	}

	var (
		vErr   *ValidationError
		dupErr *cycle.DuplicateMusicianError
		idxErr *cycle.IndexOutOfRangeError
	)
	switch {
	case errors.As(err, &vErr):
		return "validation"
	case errors.As(err, &dupErr):
		return "duplicate_musician"
	case errors.As(err, &idxErr):
		return "index_out_of_range"
	}

	return "unexpected"
}
