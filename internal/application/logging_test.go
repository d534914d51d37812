package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/souzalinux78/gestao-organista/internal/cycle"
)

func TestDefaultLogger(t *testing.T) {
	t.Parallel()

	custom := slog.New(slog.NewTextHandler(io.Discard, nil))
	if got := defaultLogger(custom); got != custom {
		t.Fatalf("expected custom logger to be returned")
	}

	if got := defaultLogger(nil); got != slog.Default() {
		t.Fatalf("expected default logger when none provided")
	}
}

func TestServiceLoggerFallsBackToBase(t *testing.T) {
	t.Parallel()

	base := slog.New(slog.NewTextHandler(io.Discard, nil))
	if got := serviceLogger(context.Background(), base, "CycleService", "Add"); got == nil {
		t.Fatalf("expected a logger")
	}
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want string
	}{
		{err: nil, want: ""},
		{err: ErrNotFound, want: "not_found"},
		{err: ErrAlreadyExists, want: "already_exists"},
		{err: ErrConcurrencyConflict, want: "concurrency_conflict"},
		{err: fmt.Errorf("wrapped: %w", cycle.ErrUnknownCycle), want: "unknown_cycle"},
		{err: newValidationError("church_id", "church not found"), want: "validation"},
		{err: &cycle.DuplicateMusicianError{MusicianID: "m1"}, want: "duplicate_musician"},
		{err: fmt.Errorf("x: %w", &cycle.IndexOutOfRangeError{Len: 1}), want: "index_out_of_range"},
		{err: errors.New("boom"), want: "unexpected"},
	}
	for _, tc := range cases {
		if got := ErrorKind(tc.err); got != tc.want {
			t.Fatalf("ErrorKind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
