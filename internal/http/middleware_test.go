package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestLogger(t *testing.T) {
	t.Parallel()

	t.Run("assigns an identifier and logs completion", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&buf, nil))

		var seen string
		handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := RequestIDFromContext(r.Context())
			require.True(t, ok)
			seen = id
			require.NotNil(t, LoggerFromContext(r.Context()))
			w.WriteHeader(http.StatusTeapot)
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/churches/c1/dashboard", nil))

		_, err := uuid.Parse(seen)
		require.NoError(t, err)
		assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 2)
		var completed map[string]any
		require.NoError(t, json.Unmarshal([]byte(lines[1]), &completed))
		assert.Equal(t, "request completed", completed["msg"])
		assert.EqualValues(t, http.StatusTeapot, completed["status"])
		assert.Equal(t, seen, completed["request_id"])
		assert.Equal(t, "/churches/c1/dashboard", completed["path"])
	})

	t.Run("reuses a well formed client identifier", func(t *testing.T) {
		t.Parallel()
		logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
		handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		clientID := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, clientID)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, clientID, rec.Header().Get(RequestIDHeader))

		req = httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "not-a-uuid\nforged")
		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.NotEqual(t, "not-a-uuid\nforged", rec.Header().Get(RequestIDHeader))
		_, err := uuid.Parse(rec.Header().Get(RequestIDHeader))
		assert.NoError(t, err)
	})
}

func TestRecoverer(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	handler := Recoverer(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("cycle store corrupted")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var payload errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "Ocorreu um erro interno no servidor.", payload.Message)
	assert.Contains(t, buf.String(), "handler panicked")
	assert.NotContains(t, rec.Body.String(), "corrupted")
}

func TestRecovererRepanicsAbort(t *testing.T) {
	t.Parallel()

	handler := Recoverer(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestHandlerLogger(t *testing.T) {
	t.Parallel()

	decode := func(t *testing.T, buf *bytes.Buffer) map[string]any {
		t.Helper()
		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		return entry
	}

	t.Run("fallback logger gets the request id", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		fallback := slog.New(slog.NewJSONHandler(&buf, nil))
		ctx := ContextWithRequestID(context.Background(), "req-1")

		handlerLogger(ctx, fallback, "ScheduleHandler", "Export", "schedule_id", "escala-1").Info("exported")

		entry := decode(t, &buf)
		assert.Equal(t, "req-1", entry["request_id"])
		assert.Equal(t, "ScheduleHandler", entry["handler"])
		assert.Equal(t, "Export", entry["operation"])
		assert.Equal(t, "escala-1", entry["schedule_id"])
	})

	t.Run("request scoped logger wins over the fallback", func(t *testing.T) {
		t.Parallel()
		var scoped, fallback bytes.Buffer
		ctx := ContextWithLogger(context.Background(), slog.New(slog.NewJSONHandler(&scoped, nil)))

		handlerLogger(ctx, slog.New(slog.NewJSONHandler(&fallback, nil)), "CycleHandler", "Move").Info("moved")

		assert.Zero(t, fallback.Len())
		entry := decode(t, &scoped)
		assert.Equal(t, "CycleHandler", entry["handler"])
		assert.NotContains(t, entry, "request_id")
	})
}
