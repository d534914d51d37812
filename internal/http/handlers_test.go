package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/souzalinux78/gestao-organista/internal/application"
	"github.com/souzalinux78/gestao-organista/internal/coverage"
	"github.com/souzalinux78/gestao-organista/internal/cycle"
	"github.com/souzalinux78/gestao-organista/internal/rotation"
	"github.com/souzalinux78/gestao-organista/internal/scheduler"
)

type testServer struct {
	cycles    *fakeCycles
	rotation  *fakeRotation
	schedules *fakeSchedules
	dashboard *fakeDashboard
	handler   http.Handler
}

func newTestServer() *testServer {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := &testServer{
		cycles:    &fakeCycles{},
		rotation:  &fakeRotation{},
		schedules: &fakeSchedules{},
		dashboard: &fakeDashboard{},
	}
	s.handler = NewRouter(RouterConfig{
		Cycles:     NewCycleHandler(s.cycles, logger),
		Rotation:   NewRotationHandler(s.rotation, testLocation, logger),
		Schedules:  NewScheduleHandler(s.schedules, testLocation, logger),
		Dashboard:  NewDashboardHandler(s.dashboard, testLocation, logger),
		Middleware: []func(http.Handler) http.Handler{RequestLogger(logger), Recoverer(logger)},
	})
	return s
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload), rec.Body.String())
	return payload
}

func TestCycleHandlers(t *testing.T) {
	t.Parallel()

	t.Run("current renders the working copy", func(t *testing.T) {
		t.Parallel()
		s := newTestServer()
		s.cycles.view = application.CycleView{
			ChurchID: "c1",
			Number:   1,
			Entries:  []application.CycleEntry{{Position: 0, MusicianID: "A", Name: "Organista A", Certified: true, Active: true}},
		}

		rec := s.do(http.MethodGet, "/churches/c1/cycles/1", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "c1", s.cycles.church)
		assert.Equal(t, 1, s.cycles.number)
		payload := decodeBody(t, rec)
		entries := payload["entries"].([]any)
		require.Len(t, entries, 1)
		assert.Equal(t, "A", entries[0].(map[string]any)["musician_id"])
	})

	t.Run("empty cycles render an empty list", func(t *testing.T) {
		t.Parallel()
		s := newTestServer()
		s.cycles.view = application.CycleView{ChurchID: "c1", Number: 2}

		rec := s.do(http.MethodPost, "/churches/c1/cycles/2/save", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"entries":[]`)
		assert.Equal(t, []string{"save"}, s.cycles.calls)
	})

	t.Run("edits forward their arguments", func(t *testing.T) {
		t.Parallel()
		s := newTestServer()

		require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/churches/c1/cycles/1/musicians", `{"musician_id":" D "}`).Code)
		require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/churches/c1/cycles/1/moves", `{"from":3,"to":0}`).Code)
		require.Equal(t, http.StatusOK, s.do(http.MethodDelete, "/churches/c1/cycles/1/items/2", "").Code)

		assert.Equal(t, []string{"add", "move", "remove"}, s.cycles.calls)
		assert.Equal(t, "D", s.cycles.added)
		assert.Equal(t, 3, s.cycles.from)
		assert.Equal(t, 0, s.cycles.to)
		assert.Equal(t, 2, s.cycles.index)
	})

	t.Run("malformed requests are rejected before the service", func(t *testing.T) {
		t.Parallel()
		cases := []struct {
			name    string
			method  string
			path    string
			body    string
			message string
		}{
			{"cycle number", http.MethodGet, "/churches/c1/cycles/um", "", errInvalidCycle.Error()},
			{"index", http.MethodDelete, "/churches/c1/cycles/1/items/x", "", errInvalidIndex.Error()},
			{"move without target", http.MethodPost, "/churches/c1/cycles/1/moves", `{"from":1}`, errBadRequestBody.Error()},
			{"add body", http.MethodPost, "/churches/c1/cycles/1/musicians", `{`, errBadRequestBody.Error()},
		}
		for _, tc := range cases {
			s := newTestServer()
			rec := s.do(tc.method, tc.path, tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, tc.name)
			assert.Equal(t, tc.message, decodeBody(t, rec)["message"], tc.name)
			assert.Empty(t, s.cycles.calls, tc.name)
		}
	})
}

func TestServiceErrorMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", application.ErrNotFound, http.StatusNotFound, ""},
		{"unknown cycle", cycle.ErrUnknownCycle, http.StatusNotFound, ""},
		{"concurrent", application.ErrConcurrencyConflict, http.StatusConflict, "CONCURRENT_OPERATION"},
		{"already exists", application.ErrAlreadyExists, http.StatusConflict, ""},
		{"duplicate musician", &cycle.DuplicateMusicianError{MusicianID: "A"}, http.StatusConflict, "DUPLICATE_MUSICIAN"},
		{"index out of range", &cycle.IndexOutOfRangeError{Index: 9, Len: 3}, http.StatusUnprocessableEntity, "INDEX_OUT_OF_RANGE"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s := newTestServer()
			s.cycles.err = tc.err

			rec := s.do(http.MethodPost, "/churches/c1/cycles/1/musicians", `{"musician_id":"A"}`)

			require.Equal(t, tc.status, rec.Code)
			payload := decodeBody(t, rec)
			if tc.code == "" {
				assert.NotContains(t, payload, "error_code")
			} else {
				assert.Equal(t, tc.code, payload["error_code"])
			}
			assert.NotEmpty(t, payload["message"])
			assert.NotContains(t, rec.Body.String(), "boom")
		})
	}

	t.Run("validation errors are translated", func(t *testing.T) {
		t.Parallel()
		s := newTestServer()
		s.cycles.err = &application.ValidationError{FieldErrors: map[string]string{
			"musician_id": "musician not found",
			"church_id":   "church id is required",
		}}

		rec := s.do(http.MethodPost, "/churches/c1/cycles/1/musicians", `{"musician_id":"Z"}`)

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		payload := decodeBody(t, rec)
		assert.Equal(t, "Há erros nos dados informados.", payload["message"])
		fields := payload["errors"].(map[string]any)
		assert.Equal(t, "Organista não encontrada.", fields["musician_id"])
		assert.Equal(t, "Campo obrigatório: church id", fields["church_id"])
	})
}

func TestRotationHandlers(t *testing.T) {
	t.Parallel()

	t.Run("preview renders civil dates", func(t *testing.T) {
		t.Parallel()
		s := newTestServer()
		s.rotation.preview = application.PreviewResult{
			ChurchID:  "c1",
			StartDate: day(2026, 3, 1),
			EndDate:   day(2026, 3, 8),
			Items: []scheduler.Assignment{{
				Date: day(2026, 3, 1), Time: "10:00", ServiceID: "svc-sun", ServiceName: "Culto Domingo",
				ServiceType: scheduler.ServiceOfficial, Role: scheduler.RolePrelude,
				MusicianID: "B", MusicianName: "Organista B", CycleNumber: 1,
			}},
			Gaps: []rotation.Gap{{Date: day(2026, 3, 4), ServiceID: "svc-wed", CycleNumber: 2, Role: scheduler.RoleService, Reason: rotation.ReasonEmptyCycle}},
		}

		rec := s.do(http.MethodPost, "/churches/c1/rotation/preview",
			`{"start_date":"2026-03-01","end_date":"2026-03-08","starting_cycle":1,"starting_musician_id":"C"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		params := s.rotation.lastPreview
		assert.Equal(t, "c1", params.ChurchID)
		require.NotNil(t, params.StartDate)
		require.NotNil(t, params.EndDate)
		assert.True(t, params.StartDate.Equal(day(2026, 3, 1)))
		assert.True(t, params.EndDate.Equal(day(2026, 3, 8)))
		assert.Equal(t, 1, params.StartingCycle)
		assert.Equal(t, "C", params.StartingMusicianID)

		payload := decodeBody(t, rec)
		assert.Equal(t, "2026-03-01", payload["start_date"])
		item := payload["items"].([]any)[0].(map[string]any)
		assert.Equal(t, "2026-03-01", item["date"])
		assert.Equal(t, "Domingo", item["weekday"])
		assert.Equal(t, "prelude", item["role"])
		assert.Equal(t, "official", item["service_type"])
		gap := payload["gaps"].([]any)[0].(map[string]any)
		assert.Equal(t, "empty_cycle", gap["reason"])
		assert.Equal(t, "2026-03-04", gap["date"])
	})

	t.Run("preview accepts an empty body", func(t *testing.T) {
		t.Parallel()
		s := newTestServer()

		rec := s.do(http.MethodPost, "/churches/c1/rotation/preview", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Nil(t, s.rotation.lastPreview.StartDate)
		assert.Nil(t, s.rotation.lastPreview.EndDate)
		assert.Contains(t, rec.Body.String(), `"items":[]`)
	})

	t.Run("preview rejects malformed dates", func(t *testing.T) {
		t.Parallel()
		s := newTestServer()

		rec := s.do(http.MethodPost, "/churches/c1/rotation/preview", `{"start_date":"01/03/2026"}`)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, errInvalidDate.Error(), decodeBody(t, rec)["message"])
	})

	t.Run("regenerate forwards the cutover date", func(t *testing.T) {
		t.Parallel()
		s := newTestServer()
		s.rotation.regenerate = application.RegenerateResult{FromDate: day(2026, 3, 15), ScheduleIDs: []string{"schedule-a"}, ItemCount: 8}

		rec := s.do(http.MethodPost, "/churches/c1/rotation/regenerate", `{"from_date":"2026-03-15"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, s.rotation.lastRegen.FromDate.Equal(day(2026, 3, 15)))
		payload := decodeBody(t, rec)
		assert.Equal(t, "2026-03-15", payload["from_date"])
		assert.EqualValues(t, 8, payload["item_count"])
		assert.Equal(t, []any{"schedule-a"}, payload["schedule_ids"])
	})

	t.Run("regenerate reports a missing schedule", func(t *testing.T) {
		t.Parallel()
		s := newTestServer()
		s.rotation.err = &application.ValidationError{FieldErrors: map[string]string{"from_date": "no saved schedule covers the date"}}

		rec := s.do(http.MethodPost, "/churches/c1/rotation/regenerate", `{"from_date":"2027-01-01"}`)

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		fields := decodeBody(t, rec)["errors"].(map[string]any)
		assert.Equal(t, "Nenhuma escala salva cobre a data informada.", fields["from_date"])
	})
}

func TestScheduleHandlers(t *testing.T) {
	t.Parallel()

	march := scheduler.Schedule{
		ID:            "schedule-a",
		ChurchID:      "c1",
		ReferenceName: "Março 2026",
		StartDate:     day(2026, 3, 1),
		EndDate:       day(2026, 3, 31),
		Status:        scheduler.ScheduleDraft,
		Items: []scheduler.Assignment{{
			Date: day(2026, 3, 1), Time: "10:00", ServiceID: "svc-sun", Role: scheduler.RoleService,
			ServiceType: scheduler.ServiceOfficial, MusicianID: "A", MusicianName: "Organista A", CycleNumber: 1,
		}},
	}

	t.Run("create without items asks for generation", func(t *testing.T) {
		t.Parallel()
		s := newTestServer()
		s.schedules.schedule = march

		rec := s.do(http.MethodPost, "/churches/c1/schedules",
			`{"reference_name":"Março 2026","start_date":"2026-03-01","end_date":"2026-03-31"}`)

		require.Equal(t, http.StatusCreated, rec.Code)
		params := s.schedules.lastSave
		assert.Equal(t, "c1", params.ChurchID)
		assert.Nil(t, params.Items)
		assert.True(t, params.EndDate.Equal(day(2026, 3, 31)))
		payload := decodeBody(t, rec)
		assert.Equal(t, "schedule-a", payload["id"])
		assert.Equal(t, "draft", payload["status"])
		assert.Len(t, payload["items"], 1)
	})

	t.Run("create keeps explicit items", func(t *testing.T) {
		t.Parallel()
		s := newTestServer()
		s.schedules.schedule = march

		rec := s.do(http.MethodPost, "/churches/c1/schedules", `{
			"reference_name":"Março","start_date":"2026-03-01","end_date":"2026-03-31","status":"Published",
			"items":[{"date":"2026-03-01","time":"10:00","service_id":"svc-sun","role":"meia_hora","musician_id":"B"}]}`)

		require.Equal(t, http.StatusCreated, rec.Code)
		params := s.schedules.lastSave
		assert.Equal(t, scheduler.SchedulePublished, params.Status)
		require.Len(t, params.Items, 1)
		assert.Equal(t, scheduler.RolePrelude, params.Items[0].Role)
		assert.Equal(t, "B", params.Items[0].MusicianID)
		assert.True(t, params.Items[0].Date.Equal(day(2026, 3, 1)))
	})

	t.Run("create with an empty list saves no items", func(t *testing.T) {
		t.Parallel()
		s := newTestServer()

		rec := s.do(http.MethodPost, "/churches/c1/schedules",
			`{"reference_name":"Vazia","start_date":"2026-03-01","end_date":"2026-03-31","items":[]}`)

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.NotNil(t, s.schedules.lastSave.Items)
		assert.Empty(t, s.schedules.lastSave.Items)
	})

	t.Run("create rejects unknown roles", func(t *testing.T) {
		t.Parallel()
		s := newTestServer()

		rec := s.do(http.MethodPost, "/churches/c1/schedules",
			`{"reference_name":"X","start_date":"2026-03-01","end_date":"2026-03-31","items":[{"date":"2026-03-01","role":"solo"}]}`)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, errBadRequestBody.Error(), decodeBody(t, rec)["message"])
	})

	t.Run("list filters by window and omits items", func(t *testing.T) {
		t.Parallel()
		s := newTestServer()
		s.schedules.schedules = []scheduler.Schedule{march}

		rec := s.do(http.MethodGet, "/churches/c1/schedules?from=2026-03-01&to=2026-03-31", "")

		require.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, s.schedules.lastList.From)
		require.NotNil(t, s.schedules.lastList.To)
		assert.True(t, s.schedules.lastList.To.Equal(day(2026, 3, 31)))
		schedules := decodeBody(t, rec)["schedules"].([]any)
		require.Len(t, schedules, 1)
		assert.NotContains(t, schedules[0].(map[string]any), "items")
	})

	t.Run("get maps missing schedules to 404", func(t *testing.T) {
		t.Parallel()
		s := newTestServer()
		s.schedules.err = application.ErrNotFound

		rec := s.do(http.MethodGet, "/schedules/nope", "")

		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "O recurso solicitado não foi encontrado.", decodeBody(t, rec)["message"])
	})

	t.Run("update replaces items", func(t *testing.T) {
		t.Parallel()
		s := newTestServer()
		s.schedules.schedule = march

		rec := s.do(http.MethodPut, "/schedules/schedule-a",
			`{"reference_name":"Março","start_date":"2026-03-01","end_date":"2026-03-31"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "schedule-a", s.schedules.lastUpdate.ScheduleID)
		assert.NotNil(t, s.schedules.lastUpdate.Items)
	})

	t.Run("delete answers no content", func(t *testing.T) {
		t.Parallel()
		s := newTestServer()

		rec := s.do(http.MethodDelete, "/schedules/schedule-a", "")

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "schedule-a", s.schedules.deleted)
		assert.Empty(t, rec.Body.String())
	})

	t.Run("export streams a named csv", func(t *testing.T) {
		t.Parallel()
		s := newTestServer()
		s.schedules.schedule = march
		s.schedules.exported = "data;dia_semana;hora;ciclo;funcao;organista;telefone;igreja\n"

		rec := s.do(http.MethodGet, "/schedules/schedule-a/export", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="marco-2026.csv"`, rec.Header().Get("Content-Disposition"))
		assert.Equal(t, s.schedules.exported, rec.Body.String())
	})

	t.Run("export failures stay json", func(t *testing.T) {
		t.Parallel()
		s := newTestServer()
		s.schedules.err = application.ErrNotFound

		rec := s.do(http.MethodGet, "/schedules/nope/export", "")

		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	})

	t.Run("import passes the file and reports duplicates", func(t *testing.T) {
		t.Parallel()
		s := newTestServer()
		s.schedules.imported = application.ImportResult{Schedule: march, DuplicateLines: []int{4}}
		file := "data;dia_semana;hora;ciclo;funcao;organista;telefone;igreja\n01/03/2026;Domingo;10:00;1;culto;Organista A;;Central\n"

		rec := s.do(http.MethodPost, "/churches/c1/schedules/import?reference_name=Mar%C3%A7o", file)

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, file, s.schedules.lastImport)
		assert.Equal(t, "Março", s.schedules.importName)
		payload := decodeBody(t, rec)
		assert.Equal(t, []any{float64(4)}, payload["duplicate_lines"])
		assert.Equal(t, "schedule-a", payload["schedule"].(map[string]any)["id"])
	})

	t.Run("import requires a body", func(t *testing.T) {
		t.Parallel()
		s := newTestServer()

		rec := s.do(http.MethodPost, "/churches/c1/schedules/import?reference_name=X", "")

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, errMissingFile.Error(), decodeBody(t, rec)["message"])
	})

	t.Run("import row errors are translated", func(t *testing.T) {
		t.Parallel()
		s := newTestServer()
		s.schedules.err = &application.ValidationError{FieldErrors: map[string]string{
			"line 2": "no service matches the date and time",
			"line 3": "column data is invalid",
		}}

		rec := s.do(http.MethodPost, "/churches/c1/schedules/import?reference_name=X", "qualquer coisa")

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		fields := decodeBody(t, rec)["errors"].(map[string]any)
		assert.Equal(t, "Nenhum culto corresponde à data e ao horário.", fields["line 2"])
		assert.Equal(t, "Coluna inválida: data", fields["line 3"])
	})
}

func TestDashboardHandler(t *testing.T) {
	t.Parallel()

	t.Run("renders the snapshot", func(t *testing.T) {
		t.Parallel()
		s := newTestServer()
		s.dashboard.snapshot = coverage.Snapshot{
			PeriodStart:       day(2026, 3, 1),
			PeriodEnd:         day(2026, 3, 14),
			ExpectedSlotCount: 14,
			CoveredSlotCount:  2,
			CoveragePercent:   14,
			TypeDistribution:  coverage.TypeDistribution{Service: 1, Prelude: 1},
			Missing:           []coverage.Slot{{Date: day(2026, 3, 4), ServiceID: "svc-wed", Role: scheduler.RoleService}},
		}

		rec := s.do(http.MethodGet, "/churches/c1/dashboard?start=2026-03-01&end=2026-03-14", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, s.dashboard.last.Start.Equal(day(2026, 3, 1)))
		assert.True(t, s.dashboard.last.End.Equal(day(2026, 3, 14)))
		payload := decodeBody(t, rec)
		assert.Equal(t, "c1", payload["church_id"])
		assert.Equal(t, "2026-03-14", payload["period_end"])
		assert.EqualValues(t, 14, payload["coverage_percent"])
		missing := payload["missing"].([]any)
		require.Len(t, missing, 1)
		assert.Equal(t, "service", missing[0].(map[string]any)["role"])
	})

	t.Run("defaults leave the period to the service", func(t *testing.T) {
		t.Parallel()
		s := newTestServer()

		rec := s.do(http.MethodGet, "/churches/c1/dashboard", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, s.dashboard.last.Start.IsZero())
		assert.True(t, s.dashboard.last.End.IsZero())
	})

	t.Run("rejects malformed dates", func(t *testing.T) {
		t.Parallel()
		s := newTestServer()

		rec := s.do(http.MethodGet, "/churches/c1/dashboard?start=marco", "")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRouterRejectsUnknownMethods(t *testing.T) {
	t.Parallel()
	s := newTestServer()

	rec := s.do(http.MethodPatch, "/schedules/schedule-a", "")

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.StatusNoContent, s.do(http.MethodGet, "/healthz", "").Code)
}
