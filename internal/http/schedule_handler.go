package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/souzalinux78/gestao-organista/internal/application"
	"github.com/souzalinux78/gestao-organista/internal/calendar"
	"github.com/souzalinux78/gestao-organista/internal/normalize"
	"github.com/souzalinux78/gestao-organista/internal/scheduler"
)

// maxImportSize bounds the CSV body accepted by Import.
const maxImportSize = 2 << 20

type scheduleService interface {
	SaveSchedule(ctx context.Context, params application.SaveScheduleParams) (scheduler.Schedule, error)
	GetSchedule(ctx context.Context, id string) (scheduler.Schedule, error)
	ListSchedules(ctx context.Context, params application.ListSchedulesParams) ([]scheduler.Schedule, error)
	UpdateSchedule(ctx context.Context, params application.UpdateScheduleParams) (scheduler.Schedule, error)
	DeleteSchedule(ctx context.Context, id string) error
	Export(ctx context.Context, id string, w io.Writer) (scheduler.Schedule, error)
	Import(ctx context.Context, params application.ImportParams) (application.ImportResult, error)
}

// ScheduleHandler exposes saved schedules (escalas).
type ScheduleHandler struct {
	service   scheduleService
	location  *time.Location
	responder responder
	logger    *slog.Logger
}

func NewScheduleHandler(service scheduleService, loc *time.Location, logger *slog.Logger) *ScheduleHandler {
	if loc == nil {
		loc = calendar.DefaultLocation()
	}
	return &ScheduleHandler{service: service, location: loc, responder: newResponder(logger), logger: defaultLogger(logger)}
}

type scheduleRequest struct {
	ReferenceName string          `json:"reference_name"`
	StartDate     string          `json:"start_date"`
	EndDate       string          `json:"end_date"`
	Status        string          `json:"status"`
	Items         []assignmentDTO `json:"items"`
}

type listSchedulesResponse struct {
	Schedules []scheduleDTO `json:"schedules"`
}

type importResponse struct {
	Schedule       scheduleDTO `json:"schedule"`
	DuplicateLines []int       `json:"duplicate_lines,omitempty"`
}

func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	churchID := strings.TrimSpace(r.PathValue("church"))
	if churchID == "" {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errInvalidChurchID)
		return
	}

	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	start, end, items, err := req.parse(h.location)
	if err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}

	schedule, err := h.service.SaveSchedule(ctx, application.SaveScheduleParams{
		ChurchID:      churchID,
		ReferenceName: req.ReferenceName,
		StartDate:     start,
		EndDate:       end,
		Status:        scheduler.ScheduleStatus(strings.ToLower(strings.TrimSpace(req.Status))),
		Items:         items,
	})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusCreated, toScheduleDTO(schedule))
}

func (h *ScheduleHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.scheduleID(w, r)
	if !ok {
		return
	}
	schedule, err := h.service.GetSchedule(ctx, id)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, toScheduleDTO(schedule))
}

func (h *ScheduleHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	churchID := strings.TrimSpace(r.PathValue("church"))
	if churchID == "" {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errInvalidChurchID)
		return
	}
	params, err := buildListParams(r.URL.Query(), churchID, h.location)
	if err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errInvalidDate)
		return
	}

	schedules, err := h.service.ListSchedules(ctx, params)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	response := listSchedulesResponse{Schedules: make([]scheduleDTO, 0, len(schedules))}
	for _, schedule := range schedules {
		schedule.Items = nil
		response.Schedules = append(response.Schedules, toScheduleDTO(schedule))
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, response)
}

func (h *ScheduleHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.scheduleID(w, r)
	if !ok {
		return
	}

	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	start, end, items, err := req.parse(h.location)
	if err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}
	if items == nil {
		items = []scheduler.Assignment{}
	}

	schedule, err := h.service.UpdateSchedule(ctx, application.UpdateScheduleParams{
		ScheduleID:    id,
		ReferenceName: req.ReferenceName,
		StartDate:     start,
		EndDate:       end,
		Status:        scheduler.ScheduleStatus(strings.ToLower(strings.TrimSpace(req.Status))),
		Items:         items,
	})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, toScheduleDTO(schedule))
}

func (h *ScheduleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.scheduleID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteSchedule(ctx, id); err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusNoContent, nil)
}

// Export streams the schedule as a semicolon separated file. The body is
// buffered so a failure can still produce a JSON error.
func (h *ScheduleHandler) Export(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.scheduleID(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	schedule, err := h.service.Export(ctx, id, &buf)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, exportFilename(schedule)))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		handlerLogger(ctx, h.logger, "ScheduleHandler", "Export", "schedule_id", id).
			ErrorContext(ctx, "failed to write export", "error", err)
	}
}

func (h *ScheduleHandler) Import(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	churchID := strings.TrimSpace(r.PathValue("church"))
	if churchID == "" {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errInvalidChurchID)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxImportSize))
	if err != nil || len(bytes.TrimSpace(body)) == 0 {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errMissingFile)
		return
	}

	result, err := h.service.Import(ctx, application.ImportParams{
		ChurchID:      churchID,
		ReferenceName: r.URL.Query().Get("reference_name"),
		Source:        bytes.NewReader(body),
	})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	if len(result.DuplicateLines) > 0 {
		handlerLogger(ctx, h.logger, "ScheduleHandler", "Import", "church_id", churchID).
			InfoContext(ctx, "skipped duplicate lines", "lines", result.DuplicateLines)
	}
	h.responder.writeJSON(ctx, w, http.StatusCreated, importResponse{
		Schedule:       toScheduleDTO(result.Schedule),
		DuplicateLines: result.DuplicateLines,
	})
}

func (h *ScheduleHandler) scheduleID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidScheduleID)
		return "", false
	}
	return id, true
}

// parse converts the wire dates and items. Missing dates are left zero so the
// service reports them as required fields.
func (req scheduleRequest) parse(loc *time.Location) (time.Time, time.Time, []scheduler.Assignment, error) {
	start, err := parseOptionalDate(req.StartDate, loc)
	if err != nil {
		return time.Time{}, time.Time{}, nil, errInvalidDate
	}
	end, err := parseOptionalDate(req.EndDate, loc)
	if err != nil {
		return time.Time{}, time.Time{}, nil, errInvalidDate
	}
	items, err := toAssignments(req.Items, loc)
	if err != nil {
		return time.Time{}, time.Time{}, nil, errBadRequestBody
	}

	var startDate, endDate time.Time
	if start != nil {
		startDate = *start
	}
	if end != nil {
		endDate = *end
	}
	return startDate, endDate, items, nil
}

func buildListParams(values url.Values, churchID string, loc *time.Location) (application.ListSchedulesParams, error) {
	params := application.ListSchedulesParams{ChurchID: churchID}
	from, err := parseOptionalDate(values.Get("from"), loc)
	if err != nil {
		return params, err
	}
	to, err := parseOptionalDate(values.Get("to"), loc)
	if err != nil {
		return params, err
	}
	params.From = from
	params.To = to
	return params, nil
}

// exportFilename derives an ASCII file name from the reference name.
func exportFilename(schedule scheduler.Schedule) string {
	base := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == ' ', r == '-', r == '_':
			return '-'
		}
		return -1
	}, normalize.NameKey(schedule.ReferenceName))
	base = strings.Trim(base, "-")
	if base == "" {
		base = "escala-" + schedule.ID
	}
	return base + ".csv"
}
