package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/souzalinux78/gestao-organista/internal/application"
	"github.com/souzalinux78/gestao-organista/internal/calendar"
)

type rotationService interface {
	Preview(ctx context.Context, params application.PreviewParams) (application.PreviewResult, error)
	Regenerate(ctx context.Context, params application.RegenerateParams) (application.RegenerateResult, error)
}

// RotationHandler serves rotation previews and regenerations.
type RotationHandler struct {
	service   rotationService
	location  *time.Location
	responder responder
	logger    *slog.Logger
}

func NewRotationHandler(service rotationService, loc *time.Location, logger *slog.Logger) *RotationHandler {
	if loc == nil {
		loc = calendar.DefaultLocation()
	}
	return &RotationHandler{service: service, location: loc, responder: newResponder(logger), logger: defaultLogger(logger)}
}

type previewRequest struct {
	StartDate          string `json:"start_date"`
	EndDate            string `json:"end_date"`
	PeriodMonths       int    `json:"period_months"`
	StartingCycle      int    `json:"starting_cycle"`
	StartingMusicianID string `json:"starting_musician_id"`
}

type previewResponse struct {
	ChurchID  string          `json:"church_id"`
	StartDate string          `json:"start_date"`
	EndDate   string          `json:"end_date"`
	Items     []assignmentDTO `json:"items"`
	Gaps      []gapDTO        `json:"gaps,omitempty"`
	Conflicts []conflictDTO   `json:"conflicts,omitempty"`
}

func (h *RotationHandler) Preview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	churchID := strings.TrimSpace(r.PathValue("church"))
	if churchID == "" {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errInvalidChurchID)
		return
	}

	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	start, err := parseOptionalDate(req.StartDate, h.location)
	if err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errInvalidDate)
		return
	}
	end, err := parseOptionalDate(req.EndDate, h.location)
	if err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errInvalidDate)
		return
	}

	result, err := h.service.Preview(ctx, application.PreviewParams{
		ChurchID:           churchID,
		PeriodMonths:       req.PeriodMonths,
		StartDate:          start,
		EndDate:            end,
		StartingCycle:      req.StartingCycle,
		StartingMusicianID: strings.TrimSpace(req.StartingMusicianID),
	})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	if len(result.Gaps) > 0 {
		handlerLogger(ctx, h.logger, "RotationHandler", "Preview", "church_id", churchID).
			InfoContext(ctx, "preview has unfilled slots", "gaps", len(result.Gaps))
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, previewResponse{
		ChurchID:  result.ChurchID,
		StartDate: calendar.FormatDate(result.StartDate),
		EndDate:   calendar.FormatDate(result.EndDate),
		Items:     toAssignmentDTOs(result.Items),
		Gaps:      toGapDTOs(result.Gaps),
		Conflicts: toConflictDTOs(result.Conflicts),
	})
}

type regenerateResponse struct {
	FromDate    string   `json:"from_date"`
	ScheduleIDs []string `json:"schedule_ids"`
	ItemCount   int      `json:"item_count"`
	Gaps        []gapDTO `json:"gaps,omitempty"`
}

func (h *RotationHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	churchID := strings.TrimSpace(r.PathValue("church"))
	if churchID == "" {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errInvalidChurchID)
		return
	}

	var req struct {
		FromDate string `json:"from_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	from, err := parseOptionalDate(req.FromDate, h.location)
	if err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errInvalidDate)
		return
	}
	params := application.RegenerateParams{ChurchID: churchID}
	if from != nil {
		params.FromDate = *from
	}

	result, err := h.service.Regenerate(ctx, params)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	ids := result.ScheduleIDs
	if ids == nil {
		ids = []string{}
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, regenerateResponse{
		FromDate:    calendar.FormatDate(result.FromDate),
		ScheduleIDs: ids,
		ItemCount:   result.ItemCount,
		Gaps:        toGapDTOs(result.Gaps),
	})
}
