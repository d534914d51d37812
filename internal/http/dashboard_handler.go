package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/souzalinux78/gestao-organista/internal/application"
	"github.com/souzalinux78/gestao-organista/internal/calendar"
	"github.com/souzalinux78/gestao-organista/internal/coverage"
)

type dashboardService interface {
	Dashboard(ctx context.Context, params application.DashboardParams) (coverage.Snapshot, error)
}

// DashboardHandler reports coverage snapshots.
type DashboardHandler struct {
	service   dashboardService
	location  *time.Location
	responder responder
}

func NewDashboardHandler(service dashboardService, loc *time.Location, logger *slog.Logger) *DashboardHandler {
	if loc == nil {
		loc = calendar.DefaultLocation()
	}
	return &DashboardHandler{service: service, location: loc, responder: newResponder(logger)}
}

type slotDTO struct {
	Date      string `json:"date"`
	ServiceID string `json:"service_id"`
	Role      string `json:"role"`
}

type snapshotResponse struct {
	ChurchID          string                    `json:"church_id"`
	PeriodStart       string                    `json:"period_start"`
	PeriodEnd         string                    `json:"period_end"`
	ExpectedSlotCount int                       `json:"expected_slot_count"`
	CoveredSlotCount  int                       `json:"covered_slot_count"`
	CoveragePercent   int                       `json:"coverage_percent"`
	TypeDistribution  coverage.TypeDistribution `json:"type_distribution"`
	ConflictCount     int                       `json:"conflict_count"`
	MissingPhoneCount int                       `json:"missing_phone_count"`
	Missing           []slotDTO                 `json:"missing"`
}

func (h *DashboardHandler) Show(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	churchID := strings.TrimSpace(r.PathValue("church"))
	if churchID == "" {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errInvalidChurchID)
		return
	}

	query := r.URL.Query()
	start, err := parseOptionalDate(query.Get("start"), h.location)
	if err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errInvalidDate)
		return
	}
	end, err := parseOptionalDate(query.Get("end"), h.location)
	if err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errInvalidDate)
		return
	}
	params := application.DashboardParams{ChurchID: churchID}
	if start != nil {
		params.Start = *start
	}
	if end != nil {
		params.End = *end
	}

	snapshot, err := h.service.Dashboard(ctx, params)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	missing := make([]slotDTO, 0, len(snapshot.Missing))
	for _, slot := range snapshot.Missing {
		missing = append(missing, slotDTO{
			Date:      calendar.FormatDate(slot.Date),
			ServiceID: slot.ServiceID,
			Role:      slot.Role.String(),
		})
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, snapshotResponse{
		ChurchID:          churchID,
		PeriodStart:       calendar.FormatDate(snapshot.PeriodStart),
		PeriodEnd:         calendar.FormatDate(snapshot.PeriodEnd),
		ExpectedSlotCount: snapshot.ExpectedSlotCount,
		CoveredSlotCount:  snapshot.CoveredSlotCount,
		CoveragePercent:   snapshot.CoveragePercent,
		TypeDistribution:  snapshot.TypeDistribution,
		ConflictCount:     snapshot.ConflictCount,
		MissingPhoneCount: snapshot.MissingPhoneCount,
		Missing:           missing,
	})
}
