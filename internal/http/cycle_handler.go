package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/souzalinux78/gestao-organista/internal/application"
)

type cycleService interface {
	Current(ctx context.Context, churchID string, number int) (application.CycleView, error)
	Add(ctx context.Context, churchID string, number int, musicianID string) (application.CycleView, error)
	Move(ctx context.Context, churchID string, number, from, to int) (application.CycleView, error)
	Remove(ctx context.Context, churchID string, number, index int) (application.CycleView, error)
	Save(ctx context.Context, churchID string, number int) (application.CycleView, error)
}

// CycleHandler edits the working copy of a church cycle.
type CycleHandler struct {
	service   cycleService
	responder responder
	logger    *slog.Logger
}

func NewCycleHandler(service cycleService, logger *slog.Logger) *CycleHandler {
	return &CycleHandler{service: service, responder: newResponder(logger), logger: defaultLogger(logger)}
}

func (h *CycleHandler) Current(w http.ResponseWriter, r *http.Request) {
	churchID, number, ok := h.cycleTarget(w, r)
	if !ok {
		return
	}
	view, err := h.service.Current(r.Context(), churchID, number)
	h.render(r.Context(), w, view, err)
}

func (h *CycleHandler) Add(w http.ResponseWriter, r *http.Request) {
	churchID, number, ok := h.cycleTarget(w, r)
	if !ok {
		return
	}
	var req struct {
		MusicianID string `json:"musician_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	view, err := h.service.Add(r.Context(), churchID, number, strings.TrimSpace(req.MusicianID))
	h.render(r.Context(), w, view, err)
}

func (h *CycleHandler) Move(w http.ResponseWriter, r *http.Request) {
	churchID, number, ok := h.cycleTarget(w, r)
	if !ok {
		return
	}
	var req struct {
		From *int `json:"from"`
		To   *int `json:"to"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.From == nil || req.To == nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	handlerLogger(r.Context(), h.logger, "CycleHandler", "Move", "church_id", churchID, "cycle", number).
		DebugContext(r.Context(), "moving cycle entry", "from", *req.From, "to", *req.To)
	view, err := h.service.Move(r.Context(), churchID, number, *req.From, *req.To)
	h.render(r.Context(), w, view, err)
}

func (h *CycleHandler) Remove(w http.ResponseWriter, r *http.Request) {
	churchID, number, ok := h.cycleTarget(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidIndex)
		return
	}
	view, err := h.service.Remove(r.Context(), churchID, number, index)
	h.render(r.Context(), w, view, err)
}

func (h *CycleHandler) Save(w http.ResponseWriter, r *http.Request) {
	churchID, number, ok := h.cycleTarget(w, r)
	if !ok {
		return
	}
	view, err := h.service.Save(r.Context(), churchID, number)
	h.render(r.Context(), w, view, err)
}

func (h *CycleHandler) cycleTarget(w http.ResponseWriter, r *http.Request) (string, int, bool) {
	churchID := strings.TrimSpace(r.PathValue("church"))
	if churchID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidChurchID)
		return "", 0, false
	}
	number, err := strconv.Atoi(r.PathValue("cycle"))
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidCycle)
		return "", 0, false
	}
	return churchID, number, true
}

func (h *CycleHandler) render(ctx context.Context, w http.ResponseWriter, view application.CycleView, err error) {
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	if view.Entries == nil {
		view.Entries = []application.CycleEntry{}
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, view)
}
