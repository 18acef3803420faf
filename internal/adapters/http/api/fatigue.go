package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/dutylog/internal/domain/model"
	"github.com/okian/dutylog/internal/domain/types"
)

// FatigueDependencies expose band configuration and fatigue scoring.
type FatigueDependencies interface {
	Bands(ctx context.Context) ([]model.Band, error)
	SaveBands(ctx context.Context, bands []model.Band) ([]model.Band, error)
	ResetBands(ctx context.Context) ([]model.Band, error)
	Fatigue(ctx context.Context, q types.FatigueQuery) (types.Board, error)
	Board() (types.Board, bool)
	Series(ctx context.Context, from, to string) (types.Series, error)
}

// FatigueHandler handles fatigue and band requests.
type FatigueHandler struct {
	deps FatigueDependencies
}

// NewFatigueHandler creates a new fatigue handler.
func NewFatigueHandler(deps FatigueDependencies) *FatigueHandler {
	return &FatigueHandler{deps: deps}
}

type bandsPayload struct {
	Bands []model.Band `json:"bands"`
}

// HandleGetBands handles GET /api/fatigue-bands.
func (h *FatigueHandler) HandleGetBands(w http.ResponseWriter, r *http.Request) {
	bands, err := h.deps.Bands(r.Context())
	if err != nil {
		writeServiceError(w, "api.get_bands", err)
		return
	}
	writeJSON(w, http.StatusOK, bandsPayload{Bands: bands})
}

// HandleSaveBands handles POST /api/fatigue-bands.
func (h *FatigueHandler) HandleSaveBands(w http.ResponseWriter, r *http.Request) {
	const op = "api.save_bands"
	var req bandsPayload
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, op, err)
		return
	}
	saved, err := h.deps.SaveBands(r.Context(), req.Bands)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, bandsPayload{Bands: saved})
}

// HandleResetBands handles POST /api/fatigue-bands/reset.
func (h *FatigueHandler) HandleResetBands(w http.ResponseWriter, r *http.Request) {
	bands, err := h.deps.ResetBands(r.Context())
	if err != nil {
		writeServiceError(w, "api.reset_bands", err)
		return
	}
	writeJSON(w, http.StatusOK, bandsPayload{Bands: bands})
}

// HandleCompute handles GET /api/fatigue?now&days.
func (h *FatigueHandler) HandleCompute(w http.ResponseWriter, r *http.Request) {
	const op = "api.fatigue"
	q := r.URL.Query()
	query := types.FatigueQuery{Now: q.Get("now")}
	if raw := strings.TrimSpace(q.Get("days")); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil {
			writeServiceError(w, op, fmt.Errorf("%w: days must be an integer", types.ErrInvalidInput))
			return
		}
		query.Days = &days
	}

	board, err := h.deps.Fatigue(r.Context(), query)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

// HandleBoard handles GET /api/fatigue/board.
func (h *FatigueHandler) HandleBoard(w http.ResponseWriter, _ *http.Request) {
	board, ok := h.deps.Board()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "not_ready", NewKind("api.board", ErrNotReady))
		return
	}
	writeJSON(w, http.StatusOK, board)
}

// HandleSeries handles GET /api/fatigue/series?from&to.
func (h *FatigueHandler) HandleSeries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	series, err := h.deps.Series(r.Context(), q.Get("from"), q.Get("to"))
	if err != nil {
		writeServiceError(w, "api.series", err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}
