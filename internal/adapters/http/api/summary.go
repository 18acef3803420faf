package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/dutylog/internal/domain/types"
)

const defaultQuickDays = 7

// SummaryDependencies compute participation counts.
type SummaryDependencies interface {
	Summary(ctx context.Context, q types.SummaryQuery) (types.Summary, error)
	QuickSummary(ctx context.Context, days int, sort, dir string) (types.Summary, error)
}

// SummaryHandler handles /api/summary requests.
type SummaryHandler struct {
	deps SummaryDependencies
}

// NewSummaryHandler creates a new summary handler.
func NewSummaryHandler(deps SummaryDependencies) *SummaryHandler {
	return &SummaryHandler{deps: deps}
}

// HandleSummary handles GET /api/summary?from&to&sort&dir.
func (h *SummaryHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sum, err := h.deps.Summary(r.Context(), types.SummaryQuery{
		From: q.Get("from"),
		To:   q.Get("to"),
		Sort: q.Get("sort"),
		Dir:  q.Get("dir"),
	})
	if err != nil {
		writeServiceError(w, "api.summary", err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// HandleQuick handles GET /api/summary/quick?days&sort&dir. Days defaults
// to a week.
func (h *SummaryHandler) HandleQuick(w http.ResponseWriter, r *http.Request) {
	const op = "api.summary_quick"
	q := r.URL.Query()
	days := defaultQuickDays
	if raw := strings.TrimSpace(q.Get("days")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeServiceError(w, op, fmt.Errorf("%w: days must be an integer", types.ErrInvalidInput))
			return
		}
		days = n
	}
	sum, err := h.deps.QuickSummary(r.Context(), days, q.Get("sort"), q.Get("dir"))
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
