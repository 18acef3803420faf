package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/okian/dutylog/internal/domain/model"
	"github.com/okian/dutylog/internal/domain/types"
)

const exportFilename = "eop-logs.csv"

// LogDependencies manage participation records.
type LogDependencies interface {
	Logs(ctx context.Context, from, to string) ([]model.Record, error)
	AddLog(ctx context.Context, r model.Record) (model.Record, bool, error)
	DeleteLog(ctx context.Context, id string) (int, error)
	ClearLogs(ctx context.Context) (int, error)
	ImportCSV(ctx context.Context, r io.Reader) (types.ImportResult, error)
	ExportCSV(ctx context.Context, w io.Writer, from, to string) error
}

// LogsHandler handles /api/logs requests.
type LogsHandler struct {
	deps LogDependencies
}

// NewLogsHandler creates a new records handler.
func NewLogsHandler(deps LogDependencies) *LogsHandler {
	return &LogsHandler{deps: deps}
}

// logRequest mirrors the OpenAPI schema for POST /api/logs. Older clients
// send a single participant as "doctor".
type logRequest struct {
	ID       string   `json:"id"`
	Datetime string   `json:"datetime"`
	Doctors  []string `json:"doctors"`
	Doctor   string   `json:"doctor"`
	Note     string   `json:"note"`
}

func (l logRequest) record() model.Record {
	participants := l.Doctors
	if len(participants) == 0 && strings.TrimSpace(l.Doctor) != "" {
		participants = []string{l.Doctor}
	}
	return model.Record{ID: l.ID, Timestamp: l.Datetime, Participants: participants, Note: l.Note}
}

type logsResponse struct {
	Logs []model.Record `json:"logs"`
}

type logResponse struct {
	Log       model.Record `json:"log"`
	Duplicate bool         `json:"duplicate,omitempty"`
}

type deletedResponse struct {
	Deleted int `json:"deleted"`
}

// HandleList handles GET /api/logs?from&to.
func (h *LogsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	logs, err := h.deps.Logs(r.Context(), q.Get("from"), q.Get("to"))
	if err != nil {
		writeServiceError(w, "api.list_logs", err)
		return
	}
	if logs == nil {
		logs = []model.Record{}
	}
	writeJSON(w, http.StatusOK, logsResponse{Logs: logs})
}

// HandleAdd handles POST /api/logs. A retried submission with a known id
// is acknowledged without storing it again.
func (h *LogsHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	const op = "api.add_log"
	var req logRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, op, err)
		return
	}
	rec, duplicate, err := h.deps.AddLog(r.Context(), req.record())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, logResponse{Log: rec, Duplicate: duplicate})
}

// HandleDelete handles DELETE /api/logs/{id}.
func (h *LogsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	n, err := h.deps.DeleteLog(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeServiceError(w, "api.delete_log", err)
		return
	}
	writeJSON(w, http.StatusOK, deletedResponse{Deleted: n})
}

// HandleClear handles POST /api/logs/clear.
func (h *LogsHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	if _, err := h.deps.ClearLogs(r.Context()); err != nil {
		writeServiceError(w, "api.clear_logs", err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// HandleImport handles POST /api/logs/import with a CSV body. Every
// stored record is replaced.
func (h *LogsHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	res, err := h.deps.ImportCSV(r.Context(), r.Body)
	if err != nil {
		writeServiceError(w, "api.import_logs", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleExport handles GET /api/export/logs.csv?from&to.
func (h *LogsHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var buf bytes.Buffer
	if err := h.deps.ExportCSV(r.Context(), &buf, q.Get("from"), q.Get("to")); err != nil {
		writeServiceError(w, "api.export_logs", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+exportFilename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
