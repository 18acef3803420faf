// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/okian/dutylog/internal/domain/types"
	"github.com/okian/dutylog/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	PeopleDependencies
	LogDependencies
	FatigueDependencies
	SummaryDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	peopleHandler  *PeopleHandler
	logsHandler    *LogsHandler
	fatigueHandler *FatigueHandler
	summaryHandler *SummaryHandler

	limiter      *RateLimiter
	trustProxy   bool
	maxBodyBytes int64
	logger       logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		peopleHandler:  NewPeopleHandler(deps),
		logsHandler:    NewLogsHandler(deps),
		fatigueHandler: NewFatigueHandler(deps),
		summaryHandler: NewSummaryHandler(deps),
		maxBodyBytes:   defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.limiter != nil {
		s.limiter.trustProxy = s.trustProxy
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("api")
	}
	return s
}

// Handler returns a chi router with every route registered.
func (s *Server) Handler(ctx context.Context) http.Handler {
	r := chi.NewRouter()
	s.Register(ctx, r)
	return r
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(ctx context.Context, r chi.Router) {
	r.Use(CORS)
	r.Use(MaxBodyBytes(s.maxBodyBytes))

	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", MetricsMiddleware(handlePing, "ping"))

		// Reads
		r.Get("/doctors", MetricsMiddleware(s.peopleHandler.HandleList, "doctors"))
		r.Get("/logs", MetricsMiddleware(s.logsHandler.HandleList, "logs"))
		r.Get("/export/logs.csv", MetricsMiddleware(s.logsHandler.HandleExport, "export_logs"))
		r.Get("/fatigue-bands", MetricsMiddleware(s.fatigueHandler.HandleGetBands, "fatigue_bands"))
		r.Get("/fatigue", MetricsMiddleware(s.fatigueHandler.HandleCompute, "fatigue"))
		r.Get("/fatigue/board", MetricsMiddleware(s.fatigueHandler.HandleBoard, "fatigue_board"))
		r.Get("/fatigue/series", MetricsMiddleware(s.fatigueHandler.HandleSeries, "fatigue_series"))
		r.Get("/summary", MetricsMiddleware(s.summaryHandler.HandleSummary, "summary"))
		r.Get("/summary/quick", MetricsMiddleware(s.summaryHandler.HandleQuick, "summary_quick"))

		// Writes are rate limited per client.
		r.Group(func(r chi.Router) {
			if s.limiter != nil {
				r.Use(s.limiter.Middleware)
			}
			r.Post("/doctors", MetricsMiddleware(s.peopleHandler.HandleAdd, "doctors"))
			r.Post("/doctors/reset", MetricsMiddleware(s.peopleHandler.HandleReset, "doctors_reset"))
			r.Delete("/doctors/{name}", MetricsMiddleware(s.peopleHandler.HandleRemove, "doctors_remove"))
			r.Post("/logs", MetricsMiddleware(s.logsHandler.HandleAdd, "logs"))
			r.Post("/logs/clear", MetricsMiddleware(s.logsHandler.HandleClear, "logs_clear"))
			r.Post("/logs/import", MetricsMiddleware(s.logsHandler.HandleImport, "logs_import"))
			r.Delete("/logs/{id}", MetricsMiddleware(s.logsHandler.HandleDelete, "logs_delete"))
			r.Post("/fatigue-bands", MetricsMiddleware(s.fatigueHandler.HandleSaveBands, "fatigue_bands"))
			r.Post("/fatigue-bands/reset", MetricsMiddleware(s.fatigueHandler.HandleResetBands, "fatigue_bands_reset"))
		})
	})

	r.NotFound(MetricsMiddleware(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", nil)
	}, "not_found"))
	r.MethodNotAllowed(MetricsMiddleware(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
	}, "method_not_allowed"))

	s.logger.Debug(ctx, "api routes registered")
}

func handlePing(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

type okResponse struct {
	OK bool `json:"ok"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps a dependency error onto a status code.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, types.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_payload", WrapKind(op, ErrBadRequest, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal", fmt.Errorf("%s: %w", op, err))
	}
}

// decodeJSON reads a JSON request body into v. An empty body leaves v
// untouched.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return fmt.Errorf("%w: %w", types.ErrInvalidInput, err)
	}
	return nil
}

// pathParam returns a decoded chi URL parameter.
func pathParam(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return v
	}
	if decoded, err := url.PathUnescape(v); err == nil {
		return decoded
	}
	return v
}
