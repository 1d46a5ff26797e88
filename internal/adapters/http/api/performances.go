package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/okian/selector/internal/domain/types"
	"github.com/okian/selector/pkg/logger"
)

// performanceRequest is the body accepted by create and update. Pointer
// fields let validation tell a missing value from zero.
type performanceRequest struct {
	Average        *float64 `json:"average" validate:"required"`
	StrikeRate     *float64 `json:"strikeRate" validate:"required"`
	BowlingAverage *float64 `json:"bowlingAverage" validate:"required"`
	EconomyRate    *float64 `json:"economyRate" validate:"required"`
	FieldingStats  *float64 `json:"fieldingStats" validate:"required"`
	Label          *float64 `json:"label" validate:"required"`
}

func (p performanceRequest) toPerformance() types.Performance {
	return types.Performance{
		Average:        *p.Average,
		StrikeRate:     *p.StrikeRate,
		BowlingAverage: *p.BowlingAverage,
		EconomyRate:    *p.EconomyRate,
		FieldingStats:  *p.FieldingStats,
		Label:          *p.Label,
	}
}

// PerformanceHandler serves the record CRUD endpoints.
type PerformanceHandler struct {
	deps     Dependencies
	validate *validator.Validate
	logger   logger.Logger
}

// NewPerformanceHandler creates a new performance handler.
func NewPerformanceHandler(deps Dependencies, v *validator.Validate, l logger.Logger) *PerformanceHandler {
	return &PerformanceHandler{deps: deps, validate: v, logger: l}
}

// HandleList handles GET /api/performances.
func (h *PerformanceHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.performances.list"
	records, err := h.deps.GetAll(r.Context())
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, op, err)
		return
	}
	if records == nil {
		records = []types.Performance{}
	}
	writeJSON(w, http.StatusOK, records)
}

// HandleGet handles GET /api/performances/{id}.
func (h *PerformanceHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.performances.get"
	id, ok := pathID(w, r, op)
	if !ok {
		return
	}
	rec, found, err := h.deps.Get(r.Context(), id)
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, op, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "not_found", NewKind(op, ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// HandleCreate handles POST /api/performances.
func (h *PerformanceHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.performances.create"
	in, ok := h.decode(w, r, op)
	if !ok {
		return
	}
	m, err := h.deps.Add(r.Context(), in)
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, op, err)
		return
	}
	setSyncHeaders(w, m.Model)
	writeJSON(w, http.StatusCreated, m.Record)
}

// HandleUpdate handles PUT /api/performances/{id}.
func (h *PerformanceHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	const op = "api.performances.update"
	id, ok := pathID(w, r, op)
	if !ok {
		return
	}
	in, ok := h.decode(w, r, op)
	if !ok {
		return
	}
	m, found, err := h.deps.Update(r.Context(), id, in)
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, op, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "not_found", NewKind(op, ErrNotFound))
		return
	}
	setSyncHeaders(w, m.Model)
	writeJSON(w, http.StatusOK, m.Record)
}

// HandleDelete handles DELETE /api/performances/{id}.
func (h *PerformanceHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	const op = "api.performances.delete"
	id, ok := pathID(w, r, op)
	if !ok {
		return
	}
	m, found, err := h.deps.Delete(r.Context(), id)
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, op, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "not_found", NewKind(op, ErrNotFound))
		return
	}
	setSyncHeaders(w, m.Model)
	w.WriteHeader(http.StatusNoContent)
}

func (h *PerformanceHandler) decode(w http.ResponseWriter, r *http.Request, op string) (types.Performance, bool) {
	var req performanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return types.Performance{}, false
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", WrapKind(op, ErrValidation, err))
		return types.Performance{}, false
	}
	return req.toPerformance(), true
}

func pathID(w http.ResponseWriter, r *http.Request, op string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return 0, false
	}
	return id, true
}
