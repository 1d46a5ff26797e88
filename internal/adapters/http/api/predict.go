package api

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/okian/selector/pkg/logger"
)

type predictRequest struct {
	Features []float64 `json:"features" validate:"required"`
}

// PredictHandler serves suitability predictions.
type PredictHandler struct {
	deps     Dependencies
	validate *validator.Validate
	logger   logger.Logger
}

// NewPredictHandler creates a new predict handler.
func NewPredictHandler(deps Dependencies, v *validator.Validate, l logger.Logger) *PredictHandler {
	return &PredictHandler{deps: deps, validate: v, logger: l}
}

// HandlePredict handles POST /api/predict.
func (h *PredictHandler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	const op = "api.predict"
	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", WrapKind(op, ErrValidation, err))
		return
	}

	p, err := h.deps.PredictSuitability(r.Context(), req.Features)
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
