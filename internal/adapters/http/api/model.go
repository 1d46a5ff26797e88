package api

import (
	"net/http"

	"github.com/okian/selector/internal/domain/types"
	"github.com/okian/selector/pkg/logger"
)

// ModelHandler serves model inspection and manual retraining.
type ModelHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewModelHandler creates a new model handler.
func NewModelHandler(deps Dependencies, l logger.Logger) *ModelHandler {
	return &ModelHandler{deps: deps, logger: l}
}

// HandleInfo handles GET /api/model.
func (h *ModelHandler) HandleInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.deps.ModelInfo(r.Context())
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, "api.model.info", err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// HandleRetrain handles POST /api/model/retrain. The body is the sync
// report; its status picks the response code.
func (h *ModelHandler) HandleRetrain(w http.ResponseWriter, r *http.Request) {
	ms, err := h.deps.TrainModel(r.Context())
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, "api.model.retrain", err)
		return
	}

	setSyncHeaders(w, ms)
	status := http.StatusOK
	switch ms.Status {
	case types.SyncPending:
		status = http.StatusAccepted
	case types.SyncFailed:
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, ms)
}
