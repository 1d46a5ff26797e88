// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	service "github.com/okian/selector/internal/app"
	"github.com/okian/selector/internal/domain/suitability"
	"github.com/okian/selector/internal/domain/types"
	"github.com/okian/selector/pkg/logger"
	"github.com/okian/selector/pkg/metrics"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	StatsProvider

	GetAll(ctx context.Context) ([]types.Performance, error)
	Get(ctx context.Context, id int64) (types.Performance, bool, error)
	Add(ctx context.Context, in types.Performance) (types.Mutation, error)
	Update(ctx context.Context, id int64, in types.Performance) (types.Mutation, bool, error)
	Delete(ctx context.Context, id int64) (types.Mutation, bool, error)

	PredictSuitability(ctx context.Context, features []float64) (types.Prediction, error)
	TrainModel(ctx context.Context) (types.ModelSync, error)
	ModelInfo(ctx context.Context) (types.ModelInfo, error)
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithWriteRateLimit limits POST, PUT and DELETE requests per client IP
// per minute. Zero disables the limit.
func WithWriteRateLimit(perMinute int) Option {
	return func(s *Server) {
		s.writeRateLimit = perMinute
	}
}

// WithLogger sets a custom logger for the handlers.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	performanceHandler *PerformanceHandler
	predictHandler     *PredictHandler
	modelHandler       *ModelHandler

	writeRateLimit int
	logger         logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("api")
	}

	v := validator.New()
	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(deps)
	s.performanceHandler = NewPerformanceHandler(deps, v, s.logger)
	s.predictHandler = NewPredictHandler(deps, v, s.logger)
	s.modelHandler = NewModelHandler(deps, s.logger)
	return s
}

// NewRouter returns a chi router with the global middleware stack.
func NewRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	return r
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(r chi.Router) {
	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	r.Route("/api", func(r chi.Router) {
		r.Get("/performances", MetricsMiddleware(s.performanceHandler.HandleList, "performances"))
		r.Get("/performances/{id}", MetricsMiddleware(s.performanceHandler.HandleGet, "performance"))
		r.Post("/predict", MetricsMiddleware(s.predictHandler.HandlePredict, "predict"))
		r.Get("/model", MetricsMiddleware(s.modelHandler.HandleInfo, "model"))

		// Writes share one limiter. It runs inside the metrics wrapper so
		// rejected requests are still counted.
		limit := writeRateLimit(s.writeRateLimit)
		write := func(h http.HandlerFunc, endpoint string) http.HandlerFunc {
			return MetricsMiddleware(limit(h).ServeHTTP, endpoint)
		}
		r.Post("/performances", write(s.performanceHandler.HandleCreate, "performances"))
		r.Put("/performances/{id}", write(s.performanceHandler.HandleUpdate, "performance"))
		r.Delete("/performances/{id}", write(s.performanceHandler.HandleDelete, "performance"))
		r.Post("/model/retrain", write(s.modelHandler.HandleRetrain, "model_retrain"))
	})
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON encodes v before the status is committed, so a value that
// cannot be encoded turns into a 500 rather than an empty 200.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		metrics.RecordErrorByComponent("api", "encode_failed")
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorResponse{Code: "internal_error", Message: NewKind("api.encode", ErrInternal).Error()})
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps an upstream error to a response.
func writeServiceError(ctx context.Context, w http.ResponseWriter, log logger.Logger, op string, err error) {
	switch {
	case errors.Is(err, suitability.ErrFeatureLength):
		writeError(w, http.StatusBadRequest, "validation_error", WrapKind(op, ErrValidation, err))
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	default:
		log.Error(ctx, "request failed", logger.String("op", op), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", NewKind(op, ErrInternal))
	}
}

// setSyncHeaders reports how the model fared after a write.
func setSyncHeaders(w http.ResponseWriter, sync types.ModelSync) {
	w.Header().Set(HeaderModelSync, string(sync.Status))
	if sync.Status == types.SyncFailed && sync.Error != "" {
		w.Header().Set(HeaderModelSyncError, sync.Error)
	}
}

// Response headers set on write endpoints.
const (
	HeaderModelSync      = "X-Model-Sync"
	HeaderModelSyncError = "X-Model-Sync-Error"
)
