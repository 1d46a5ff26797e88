// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
//
// Every successful write is followed by a full retrain of the suitability
// model. Retrains are funnelled through a single trainer goroutine, and a
// write waits for the retrain that covers it unless its context ends first.
package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"time"

	retrainqueue "github.com/okian/selector/internal/adapters/mq/queue"
	"github.com/okian/selector/internal/adapters/mq/worker"
	"github.com/okian/selector/internal/adapters/repository"
	"github.com/okian/selector/internal/domain/features"
	"github.com/okian/selector/internal/domain/model"
	"github.com/okian/selector/internal/domain/predcache"
	"github.com/okian/selector/internal/domain/suitability"
	"github.com/okian/selector/internal/domain/types"
	"github.com/okian/selector/pkg/logger"
	"github.com/okian/selector/pkg/metrics"
)

const stopTimeout = 30 * time.Second

// Service implements the API dependencies for the performance system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store        repository.Store
	ownsStore    bool
	encoder      *features.VectorEncoder
	retrainQueue *retrainqueue.InMemoryQueue
	trainer      *worker.Trainer
	predictions  predcache.Cache

	// Configuration
	dbPath       string
	modelPath    string
	epochs       int
	hiddenUnits  int
	learningRate float64
	seed         uint64
	queueSize    int
	cacheSize    int

	// labelThreshold binarises labels when positive.
	labelThreshold float64

	// State
	started   bool
	runCancel context.CancelFunc

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore injects a record store. The service does not close an injected
// store on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithDBPath sets the SQLite file opened when no store is injected.
func WithDBPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.dbPath = path
		}
	}
}

// WithModelPath sets the fixed path the model is loaded from and saved to.
func WithModelPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.modelPath = path
		}
	}
}

// WithEpochs sets the number of training passes per retrain.
func WithEpochs(epochs int) Option {
	return func(s *Service) {
		if epochs > 0 {
			s.epochs = epochs
		}
	}
}

// WithHiddenUnits sets the hidden layer width for a fresh network.
func WithHiddenUnits(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.hiddenUnits = n
		}
	}
}

// WithLearningRate sets the gradient descent step for a fresh network.
func WithLearningRate(lr float64) Option {
	return func(s *Service) {
		if lr > 0 {
			s.learningRate = lr
		}
	}
}

// WithSeed fixes weight initialisation for a fresh network.
func WithSeed(seed uint64) Option {
	return func(s *Service) {
		s.seed = seed
	}
}

// WithRetrainQueueSize sets how many retrain requests may wait at once.
func WithRetrainQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithPredictionCacheSize sets the prediction cache size. Zero disables it.
func WithPredictionCacheSize(size int) Option {
	return func(s *Service) {
		if size >= 0 {
			s.cacheSize = size
		}
	}
}

// WithLabelThreshold trains on 0/1 targets: labels at or above t become 1.
// Zero keeps stored labels as they are.
func WithLabelThreshold(t float64) Option {
	return func(s *Service) {
		if t >= 0 && t <= 1 {
			s.labelThreshold = t
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		dbPath:       "data/selector.db",
		modelPath:    "data/player_model.json",
		epochs:       50,
		hiddenUnits:  10,
		learningRate: 0.1,
		queueSize:    1024,
		cacheSize:    4096,
		logger:       nil, // replaced when the service starts
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start opens the store, loads or creates the model and starts the trainer.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting performance service...")

	if s.store == nil {
		store, err := repository.Open(ctx, s.dbPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		s.store = store
		s.ownsStore = true
		s.logger.Info(ctx, "using sqlite store", logger.String("path", s.dbPath))
	}

	network, err := s.loadNetwork(ctx)
	if err != nil {
		s.closeOwnedStore(ctx)
		return err
	}

	var encOpts []features.Option
	if s.labelThreshold > 0 {
		encOpts = append(encOpts, features.WithLabelThreshold(s.labelThreshold))
	}
	s.encoder = features.NewEncoder(encOpts...)
	s.predictions = predcache.New(predcache.WithMaxSize(s.cacheSize))
	s.retrainQueue = retrainqueue.NewInMemoryQueue(retrainqueue.WithCapacity(s.queueSize))

	trainer, err := worker.NewTrainer(s.retrainQueue, s.store, s.encoder, network,
		worker.WithModelPath(s.modelPath),
		worker.WithEpochs(s.epochs),
		worker.WithLogger(s.logger.Named("trainer")),
	)
	if err != nil {
		s.closeOwnedStore(ctx)
		return fmt.Errorf("create trainer: %w", err)
	}
	s.trainer = trainer

	// The trainer outlives the start context and is stopped by Stop.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.runCancel = cancel
	go s.trainer.Run(runCtx)

	s.started = true
	s.logger.Info(ctx, "performance service started",
		logger.String("modelPath", s.modelPath),
		logger.Int("epochs", s.epochs),
		logger.Int("hiddenUnits", network.Hidden()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("cacheSize", s.cacheSize),
	)

	return nil
}

// loadNetwork restores the model file or builds a fresh network when there
// is none. A file that exists but cannot be read is an error.
func (s *Service) loadNetwork(ctx context.Context) (*suitability.Network, error) {
	network, err := suitability.Load(s.modelPath)
	switch {
	case err == nil:
		if network.Inputs() != features.Count {
			return nil, fmt.Errorf("%w: model expects %d features, want %d",
				suitability.ErrCorruptModel, network.Inputs(), features.Count)
		}
		s.logger.Info(ctx, "loaded model",
			logger.String("path", s.modelPath),
			logger.Bool("trained", network.Trained()),
		)
		return network, nil
	case errors.Is(err, fs.ErrNotExist):
		s.logger.Info(ctx, "no model file, starting with a fresh network", logger.String("path", s.modelPath))
		return suitability.New(
			suitability.WithInputs(features.Count),
			suitability.WithHiddenUnits(s.hiddenUnits),
			suitability.WithLearningRate(s.learningRate),
			suitability.WithSeed(s.seed),
		)
	default:
		return nil, fmt.Errorf("load model: %w", err)
	}
}

// Stop gracefully shuts down the service. Retrains already queued finish
// before the store is closed.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping performance service...")

	_ = s.retrainQueue.Close()

	shutdownCtx, cancel := context.WithTimeout(ctx, stopTimeout)
	defer cancel()
	if err := s.trainer.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn(ctx, "trainer did not stop cleanly", logger.Error(err))
	}
	s.runCancel()

	s.closeOwnedStore(ctx)

	s.started = false
	s.logger.Info(ctx, "performance service stopped")
}

func (s *Service) closeOwnedStore(ctx context.Context) {
	if !s.ownsStore || s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn(ctx, "error closing store", logger.Error(err))
	}
	s.store = nil
	s.ownsStore = false
}

// running returns the started components or ErrNotStarted.
func (s *Service) running() (repository.Store, *worker.Trainer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, nil, ErrNotStarted
	}
	return s.store, s.trainer, nil
}

// GetAll returns every stored record in ascending id order.
func (s *Service) GetAll(ctx context.Context) ([]types.Performance, error) {
	store, _, err := s.running()
	if err != nil {
		return nil, err
	}

	records, err := store.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]types.Performance, len(records))
	for i, r := range records {
		out[i] = toType(r)
	}
	return out, nil
}

// Get returns one record. The bool is false when no record has that id.
func (s *Service) Get(ctx context.Context, id int64) (types.Performance, bool, error) {
	store, _, err := s.running()
	if err != nil {
		return types.Performance{}, false, err
	}

	rec, err := store.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return types.Performance{}, false, nil
	}
	if err != nil {
		return types.Performance{}, false, err
	}
	return toType(rec), true, nil
}

// Add stores a new record and retrains the model on the whole table.
func (s *Service) Add(ctx context.Context, in types.Performance) (types.Mutation, error) {
	store, _, err := s.running()
	if err != nil {
		return types.Mutation{}, err
	}

	rec, err := store.Create(ctx, toModel(in))
	if err != nil {
		metrics.RecordMutation("add", "error")
		return types.Mutation{}, fmt.Errorf("add performance: %w", err)
	}

	ms := s.retrain(ctx, model.ReasonAdd, rec.ID)
	metrics.RecordMutation("add", string(ms.Status))
	return types.Mutation{Record: toType(rec), Model: ms}, nil
}

// Update overwrites every field of an existing record and retrains. When
// the id is unknown nothing changes and no retrain runs.
func (s *Service) Update(ctx context.Context, id int64, in types.Performance) (types.Mutation, bool, error) {
	store, _, err := s.running()
	if err != nil {
		return types.Mutation{}, false, err
	}

	rec, err := store.Update(ctx, id, toModel(in))
	if errors.Is(err, repository.ErrNotFound) {
		metrics.RecordMutation("update", "not_found")
		return types.Mutation{}, false, nil
	}
	if err != nil {
		metrics.RecordMutation("update", "error")
		return types.Mutation{}, false, fmt.Errorf("update performance %d: %w", id, err)
	}

	ms := s.retrain(ctx, model.ReasonUpdate, id)
	metrics.RecordMutation("update", string(ms.Status))
	return types.Mutation{Record: toType(rec), Model: ms}, true, nil
}

// Delete removes a record and retrains. The returned mutation carries the
// deleted record. When the id is unknown nothing changes.
func (s *Service) Delete(ctx context.Context, id int64) (types.Mutation, bool, error) {
	store, _, err := s.running()
	if err != nil {
		return types.Mutation{}, false, err
	}

	rec, err := store.Get(ctx, id)
	if err == nil {
		err = store.Delete(ctx, id)
	}
	if errors.Is(err, repository.ErrNotFound) {
		metrics.RecordMutation("delete", "not_found")
		return types.Mutation{}, false, nil
	}
	if err != nil {
		metrics.RecordMutation("delete", "error")
		return types.Mutation{}, false, fmt.Errorf("delete performance %d: %w", id, err)
	}

	ms := s.retrain(ctx, model.ReasonDelete, id)
	metrics.RecordMutation("delete", string(ms.Status))
	return types.Mutation{Record: toType(rec), Model: ms}, true, nil
}

// TrainModel retrains on the current table outside of any write.
func (s *Service) TrainModel(ctx context.Context) (types.ModelSync, error) {
	if _, _, err := s.running(); err != nil {
		return types.ModelSync{}, err
	}
	return s.retrain(ctx, model.ReasonManual, 0), nil
}

// PredictSuitability runs the served model on a five-value feature vector.
func (s *Service) PredictSuitability(ctx context.Context, in []float64) (types.Prediction, error) {
	_, trainer, err := s.running()
	if err != nil {
		return types.Prediction{}, err
	}

	network, generation := trainer.Current()
	if len(in) != network.Inputs() {
		metrics.RecordPredictionError()
		return types.Prediction{}, fmt.Errorf("%w: got %d, want %d", suitability.ErrFeatureLength, len(in), network.Inputs())
	}

	if e, ok := s.predictions.Get(generation, in); ok {
		metrics.RecordPredictionCache(true)
		metrics.RecordPrediction(e.Suitable)
		return types.Prediction{Suitable: e.Suitable, Probability: e.Probability, Generation: generation}, nil
	}
	metrics.RecordPredictionCache(false)

	suitable, prob, err := network.Predict(in)
	if err != nil {
		metrics.RecordPredictionError()
		return types.Prediction{}, err
	}
	s.predictions.Put(generation, in, predcache.Entry{Suitable: suitable, Probability: prob})
	metrics.RecordPrediction(suitable)

	s.logger.Debug(ctx, "prediction",
		logger.Bool("suitable", suitable),
		logger.Float64("probability", prob),
		logger.Uint64("generation", generation),
	)
	return types.Prediction{Suitable: suitable, Probability: prob, Generation: generation}, nil
}

// ModelInfo describes the network currently serving predictions.
func (s *Service) ModelInfo(_ context.Context) (types.ModelInfo, error) {
	_, trainer, err := s.running()
	if err != nil {
		return types.ModelInfo{}, err
	}

	network, generation := trainer.Current()
	info := types.ModelInfo{
		Path:        trainer.ModelPath(),
		Generation:  generation,
		Inputs:      network.Inputs(),
		Features:    features.Names[:],
		HiddenUnits: network.Hidden(),
		Epochs:      trainer.Epochs(),
		Trained:     network.Trained(),
	}
	if network.Trained() {
		at := network.TrainedAt()
		info.TrainedAt = &at
	}
	if s.labelThreshold > 0 {
		t := s.labelThreshold
		info.LabelThreshold = &t
	}
	if last, ok := trainer.LastResult(); ok {
		ms := syncFrom(last)
		info.LastSync = &ms
	}
	return info, nil
}

// retrain queues a retrain and waits for its outcome.
func (s *Service) retrain(ctx context.Context, reason model.RetrainReason, recordID int64) types.ModelSync {
	job := model.NewRetrainJob(reason, recordID)

	if err := s.retrainQueue.Enqueue(ctx, job); err != nil {
		switch {
		case errors.Is(err, retrainqueue.ErrFull):
			err = ErrRetrainBackpressure
		case errors.Is(err, retrainqueue.ErrClosed):
			err = ErrStopping
		}
		s.logger.Warn(ctx, "retrain not queued",
			logger.String("reason", string(reason)),
			logger.Int64("recordID", recordID),
			logger.Error(err),
		)
		return types.ModelSync{Status: types.SyncFailed, Error: err.Error()}
	}

	select {
	case res := <-job.Reply:
		return syncFrom(res)
	case <-ctx.Done():
		return types.ModelSync{Status: types.SyncPending, Error: ctx.Err().Error()}
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"epochs":      s.epochs,
		"hiddenUnits": s.hiddenUnits,
		"queueSize":   s.queueSize,
		"cacheSize":   s.cacheSize,
		"modelPath":   s.modelPath,
	}
	if s.labelThreshold > 0 {
		stats["labelThreshold"] = s.labelThreshold
	}

	if s.started {
		queueLen := s.retrainQueue.Len()
		_, generation := s.trainer.Current()

		stats["queueLength"] = queueLen
		stats["generation"] = generation
		stats["cachedPredictions"] = s.predictions.Len()

		if n, err := s.store.Count(ctx); err == nil {
			stats["totalRecords"] = n
			metrics.UpdateRecordsTotal(n)
		}
		if last, ok := s.trainer.LastResult(); ok {
			stats["lastSync"] = syncFrom(last)
		}
	}

	return stats
}

func syncFrom(r model.RetrainResult) types.ModelSync {
	ms := types.ModelSync{
		Status:     types.SyncSynced,
		Generation: r.Generation,
		Samples:    r.Samples,
		Epochs:     r.Epochs,
		Loss:       r.Loss,
		Accuracy:   r.Accuracy,
		Persisted:  r.Persisted,
		Duration:   r.Duration,
		TrainedAt:  r.TrainedAt,
	}
	if r.Err != nil {
		ms.Status = types.SyncFailed
		ms.Error = r.Err.Error()
	}
	return ms
}

func toModel(p types.Performance) model.Performance {
	return model.Performance{
		ID:             p.ID,
		Average:        p.Average,
		StrikeRate:     p.StrikeRate,
		BowlingAverage: p.BowlingAverage,
		EconomyRate:    p.EconomyRate,
		FieldingStats:  p.FieldingStats,
		Label:          p.Label,
	}
}

func toType(p model.Performance) types.Performance {
	return types.Performance{
		ID:             p.ID,
		Average:        p.Average,
		StrikeRate:     p.StrikeRate,
		BowlingAverage: p.BowlingAverage,
		EconomyRate:    p.EconomyRate,
		FieldingStats:  p.FieldingStats,
		Label:          p.Label,
	}
}
