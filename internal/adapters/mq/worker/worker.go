package worker

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/selector/internal/adapters/mq/queue"
	"github.com/okian/selector/internal/domain/model"
	"github.com/okian/selector/internal/domain/suitability"
	"github.com/okian/selector/pkg/logger"
	"github.com/okian/selector/pkg/metrics"
)

const (
	defaultEpochs   = 50
	defaultMaxBatch = 256
)

// Job is what the trainer reads off the queue.
type Job = queue.Job

// Lister reads the full record table.
type Lister interface {
	List(ctx context.Context) ([]model.Performance, error)
}

// Encoder turns records into training samples.
type Encoder interface {
	Dataset(records []model.Performance) []model.Sample
}

// Queue defines how the trainer receives jobs.
type Queue interface {
	Dequeue() <-chan Job
	Drain(max int) []Job
}

// Worker consumes retrain jobs until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or Shutdown is called.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	// Jobs already queued are answered before it returns.
	Shutdown(ctx context.Context) error
}

// served pairs a network with the generation that produced it so readers
// never see one without the other.
type served struct {
	network    *suitability.Network
	generation uint64
}

// Trainer is the only writer of the model. Each retrain reads the whole
// table, fits a copy of the current network, swaps it in and then saves it.
// A fit that fails or leaves non-finite weights keeps the old network.
// Jobs that queued up while a retrain ran are answered by the next one.
type Trainer struct {
	queue   Queue
	store   Lister
	encoder Encoder
	name    string

	modelPath string
	epochs    int
	maxBatch  int

	current atomic.Pointer[served]
	last    atomic.Pointer[model.RetrainResult]

	// Shutdown control
	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewTrainer creates a trainer serving initial until the first retrain.
func NewTrainer(q Queue, store Lister, encoder Encoder, initial *suitability.Network, opts ...Option) (*Trainer, error) {
	if initial == nil {
		return nil, ErrNoNetwork
	}

	t := &Trainer{
		queue:    q,
		store:    store,
		encoder:  encoder,
		name:     "trainer",
		epochs:   defaultEpochs,
		maxBatch: defaultMaxBatch,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("trainer"),
	}

	for _, opt := range opts {
		opt(t)
	}

	if t.name != "trainer" {
		t.logger = t.logger.Named(t.name)
	}

	t.current.Store(&served{network: initial})
	metrics.UpdateModelGeneration(0)
	return t, nil
}

// Current returns the network serving predictions and its generation.
func (t *Trainer) Current() (*suitability.Network, uint64) {
	s := t.current.Load()
	return s.network, s.generation
}

// LastResult returns the outcome of the most recent retrain, if any.
func (t *Trainer) LastResult() (model.RetrainResult, bool) {
	r := t.last.Load()
	if r == nil {
		return model.RetrainResult{}, false
	}
	return *r, true
}

// ModelPath returns where retrained models are written.
func (t *Trainer) ModelPath() string { return t.modelPath }

// Epochs returns the number of passes per retrain.
func (t *Trainer) Epochs() int { return t.epochs }

// Run starts the trainer loop.
func (t *Trainer) Run(ctx context.Context) {
	defer close(t.done)

	jobs := t.queue.Dequeue()
	for {
		select {
		case <-ctx.Done():
			t.abandon(t.queue.Drain(math.MaxInt), ctx.Err())
			return
		case <-t.shutdown:
			t.finish(ctx)
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			batch := append([]Job{job}, t.queue.Drain(t.maxBatch-1)...)
			t.process(ctx, batch)
		}
	}
}

// Shutdown gracefully stops the trainer.
func (t *Trainer) Shutdown(ctx context.Context) error {
	t.shutdownOnce.Do(func() { close(t.shutdown) })

	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		t.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// finish answers whatever is still queued with one last retrain.
func (t *Trainer) finish(ctx context.Context) {
	for {
		batch := t.queue.Drain(t.maxBatch)
		if len(batch) == 0 {
			return
		}
		t.process(ctx, batch)
	}
}

func (t *Trainer) abandon(batch []Job, err error) {
	for _, j := range batch {
		reply(j, model.RetrainResult{JobID: j.ID, Err: fmt.Errorf("%w: %w", ErrStopped, err)})
	}
}

// process runs one retrain and sends its result to every job in batch.
func (t *Trainer) process(ctx context.Context, batch []Job) {
	res := t.retrain(ctx)
	if len(batch) > 1 {
		metrics.RecordRetrainCoalesced(len(batch) - 1)
	}

	for i, j := range batch {
		r := res
		r.JobID = j.ID
		r.Coalesced = i > 0
		reply(j, r)
	}

	fields := []logger.Field{
		logger.String("reason", string(batch[0].Reason)),
		logger.Int("jobs", len(batch)),
		logger.Uint64("generation", res.Generation),
		logger.Int("samples", res.Samples),
		logger.Duration("duration", res.Duration),
	}
	if res.Err != nil {
		t.logger.Error(ctx, "retrain failed", append(fields, logger.Error(res.Err))...)
		return
	}
	t.logger.Info(ctx, "model retrained", append(fields,
		logger.Float64("loss", res.Loss),
		logger.Float64("accuracy", res.Accuracy),
		logger.Bool("persisted", res.Persisted),
	)...)
}

// retrain fits a copy of the serving network on the current table.
func (t *Trainer) retrain(ctx context.Context) (res model.RetrainResult) {
	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
		metrics.RecordRetrainDuration(float64(res.Duration.Microseconds()) / 1000)
		if res.Err != nil {
			metrics.RecordRetrain("failed")
			metrics.RecordErrorByComponent("trainer", "retrain_failed")
		} else {
			metrics.RecordRetrain("success")
		}
		stored := res
		t.last.Store(&stored)
	}()

	records, err := t.store.List(ctx)
	if err != nil {
		res.Err = fmt.Errorf("%w: %w", ErrRetrainList, err)
		return res
	}
	samples := t.encoder.Dataset(records)
	metrics.UpdateRetrainSamples(len(samples))

	cur := t.current.Load()
	next := cur.network.Clone()
	report, err := next.Fit(ctx, samples, t.epochs)
	if err != nil {
		res.Err = fmt.Errorf("fit model: %w", err)
		return res
	}
	if !next.Finite() {
		res.Err = ErrDiverged
		return res
	}

	res.Samples = report.Samples
	res.Epochs = report.Epochs
	res.Loss = report.Loss
	res.Accuracy = report.Accuracy
	res.TrainedAt = time.Now()

	// The new network serves even if the write fails; the next retrain
	// rewrites the file.
	gen := cur.generation + 1
	t.current.Store(&served{network: next, generation: gen})
	res.Generation = gen
	metrics.UpdateModelGeneration(gen)
	if report.Samples > 0 {
		metrics.UpdateTrainingQuality(report.Loss, report.Accuracy)
	}

	if t.modelPath == "" {
		return res
	}
	if err := next.Save(t.modelPath); err != nil {
		metrics.RecordModelSaveError()
		res.Err = fmt.Errorf("%w: %w", ErrModelSave, err)
		return res
	}
	res.Persisted = true
	return res
}

func reply(j Job, r model.RetrainResult) {
	select {
	case j.Reply <- r:
	default:
		// reply already delivered
	}
}
