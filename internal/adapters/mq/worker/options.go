// Package worker runs the single trainer that keeps the model in step with
// the record store.
package worker

import (
	"github.com/okian/selector/pkg/logger"
)

// Option applies a configuration option to the Trainer.
type Option func(*Trainer)

// WithName sets the trainer name for identification and logging.
func WithName(name string) Option {
	return func(t *Trainer) {
		if name != "" {
			t.name = name
		}
	}
}

// WithLogger sets a custom logger for the trainer.
func WithLogger(logger logger.Logger) Option {
	return func(t *Trainer) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithModelPath sets where every retrained model is written. An empty path
// keeps models in memory only.
func WithModelPath(path string) Option {
	return func(t *Trainer) {
		t.modelPath = path
	}
}

// WithEpochs sets the number of gradient descent passes per retrain.
func WithEpochs(epochs int) Option {
	return func(t *Trainer) {
		if epochs > 0 {
			t.epochs = epochs
		}
	}
}

// WithMaxBatch caps how many queued jobs one retrain may answer.
func WithMaxBatch(n int) Option {
	return func(t *Trainer) {
		if n > 0 {
			t.maxBatch = n
		}
	}
}
