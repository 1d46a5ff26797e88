// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - New builds a Config with defaults; Load layers file and env on top.
//   - External errors are wrapped with this package's sentinel kinds.
package config

import (
	"context"
	"fmt"
	"strings"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFile, when set, tees logs into a rotating file.
	LogFile string `koanf:"log_file"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath is the SQLite database file holding performance records.
	DBPath string `koanf:"db_path"`

	// ModelPath is the single file the trained network is written to.
	ModelPath string `koanf:"model_path"`

	// Epochs is the number of passes over the full table per retrain.
	Epochs int `koanf:"epochs"`

	// HiddenUnits sizes the hidden layer of a freshly created network.
	HiddenUnits int `koanf:"hidden_units"`

	// LearningRate is the gradient descent step size.
	LearningRate float64 `koanf:"learning_rate"`

	// Seed makes weight initialisation reproducible; 0 seeds from the clock.
	Seed uint64 `koanf:"seed"`

	// RetrainQueueSize bounds pending retrain requests.
	RetrainQueueSize int `koanf:"retrain_queue_size"`

	// PredictionCacheSize bounds memoised predictions; 0 disables the cache.
	PredictionCacheSize int `koanf:"prediction_cache_size"`

	// LabelThreshold binarises labels for training (>= threshold becomes 1);
	// 0 trains on stored labels as they are.
	LabelThreshold float64 `koanf:"label_threshold"`

	// WriteRateLimit caps write requests per minute per client IP; 0 disables it.
	WriteRateLimit int `koanf:"write_rate_limit"`
}

// New creates a Config populated with defaults. The context is accepted to
// keep the package's ctx-first convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":8080",
		DBPath:              "data/selector.db",
		ModelPath:           "data/player_model.json",
		Epochs:              50,
		HiddenUnits:         10,
		LearningRate:        0.1,
		RetrainQueueSize:    1024,
		PredictionCacheSize: 4096,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.DBPath) == "":
		return fmt.Errorf("%w: db_path must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.ModelPath) == "":
		return fmt.Errorf("%w: model_path must not be empty", ErrInvalidConfig)
	case c.Epochs < 1:
		return fmt.Errorf("%w: epochs must be positive", ErrInvalidConfig)
	case c.HiddenUnits < 1:
		return fmt.Errorf("%w: hidden_units must be positive", ErrInvalidConfig)
	case c.LearningRate <= 0:
		return fmt.Errorf("%w: learning_rate must be positive", ErrInvalidConfig)
	case c.PredictionCacheSize < 0:
		return fmt.Errorf("%w: prediction_cache_size must not be negative", ErrInvalidConfig)
	case c.LabelThreshold < 0 || c.LabelThreshold > 1:
		return fmt.Errorf("%w: label_threshold must be within [0, 1]", ErrInvalidConfig)
	case c.WriteRateLimit < 0:
		return fmt.Errorf("%w: write_rate_limit must not be negative", ErrInvalidConfig)
	}
	return nil
}
