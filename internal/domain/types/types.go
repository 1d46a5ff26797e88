// Package types contains the external shapes returned by the service.
package types

import "time"

// Performance is the flat external representation of a performance record.
type Performance struct {
	ID             int64   `json:"id"`
	Average        float64 `json:"average"`
	StrikeRate     float64 `json:"strikeRate"`
	BowlingAverage float64 `json:"bowlingAverage"`
	EconomyRate    float64 `json:"economyRate"`
	FieldingStats  float64 `json:"fieldingStats"`
	Label          float64 `json:"label"`
}

// Prediction is the answer to a suitability query.
type Prediction struct {
	Suitable    bool    `json:"suitable"`
	Probability float64 `json:"probability"`
	Generation  uint64  `json:"generation"`
}

// SyncStatus describes whether the model caught up with a record mutation.
type SyncStatus string

const (
	// SyncSynced means the retrain ran and the model file was written.
	SyncSynced SyncStatus = "synced"
	// SyncFailed means the mutation stuck but the retrain or the model write failed.
	SyncFailed SyncStatus = "failed"
	// SyncPending means the caller stopped waiting; the retrain still runs.
	SyncPending SyncStatus = "pending"
)

// ModelSync reports the retrain that followed a mutation.
type ModelSync struct {
	Status     SyncStatus    `json:"status"`
	Error      string        `json:"error,omitempty"`
	Generation uint64        `json:"generation"`
	Samples    int           `json:"samples"`
	Epochs     int           `json:"epochs"`
	Loss       float64       `json:"loss"`
	Accuracy   float64       `json:"accuracy"`
	Persisted  bool          `json:"persisted"`
	Duration   time.Duration `json:"duration"`
	TrainedAt  time.Time     `json:"trainedAt"`
}

// OK reports whether the model is in step with the store.
func (s ModelSync) OK() bool {
	return s.Status == SyncSynced
}

// ModelInfo describes the network currently serving predictions.
// LabelThreshold is set only when stored labels are binarised for training.
type ModelInfo struct {
	Path           string     `json:"path"`
	Generation     uint64     `json:"generation"`
	Inputs         int        `json:"inputs"`
	Features       []string   `json:"features"`
	HiddenUnits    int        `json:"hiddenUnits"`
	Epochs         int        `json:"epochs"`
	Trained        bool       `json:"trained"`
	TrainedAt      *time.Time `json:"trainedAt,omitempty"`
	LabelThreshold *float64   `json:"labelThreshold,omitempty"`
	LastSync       *ModelSync `json:"lastSync,omitempty"`
}

// Mutation is the result of a record write together with the retrain it
// triggered. The write stands even when Model reports a failure.
type Mutation struct {
	Record Performance `json:"record"`
	Model  ModelSync   `json:"model"`
}
