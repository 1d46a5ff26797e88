package model

import (
	"time"

	"github.com/google/uuid"
)

// RetrainReason names what asked for a retrain.
type RetrainReason string

const (
	ReasonAdd    RetrainReason = "add"
	ReasonUpdate RetrainReason = "update"
	ReasonDelete RetrainReason = "delete"
	ReasonManual RetrainReason = "manual"
)

// RetrainJob asks the trainer to refit the model on the current table.
// Reply is buffered so the trainer never blocks on a caller that gave up.
type RetrainJob struct {
	ID         string
	Reason     RetrainReason
	RecordID   int64
	EnqueuedAt time.Time
	Reply      chan RetrainResult
}

// NewRetrainJob creates a job with a fresh id and a one-slot reply channel.
func NewRetrainJob(reason RetrainReason, recordID int64) RetrainJob {
	return RetrainJob{
		ID:         uuid.NewString(),
		Reason:     reason,
		RecordID:   recordID,
		EnqueuedAt: time.Now(),
		Reply:      make(chan RetrainResult, 1),
	}
}

// RetrainResult is what the trainer sends back for a job.
type RetrainResult struct {
	JobID      string
	Generation uint64
	Samples    int
	Epochs     int
	Loss       float64
	Accuracy   float64
	Persisted  bool
	Duration   time.Duration
	TrainedAt  time.Time
	// Coalesced is true when another job's retrain answered this one.
	Coalesced bool
	Err       error
}
