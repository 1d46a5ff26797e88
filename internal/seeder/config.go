// Package seeder drives a running selector server end to end: it posts
// synthetic performance records, checks they are all listed and probes the
// retrained model.
package seeder

import (
	"time"

	"github.com/okian/selector/internal/domain/types"
)

// Config holds configuration for a seeding run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Records    int           // Number of records to generate
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	Seed       uint64        // Generator seed; 0 picks one from the clock
	OutputFile string        // Where generated records are written; empty skips it
	Verbose    bool          // Log every submission
}

// Record is the body posted to /api/performances.
type Record struct {
	Average        float64 `json:"average"`
	StrikeRate     float64 `json:"strikeRate"`
	BowlingAverage float64 `json:"bowlingAverage"`
	EconomyRate    float64 `json:"economyRate"`
	FieldingStats  float64 `json:"fieldingStats"`
	Label          float64 `json:"label"`
}

// Features returns the record as a prediction vector.
func (r Record) Features() []float64 {
	return []float64{r.Average, r.StrikeRate, r.BowlingAverage, r.EconomyRate, r.FieldingStats}
}

// Probe is the model's answer for one known profile.
type Probe struct {
	Name       string           `json:"name"`
	Expected   bool             `json:"expected"`
	Prediction types.Prediction `json:"prediction"`
}

// Stats holds run statistics.
type Stats struct {
	RunID          string
	Generated      int
	Submitted      int
	Created        int
	Failed         int
	SyncSynced     int
	SyncFailed     int
	SyncPending    int
	Listed         int
	Missing        int
	Probes         []Probe
	ProbesAgreeing int
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
}
