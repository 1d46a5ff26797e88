package seeder

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/okian/selector/pkg/logger"
)

// Run executes a complete seeding run against config.BaseURL.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	stats := &Stats{
		RunID:     uuid.NewString(),
		StartTime: time.Now(),
	}
	log := logger.Get().Named("seeder")

	log.Info(ctx, "starting seeding run",
		logger.String("runID", stats.RunID),
		logger.String("baseURL", config.BaseURL),
		logger.Int("records", config.Records),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout),
	)

	client := newHTTPClient(config)

	if err := checkServiceHealth(ctx, client); err != nil {
		return stats, err
	}

	records := generateRecords(ctx, config, stats)

	ids := submitRecords(ctx, config, records, stats)
	if stats.Created == 0 {
		return stats, fmt.Errorf("%w: no records were created", ErrVerify)
	}

	if err := verifyListing(ctx, client, ids, stats); err != nil {
		return stats, err
	}

	ms, err := retrainModel(ctx, client)
	if err != nil {
		return stats, err
	}
	log.Info(ctx, "model retrained",
		logger.Uint64("generation", ms.Generation),
		logger.Int("samples", ms.Samples),
		logger.Float64("accuracy", ms.Accuracy),
	)

	if err := probeModel(ctx, client, stats); err != nil {
		return stats, err
	}

	if config.OutputFile != "" {
		if err := saveRecords(config.OutputFile, records); err != nil {
			log.Warn(ctx, "failed to save records to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	log.Info(ctx, "seeding run completed", logger.String("runID", stats.RunID))
	return stats, nil
}

// checkServiceHealth verifies the service answers on /healthz.
func checkServiceHealth(ctx context.Context, client *HTTPClient) error {
	resp, err := client.Get(ctx, "/healthz")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	if err := decode(resp, http.StatusOK, nil); err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	return nil
}

// saveRecords writes the generated records as a JSON array.
func saveRecords(filename string, records []Record) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal records: %w", err)
	}
	if err := os.WriteFile(filename, data, filePermission); err != nil {
		return fmt.Errorf("write records: %w", err)
	}
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate, recordsPerSecond float64
	if stats.Submitted > 0 {
		successRate = float64(stats.Created) / float64(stats.Submitted) * percentageMultiplier
	}
	if stats.Duration > 0 {
		recordsPerSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.String("runID", stats.RunID),
		logger.Int("generated", stats.Generated),
		logger.Int("submitted", stats.Submitted),
		logger.Int("created", stats.Created),
		logger.Int("failed", stats.Failed),
		logger.Int("syncSynced", stats.SyncSynced),
		logger.Int("syncFailed", stats.SyncFailed),
		logger.Int("syncPending", stats.SyncPending),
		logger.Int("listed", stats.Listed),
		logger.Int("probesAgreeing", stats.ProbesAgreeing),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("recordsPerSecond", recordsPerSecond),
	)
}
