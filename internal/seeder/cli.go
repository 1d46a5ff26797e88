package seeder

import (
	"os"

	"github.com/okian/selector/pkg/logger"
)

// SetupLogging initialises the global logger, teeing into logFile when set.
func SetupLogging(logFile string) error {
	if logFile == "" {
		return logger.Init()
	}
	return logger.InitWithOptions(logger.WithFile(logFile, 0, 0, 0))
}

// ShowHelp prints usage information for the seeder.
func ShowHelp() {
	os.Stdout.WriteString(`Selector Seeder
===============

Posts synthetic player performance records to a running selector server,
checks they are all listed, retrains the model and probes /api/predict with
one typical suitable and one typical unsuitable profile.

Usage:
  go run ./cmd/seed [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:8080")
  -records int
        Number of records to generate and submit (default 200)
  -workers int
        Number of concurrent workers (default 4)
  -timeout duration
        HTTP request timeout (default 2m)
  -seed uint
        Generator seed, 0 picks one from the clock
  -output string
        Write the generated records to this JSON file
  -log string
        Also write logs to this file
  -verbose
        Log every created record
  -help
        Show this help message

Examples:
  go run ./cmd/seed -records 500 -workers 8
  go run ./cmd/seed -seed 42 -output data/seed.json
`)
}
