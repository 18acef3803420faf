package testrecords

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/dutylog/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging sends log output to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string, verbose bool) error {
	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "test_log_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	if err := logger.Init(logger.WithFormat(logger.FormatTint), logger.WithWriter(io.MultiWriter(os.Stdout, file))); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the record test tool.
func ShowHelp() {
	os.Stdout.WriteString(`Duty Log Record Test Tool
=========================

Submits generated participation records to a running duty log service,
then checks the participation summary and the fatigue ranking.

Usage:
  go run ./cmd/test-records [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -records int
        Number of distinct records to generate (default 500)
  -people int
        Size of the generated roster (default 12)
  -days int
        Spread records over this many past days (default 14)
  -dups float
        Share of records submitted twice (default 0.1)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -settle duration
        Wait before verifying (default 2s)
  -reset
        Clear every stored record first and verify counts exactly
  -output string
        CSV file for generated records (default: generated_records_TIMESTAMP.csv)
  -log string
        Log file for test output (default: test_log_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Test a scratch instance from an empty log
  go run ./cmd/test-records -reset

  # Heavier run against another address
  go run ./cmd/test-records -records 5000 -people 40 -workers 16 -url http://localhost:8080
`)
}
