package testrecords

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/dutylog/internal/adapters/csvio"
	"github.com/okian/dutylog/internal/domain/model"
	"github.com/okian/dutylog/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// Run executes the complete record test.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting duty log record test",
		logger.String("baseURL", config.BaseURL),
		logger.Int("records", config.NumRecords),
		logger.Int("people", config.NumPeople),
		logger.Int("days", config.Days),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout),
		logger.Bool("reset", config.Reset))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Start from an empty log when asked, then register the roster
	if config.Reset {
		if err := clearLogs(ctx, config); err != nil {
			return fmt.Errorf("clearing records failed: %w", err)
		}
	}

	if err := addRoster(ctx, config, roster(config.NumPeople)); err != nil {
		return fmt.Errorf("roster registration failed: %w", err)
	}

	// Step 3: Generate records
	now := time.Now()
	records, submissions, err := generateRecords(ctx, config, now, stats)
	if err != nil {
		return fmt.Errorf("record generation failed: %w", err)
	}

	// Step 4: Submit records concurrently
	results := submitRecords(ctx, config, submissions, stats)
	if stats.RecordsSuccessful == 0 {
		return fmt.Errorf("no record was accepted (%d failed, %d rate limited)", stats.RecordsFailed, stats.RecordsLimited)
	}

	// Step 5: Let the board catch up
	if config.Settle > 0 {
		logger.Get().Info(ctx, "waiting for the board to refresh", logger.Duration("settle", config.Settle))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(config.Settle):
		}
	}

	// Step 6: Read counts and scores back
	summary, err := getSummary(ctx, config)
	if err != nil {
		return fmt.Errorf("summary retrieval failed: %w", err)
	}
	fatigue, err := getFatigue(ctx, config, now)
	if err != nil {
		return fmt.Errorf("fatigue retrieval failed: %w", err)
	}

	// Step 7: Verify results
	expected := expectedCounts(records, submissions, results)
	if err := verifyResults(ctx, config, expected, summary, fatigue, stats); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	// Step 8: Save records as an importable CSV
	if err := saveRecordsToFile(ctx, config, records); err != nil {
		logger.Get().Warn(ctx, "failed to save records to file", logger.Error(err))
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "test completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	var ack struct {
		OK bool `json:"ok"`
	}
	client := newHTTPClient(config.Timeout)
	if err := client.getJSON(ctx, config.BaseURL+"/api/ping", &ack); err != nil {
		return fmt.Errorf("failed to reach service: %w", err)
	}
	if !ack.OK {
		return fmt.Errorf("service answered ping with ok=false")
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// saveRecordsToFile writes the generated records in the import CSV format.
func saveRecordsToFile(ctx context.Context, config *Config, records []Record) error {
	if len(records) == 0 {
		return fmt.Errorf("no records to save")
	}

	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "generated_records_" + timestamp + ".csv"
	}

	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close file", logger.Error(err))
		}
	}()

	rows := make([]model.Record, len(records))
	for i, r := range records {
		rows[i] = model.Record{ID: r.ID, Timestamp: r.Datetime, Participants: r.Doctors, Note: r.Note}
	}
	if err := csvio.Export(file, rows); err != nil {
		return fmt.Errorf("failed to write records: %w", err)
	}

	logger.Get().Info(ctx, "records saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final test statistics.
func displayFinalStats(stats *Stats) {
	var successRate, recordsPerSecond float64

	if stats.RecordsSubmitted > 0 {
		successRate = float64(stats.RecordsSuccessful+stats.RecordsDuplicate) / float64(stats.RecordsSubmitted) * PercentageMultiplier
	}

	if stats.Duration > 0 {
		recordsPerSecond = float64(stats.RecordsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("recordsGenerated", stats.RecordsGenerated),
		logger.Int("recordsSubmitted", stats.RecordsSubmitted),
		logger.Int("recordsSuccessful", stats.RecordsSuccessful),
		logger.Int("recordsDuplicate", stats.RecordsDuplicate),
		logger.Int("recordsLimited", stats.RecordsLimited),
		logger.Int("recordsFailed", stats.RecordsFailed),
		logger.Int("fatigueEntries", stats.FatigueEntries),
		logger.Int("summaryPeople", stats.SummaryPeople),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("recordsPerSecond", recordsPerSecond))
}
