package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/dutylog/internal/testrecords"
)

// Default configuration constants.
const (
	defaultNumRecords  = 500
	defaultNumPeople   = 12
	defaultDays        = 14
	defaultDuplicates  = 0.1
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultSettle      = 2 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		numRecords = flag.Int("records", defaultNumRecords, "Number of distinct records to generate")
		numPeople  = flag.Int("people", defaultNumPeople, "Size of the generated roster")
		days       = flag.Int("days", defaultDays, "Spread records over this many past days")
		dups       = flag.Float64("dups", defaultDuplicates, "Share of records submitted twice")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		settle     = flag.Duration("settle", defaultSettle, "Wait before verifying")
		reset      = flag.Bool("reset", false, "Clear every stored record first")
		outputFile = flag.String("output", "", "CSV file for generated records (default: generated_records_TIMESTAMP.csv)")
		logFile    = flag.String("log", "", "Log file for test output (default: test_log_TIMESTAMP.log)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		testrecords.ShowHelp()
		return
	}

	if err := testrecords.SetupLogging(*logFile, *verbose); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	config := &testrecords.Config{
		BaseURL:        *baseURL,
		NumRecords:     *numRecords,
		NumPeople:      *numPeople,
		Days:           *days,
		DuplicateRatio: *dups,
		Workers:        *workers,
		Timeout:        *timeout,
		Settle:         *settle,
		Reset:          *reset,
		OutputFile:     *outputFile,
		LogFile:        *logFile,
		Verbose:        *verbose,
	}

	if err := testrecords.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Test failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
