package testrecords

import "time"

// Config holds configuration for the record test
type Config struct {
	BaseURL        string        // Base URL of the service
	NumRecords     int           // Number of distinct records to generate
	NumPeople      int           // Size of the generated roster
	Days           int           // Records are spread over this many past days
	DuplicateRatio float64       // Share of records submitted a second time
	Workers        int           // Number of concurrent workers
	Timeout        time.Duration // HTTP request timeout
	Settle         time.Duration // Wait between submission and verification
	Reset          bool          // Clear every stored record before submitting
	OutputFile     string        // CSV file for generated records
	LogFile        string        // Log file for test output
	Verbose        bool          // Enable verbose logging
}

// Record is the POST /api/logs payload.
type Record struct {
	ID       string   `json:"id"`
	Datetime string   `json:"datetime"`
	Doctors  []string `json:"doctors"`
	Note     string   `json:"note"`
}

// Entry is one row of a fatigue ranking.
type Entry struct {
	Rank   int     `json:"rank"`
	Person string  `json:"person"`
	Score  float64 `json:"score"`
}

// FatigueResponse is the body of GET /api/fatigue.
type FatigueResponse struct {
	Now    string  `json:"now"`
	Scores []Entry `json:"scores"`
}

// CountEntry is one row of a participation summary.
type CountEntry struct {
	Person string `json:"doctor"`
	Count  int    `json:"count"`
}

// SummaryResponse is the body of GET /api/summary.
type SummaryResponse struct {
	Records int          `json:"records"`
	Counts  []CountEntry `json:"counts"`
}

// AckResponse represents the response from record submission
type AckResponse struct {
	Duplicate bool `json:"duplicate"`
}

// Stats holds test statistics
type Stats struct {
	RecordsGenerated  int
	RecordsSubmitted  int
	RecordsSuccessful int
	RecordsDuplicate  int
	RecordsLimited    int
	RecordsFailed     int
	FatigueEntries    int
	SummaryPeople     int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
