// Package types contains common types used across the application
package types

import (
	"time"

	"github.com/okian/dutylog/internal/domain/model"
)

// FatigueEntry is one row of a ranked fatigue list.
type FatigueEntry struct {
	Rank   int     `json:"rank"`
	Person string  `json:"person"`
	Score  float64 `json:"score"`
}

// CountEntry is one row of a participation summary.
type CountEntry struct {
	Person string `json:"doctor"`
	Count  int    `json:"count"`
}

// Board is a cached fatigue snapshot.
type Board struct {
	ComputedAt   time.Time      `json:"computed_at"`
	Reference    string         `json:"now"`
	LookbackDays int            `json:"lookback_days"`
	Bands        []model.Band   `json:"bands"`
	Entries      []FatigueEntry `json:"scores"`
}

// Rank turns sorted scores into ranked entries. Equal values share a rank.
func Rank(scores []model.Score) []FatigueEntry {
	out := make([]FatigueEntry, len(scores))
	for i, s := range scores {
		rank := i + 1
		if i > 0 && s.Value == scores[i-1].Value {
			rank = out[i-1].Rank
		}
		out[i] = FatigueEntry{Rank: rank, Person: s.Person, Score: s.Value}
	}
	return out
}

// Counts converts domain counts into summary rows.
func Counts(counts []model.Count) []CountEntry {
	out := make([]CountEntry, len(counts))
	for i, c := range counts {
		out[i] = CountEntry{Person: c.Person, Count: c.Count}
	}
	return out
}

// Summary is a participation count report over a range.
type Summary struct {
	From    string       `json:"from,omitempty"`
	To      string       `json:"to,omitempty"`
	Sort    string       `json:"sort"`
	Dir     string       `json:"dir"`
	Records int          `json:"records"`
	People  int          `json:"people"`
	Counts  []CountEntry `json:"counts"`
}

// SeriesLine is one person's running fatigue values, aligned with Series.Dates.
type SeriesLine struct {
	Person string    `json:"person"`
	Values []float64 `json:"values"`
}

// Series is the running fatigue series over a range of days.
type Series struct {
	Dates []string     `json:"dates"`
	Lines []SeriesLine `json:"series"`
}

// FatigueQuery selects the reference time and horizon of a fatigue
// computation. An empty Now means the current time; a nil Days means the
// configured lookback.
type FatigueQuery struct {
	Now  string
	Days *int
}

// SummaryQuery selects the range and ordering of a count summary.
type SummaryQuery struct {
	From string
	To   string
	Sort string
	Dir  string
}

// ImportResult reports the outcome of a bulk import.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}
