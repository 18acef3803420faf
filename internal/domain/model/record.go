// Package model contains domain models passed between layers.
package model

import "time"

// Record is one on-call participation entry as persisted.
// Timestamp keeps the stored dialect verbatim; the engine normalizes it.
type Record struct {
	ID           string   `json:"id"`
	Timestamp    string   `json:"datetime"`
	Participants []string `json:"doctors"`
	Note         string   `json:"note"`
}

// HasParticipant reports whether person took part in r.
func (r Record) HasParticipant(person string) bool {
	for _, p := range r.Participants {
		if p == person {
			return true
		}
	}
	return false
}

// Band is a daily time window with a weight, as configured.
// Start and End are "HH:MM" strings; End at or before Start wraps past midnight.
type Band struct {
	Start  string  `json:"start" koanf:"start" yaml:"start"`
	End    string  `json:"end" koanf:"end" yaml:"end"`
	Weight float64 `json:"weight" koanf:"weight" yaml:"weight"`
}

// Score is a person's fatigue value.
type Score struct {
	Person string
	Value  float64
}

// Count is a person's participation count over a range.
type Count struct {
	Person string
	Count  int
}

// RefreshRequest asks the refresh pipeline to recompute the fatigue board.
type RefreshRequest struct {
	Reason      string
	RequestedAt time.Time
}
