package testrecords

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/okian/dutylog/pkg/logger"
)

// Constants for random number generation.
const (
	maxParticipants = 3
	secondsPerDay   = 24 * 60 * 60
)

// Notes picked for generated records.
var notes = []string{"", "", "ward call", "ER consult", "night admission", "rapid response"}

// getRandomInt returns a random int in [0, n) using crypto/rand.
func getRandomInt(n int) int {
	if n <= 1 {
		return 0
	}
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

// roster returns the generated people names.
func roster(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("Dr-%02d", i+1)
	}
	return names
}

// generateRecords creates config.NumRecords distinct records placed in the
// config.Days before now, plus the resubmissions that exercise duplicate
// detection. The second slice is the submission order.
func generateRecords(ctx context.Context, config *Config, now time.Time, stats *Stats) ([]Record, []Record, error) {
	if config.NumRecords <= 0 || config.NumPeople <= 0 || config.Days <= 0 {
		return nil, nil, fmt.Errorf("records, people and days must be positive")
	}
	logger.Get().Info(ctx, "generating records",
		logger.Int("records", config.NumRecords),
		logger.Int("people", config.NumPeople),
		logger.Int("days", config.Days))

	people := roster(config.NumPeople)
	records := make([]Record, config.NumRecords)
	for i := range records {
		if err := ctx.Err(); err != nil {
			return nil, nil, fmt.Errorf("context cancelled during record generation: %w", err)
		}
		records[i] = generateSingleRecord(now, config.Days, people)
	}

	submissions := make([]Record, 0, len(records))
	submissions = append(submissions, records...)
	dups := int(float64(len(records)) * config.DuplicateRatio)
	for i := 0; i < dups; i++ {
		submissions = append(submissions, records[getRandomInt(len(records))])
	}

	stats.RecordsGenerated = len(records)
	logger.Get().Info(ctx, "generated records successfully",
		logger.Int("count", len(records)),
		logger.Int("resubmissions", dups))

	return records, submissions, nil
}

// generateSingleRecord creates one record with distinct participants.
func generateSingleRecord(now time.Time, days int, people []string) Record {
	offset := time.Duration(getRandomInt(days*secondsPerDay)) * time.Second
	at := now.Add(-offset).Truncate(time.Minute)

	count := 1 + getRandomInt(minInt(maxParticipants, len(people)))
	picked := make(map[int]struct{}, count)
	doctors := make([]string, 0, count)
	for len(doctors) < count {
		i := getRandomInt(len(people))
		if _, ok := picked[i]; ok {
			continue
		}
		picked[i] = struct{}{}
		doctors = append(doctors, people[i])
	}

	return Record{
		ID:       uuid.NewString(),
		Datetime: at.Format(timestampLayout),
		Doctors:  doctors,
		Note:     notes[getRandomInt(len(notes))],
	}
}

// minInt returns the minimum of two integers.
func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
