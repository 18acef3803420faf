package testrecords

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/dutylog/pkg/logger"
)

// errMismatch marks a verification failure.
var errMismatch = errors.New("verification mismatch")

// expectedCounts tallies participation over the records the service
// acknowledged. A record counts once however often it was resubmitted.
func expectedCounts(records, submissions []Record, results []string) map[string]int {
	stored := make(map[string]bool, len(records))
	for i, r := range submissions {
		if results[i] == resultSuccess || results[i] == resultDuplicate {
			stored[r.ID] = true
		}
	}
	counts := make(map[string]int)
	for _, r := range records {
		if !stored[r.ID] {
			continue
		}
		for _, d := range r.Doctors {
			counts[d]++
		}
	}
	return counts
}

// verifyCounts compares the service summary with expected. With exact
// false the log held other records beforehand, so counts may only exceed
// expectations.
func verifyCounts(expected map[string]int, summary SummaryResponse, exact bool) error {
	got := make(map[string]int, len(summary.Counts))
	for _, c := range summary.Counts {
		got[c.Person] = c.Count
	}
	for person, want := range expected {
		have := got[person]
		if have == want || (!exact && have > want) {
			continue
		}
		return fmt.Errorf("%w: %s counted %d times, expected %d", errMismatch, person, have, want)
	}
	return nil
}

// verifyRanking checks that scores are ordered highest first, that equal
// scores share a rank, and that every person in people has a score.
func verifyRanking(scores []Entry, people []string) error {
	for i, e := range scores {
		switch {
		case i == 0 && e.Rank != 1:
			return fmt.Errorf("%w: first rank is %d", errMismatch, e.Rank)
		case i == 0:
		case e.Score > scores[i-1].Score:
			return fmt.Errorf("%w: entry %d scores higher than entry %d", errMismatch, i, i-1)
		case e.Score == scores[i-1].Score && e.Rank != scores[i-1].Rank:
			return fmt.Errorf("%w: tied entries %d and %d have different ranks", errMismatch, i-1, i)
		case e.Score < scores[i-1].Score && e.Rank != i+1:
			return fmt.Errorf("%w: entry %d has rank %d", errMismatch, i, e.Rank)
		}
	}

	scored := make(map[string]struct{}, len(scores))
	for _, e := range scores {
		scored[e.Person] = struct{}{}
	}
	for _, p := range people {
		if _, ok := scored[p]; !ok {
			return fmt.Errorf("%w: %s has no score", errMismatch, p)
		}
	}
	return nil
}

// verifyResults checks the summary and fatigue ranking against what was
// submitted.
func verifyResults(ctx context.Context, config *Config, expected map[string]int, summary SummaryResponse, fatigue FatigueResponse, stats *Stats) error {
	log := logger.Get().Named("verify")

	stats.SummaryPeople = len(summary.Counts)
	stats.FatigueEntries = len(fatigue.Scores)

	if err := verifyCounts(expected, summary, config.Reset); err != nil {
		return err
	}
	log.Info(ctx, "participation counts verified", logger.Int("people", len(expected)))

	if err := verifyRanking(fatigue.Scores, roster(config.NumPeople)); err != nil {
		return err
	}
	log.Info(ctx, "fatigue ranking verified", logger.Int("entries", len(fatigue.Scores)))

	top := minInt(len(fatigue.Scores), 5)
	for _, e := range fatigue.Scores[:top] {
		log.Info(ctx, "top fatigue",
			logger.Int("rank", e.Rank),
			logger.String("person", e.Person),
			logger.Float64("score", e.Score))
	}
	return nil
}
