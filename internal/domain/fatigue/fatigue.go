// Package fatigue computes decaying per-person fatigue scores from
// participation records and weighted daily time bands.
//
// The snapshot computation is stateless and recomputed from raw records on
// every call. The running series in series.go carries a halved accumulator
// from day to day and is kept separate on purpose.
package fatigue

import (
	"math"
	"sort"

	"github.com/okian/dutylog/internal/domain/localtime"
	"github.com/okian/dutylog/internal/domain/model"
)

// bandScale is the fixed scaling constant of the scoring model.
const bandScale = 2.0

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithNormalizer sets the normalizer used to read record timestamps.
func WithNormalizer(n *localtime.Normalizer) Option {
	return func(a *Aggregator) {
		if n != nil {
			a.normalizer = n
		}
	}
}

// Aggregator computes fatigue snapshots. It holds no band or record state;
// everything it needs is passed into each call.
type Aggregator struct {
	normalizer *localtime.Normalizer
}

// NewAggregator creates an Aggregator with configuration options.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{normalizer: localtime.New()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Normalizer returns the normalizer used by a.
func (a *Aggregator) Normalizer() *localtime.Normalizer {
	return a.normalizer
}

// Result is a snapshot together with bookkeeping about its inputs.
type Result struct {
	Scores []model.Score
	// Kept is the number of records inside the lookback horizon.
	Kept int
	// Invalid is the number of records whose timestamp could not be read.
	Invalid int
}

// Compute returns one score per roster member, in roster order.
func (a *Aggregator) Compute(roster []string, lookbackDays int, bands []Band, records []model.Record, now localtime.Instant) []model.Score {
	return a.Evaluate(roster, lookbackDays, bands, records, now).Scores
}

// Evaluate is Compute with input bookkeeping.
func (a *Aggregator) Evaluate(roster []string, lookbackDays int, bands []Band, records []model.Record, now localtime.Instant) Result {
	res := Result{Scores: make([]model.Score, len(roster))}
	for i, person := range roster {
		res.Scores[i] = model.Score{Person: person}
	}

	if lookbackDays <= 0 || len(bands) == 0 || !now.Valid() || len(roster) == 0 {
		res.Invalid = a.countInvalid(records)
		return res
	}

	today := now.Midnight()
	minLocal := today.AddDays(-lookbackDays)

	// Normalize once per record, not once per band and day.
	byPerson := make(map[string][]localtime.Instant)
	for _, r := range records {
		t := a.normalizer.Normalize(r.Timestamp)
		if !t.Valid() {
			res.Invalid++
			continue
		}
		if !t.Between(minLocal, now) {
			continue
		}
		res.Kept++
		seen := make(map[string]struct{}, len(r.Participants))
		for _, p := range r.Participants {
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			byPerson[p] = append(byPerson[p], t)
		}
	}

	for i, person := range roster {
		times := byPerson[person]
		if len(times) == 0 {
			continue
		}
		var sum float64
		for n := 1; n <= lookbackDays; n++ {
			decay := math.Pow(0.5, float64(n))
			if decay == 0 {
				// Every older day contributes exactly nothing.
				break
			}
			baseDay := today.AddDays(-n)
			nextDay := today.AddDays(-(n - 1))
			for _, b := range bands {
				start := baseDay.OnDay(b.Start)
				end := baseDay.OnDay(b.End)
				if b.Overnight() {
					end = nextDay.OnDay(b.End)
				}
				for _, t := range times {
					if t.Within(start, end) {
						sum += bandScale * b.Weight * decay
					}
				}
			}
		}
		res.Scores[i].Value = sum
	}

	return res
}

func (a *Aggregator) countInvalid(records []model.Record) int {
	var n int
	for _, r := range records {
		if !a.normalizer.Normalize(r.Timestamp).Valid() {
			n++
		}
	}
	return n
}

// SortDescending orders scores by value, highest first. Ties keep their
// incoming order.
func SortDescending(scores []model.Score) {
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Value > scores[j].Value
	})
}

// ByPerson indexes scores by person.
func ByPerson(scores []model.Score) map[string]float64 {
	out := make(map[string]float64, len(scores))
	for _, s := range scores {
		out[s.Person] = s.Value
	}
	return out
}
