package fatigue

import (
	"github.com/okian/dutylog/internal/domain/localtime"
	"github.com/okian/dutylog/internal/domain/model"
)

// Fixed windows of the running series, relative to each day.
var (
	eveningStart = localtime.Clock{Hour: 17}
	nightStart   = localtime.Clock{Hour: 22}
	resetClock   = localtime.Clock{Hour: 9, Minute: 1}
)

const (
	eveningPoints = 1.0
	nightPoints   = 2.0
)

// SeriesResult holds one value per person per day.
type SeriesResult struct {
	Dates  []localtime.Instant
	People []string
	// Values[i][d] is People[i]'s accumulator on Dates[d].
	Values [][]float64
}

// Series computes the running fatigue series for every calendar day from
// the day of from through the day of to. Each day halves every accumulator,
// then adds one point per record in [previous day 17:00, 22:00) and two per
// record in [previous day 22:00, day 09:01). Values are stamped at 09:01.
func (a *Aggregator) Series(people []string, from, to localtime.Instant, records []model.Record) SeriesResult {
	res := SeriesResult{People: people, Values: make([][]float64, len(people))}
	for i := range res.Values {
		res.Values[i] = []float64{}
	}
	if !from.Valid() || !to.Valid() {
		return res
	}

	startDay := from.Midnight()
	endDay := to.Midnight()
	windowStart := startDay.AddDays(-1).OnDay(eveningStart)
	windowEnd := endDay.OnDay(resetClock)

	perPerson := make(map[string][]localtime.Instant, len(people))
	for _, p := range people {
		perPerson[p] = nil
	}
	for _, r := range records {
		t := a.normalizer.Normalize(r.Timestamp)
		if !t.Between(windowStart, windowEnd) {
			continue
		}
		for _, p := range r.Participants {
			if list, ok := perPerson[p]; ok {
				perPerson[p] = append(list, t)
			}
		}
	}

	acc := make([]float64, len(people))
	for day := startDay; day.NotAfter(endDay); day = day.AddDays(1) {
		prev := day.AddDays(-1)
		eveStart := prev.OnDay(eveningStart)
		night := prev.OnDay(nightStart)
		morningEnd := day.OnDay(resetClock)

		for i, p := range people {
			acc[i] *= 0.5
			for _, t := range perPerson[p] {
				switch {
				case t.Within(eveStart, night):
					acc[i] += eveningPoints
				case t.Within(night, morningEnd):
					acc[i] += nightPoints
				}
			}
			res.Values[i] = append(res.Values[i], acc[i])
		}
		res.Dates = append(res.Dates, morningEnd)
	}

	return res
}
