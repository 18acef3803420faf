// Package tally aggregates participation counts over a time range.
package tally

import (
	"sort"
	"time"

	"github.com/okian/dutylog/internal/domain/localtime"
	"github.com/okian/dutylog/internal/domain/model"
	"github.com/okian/dutylog/internal/domain/roster"
)

// SortKey selects the summary ordering.
type SortKey string

// Sort keys.
const (
	ByCount  SortKey = "count"
	ByPerson SortKey = "doctor"
)

// Direction is the sort direction.
type Direction string

// Directions.
const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Summary is the result of Count.
type Summary struct {
	Counts []model.Count
	// Records is the number of records inside the range.
	Records int
	// People is the number of distinct people seen.
	People int
}

// Count tallies participations of records whose timestamp lies in
// [from, to]. An invalid bound leaves that side open. Records with an
// unreadable timestamp are skipped. Counts come back in first-seen order.
func Count(records []model.Record, from, to localtime.Instant, n *localtime.Normalizer) Summary {
	var sum Summary
	index := make(map[string]int)
	for _, r := range records {
		t := n.Normalize(r.Timestamp)
		if !t.Valid() {
			continue
		}
		if from.Valid() && t.Before(from) {
			continue
		}
		if to.Valid() && t.After(to) {
			continue
		}
		sum.Records++
		for _, p := range r.Participants {
			i, ok := index[p]
			if !ok {
				i = len(sum.Counts)
				index[p] = i
				sum.Counts = append(sum.Counts, model.Count{Person: p})
			}
			sum.Counts[i].Count++
		}
	}
	sum.People = len(sum.Counts)
	return sum
}

// ParseSort reads a sort key and direction. Unknown keys fall back to
// count; a missing direction defaults to desc for count and asc for person.
func ParseSort(key, dir string) (SortKey, Direction) {
	k := ByCount
	if SortKey(key) == ByPerson {
		k = ByPerson
	}
	switch Direction(dir) {
	case Asc, Desc:
		return k, Direction(dir)
	}
	if k == ByPerson {
		return k, Asc
	}
	return k, Desc
}

// Sort orders counts in place. Ties keep their incoming order.
func Sort(counts []model.Count, key SortKey, dir Direction) {
	col := roster.Collator()
	sort.SliceStable(counts, func(i, j int) bool {
		a, b := counts[i], counts[j]
		if dir == Desc {
			a, b = b, a
		}
		if key == ByPerson {
			return col.CompareString(a.Person, b.Person) < 0
		}
		return a.Count < b.Count
	})
}

// QuickRange returns the window covering the last days calendar days,
// today included: [today-(days-1) 00:00, today 23:59:59.999].
func QuickRange(now localtime.Instant, days int) (from, to localtime.Instant) {
	if !now.Valid() {
		return localtime.Invalid(), localtime.Invalid()
	}
	if days < 1 {
		days = 1
	}
	today := now.Midnight()
	from = today.AddDays(-(days - 1))
	to = localtime.FromTime(today.AddDays(1).Time().Add(-time.Millisecond), today.Location())
	return from, to
}
