package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/okian/dutylog/internal/domain/model"
)

// legacyData is the shape of the JSON file kept by the previous server.
type legacyData struct {
	Doctors []string    `json:"doctors"`
	Logs    []legacyLog `json:"logs"`
	Audit   []any       `json:"audit"`
}

type legacyLog struct {
	ID       string   `json:"id"`
	Datetime string   `json:"datetime"`
	Doctors  []string `json:"doctors"`
	Doctor   string   `json:"doctor"`
	Note     string   `json:"note"`
}

// participants folds the list and scalar participant fields into one list.
func (l legacyLog) participants() []string {
	src := l.Doctors
	if len(src) == 0 && l.Doctor != "" {
		src = []string{l.Doctor}
	}
	out := make([]string, 0, len(src))
	for _, p := range src {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// LegacyResult reports what ImportLegacy did.
type LegacyResult struct {
	People   int
	Imported int
	Skipped  int
}

// ImportLegacy loads a legacy data file into s. The roster is merged and
// records are added; records whose ID already exists or that lack a
// datetime are skipped. The audit trail is ignored.
func ImportLegacy(ctx context.Context, s Store, r io.Reader) (LegacyResult, error) {
	var (
		data legacyData
		res  LegacyResult
	)
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return res, fmt.Errorf("%w: %w", ErrLegacyFormat, err)
	}

	people, err := s.AddPeople(ctx, data.Doctors)
	if err != nil {
		return res, err
	}
	res.People = len(people)

	for _, l := range data.Logs {
		_, err := s.AddRecord(ctx, model.Record{
			ID:           l.ID,
			Timestamp:    l.Datetime,
			Participants: l.participants(),
			Note:         l.Note,
		})
		switch {
		case err == nil:
			res.Imported++
		case errors.Is(err, ErrDuplicateID), errors.Is(err, ErrInvalidRecord):
			res.Skipped++
		default:
			return res, err
		}
	}

	if res.Imported > 0 {
		if people, err = s.People(ctx); err == nil {
			res.People = len(people)
		}
	}
	return res, nil
}
