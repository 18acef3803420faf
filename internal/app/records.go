package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/okian/dutylog/internal/adapters/csvio"
	repository "github.com/okian/dutylog/internal/adapters/repository"
	"github.com/okian/dutylog/internal/domain/localtime"
	"github.com/okian/dutylog/internal/domain/model"
	"github.com/okian/dutylog/internal/domain/types"
	"github.com/okian/dutylog/pkg/logger"
	"github.com/okian/dutylog/pkg/metrics"
)

// People returns the roster.
func (s *Service) People(ctx context.Context) ([]string, error) {
	store, err := s.storeOrErr()
	if err != nil {
		return nil, err
	}
	return store.People(ctx)
}

// AddPeople merges names into the roster.
func (s *Service) AddPeople(ctx context.Context, names []string) ([]string, error) {
	store, err := s.storeOrErr()
	if err != nil {
		return nil, err
	}
	people, err := store.AddPeople(ctx, names)
	if err != nil {
		return nil, err
	}
	s.RequestRefresh(ctx, "people_added")
	return people, nil
}

// RemovePerson drops name from the roster. Their records stay.
func (s *Service) RemovePerson(ctx context.Context, name string) ([]string, error) {
	store, err := s.storeOrErr()
	if err != nil {
		return nil, err
	}
	people, err := store.RemovePerson(ctx, strings.TrimSpace(name))
	if err != nil {
		return nil, err
	}
	s.RequestRefresh(ctx, "person_removed")
	return people, nil
}

// ResetPeople empties the roster.
func (s *Service) ResetPeople(ctx context.Context) error {
	store, err := s.storeOrErr()
	if err != nil {
		return err
	}
	if err := store.ResetPeople(ctx); err != nil {
		return err
	}
	s.RequestRefresh(ctx, "people_reset")
	return nil
}

// Logs returns the records whose timestamp lies in [from, to], newest
// first. Bounds are "YYYY-MM-DD" dates or timestamps; empty means open.
// With any bound set, records with unreadable timestamps are left out.
func (s *Service) Logs(ctx context.Context, from, to string) ([]model.Record, error) {
	store, err := s.storeOrErr()
	if err != nil {
		return nil, err
	}
	lo, hi, err := s.bounds(from, to)
	if err != nil {
		return nil, err
	}

	records, err := store.Records(ctx)
	if err != nil {
		return nil, err
	}

	type keyed struct {
		rec model.Record
		at  localtime.Instant
	}
	list := make([]keyed, 0, len(records))
	for _, r := range records {
		at := s.normalizer.Normalize(r.Timestamp)
		if lo.Valid() || hi.Valid() {
			if !at.Valid() || (lo.Valid() && at.Before(lo)) || (hi.Valid() && at.After(hi)) {
				continue
			}
		}
		list = append(list, keyed{rec: r, at: at})
	}

	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		switch {
		case a.at.Valid() && b.at.Valid():
			if a.at.Equal(b.at) {
				return a.rec.Timestamp > b.rec.Timestamp
			}
			return a.at.After(b.at)
		case a.at.Valid() != b.at.Valid():
			return a.at.Valid()
		default:
			return a.rec.Timestamp > b.rec.Timestamp
		}
	})

	out := make([]model.Record, len(list))
	for i, k := range list {
		out[i] = k.rec
	}
	return out, nil
}

// AddLog stores a new record. A record carrying an ID that was already
// submitted is not stored again and duplicate is true.
func (s *Service) AddLog(ctx context.Context, r model.Record) (rec model.Record, duplicate bool, err error) {
	store, err := s.storeOrErr()
	if err != nil {
		return r, false, err
	}

	r.ID = strings.TrimSpace(r.ID)
	r.Timestamp = strings.TrimSpace(r.Timestamp)
	r.Participants = cleanParticipants(r.Participants)
	switch {
	case r.Timestamp == "":
		return r, false, fmt.Errorf("%w: missing datetime", ErrInvalidInput)
	case !s.normalizer.Normalize(r.Timestamp).Valid():
		return r, false, fmt.Errorf("%w: unreadable datetime %q", ErrInvalidInput, r.Timestamp)
	case len(r.Participants) == 0:
		return r, false, fmt.Errorf("%w: missing doctors", ErrInvalidInput)
	}

	if r.ID != "" && s.SeenAndRecord(ctx, r.ID) {
		return r, true, nil
	}

	rec, err = store.AddRecord(ctx, r)
	switch {
	case errors.Is(err, repository.ErrDuplicateID):
		metrics.RecordDuplicateSubmission()
		return r, true, nil
	case err != nil:
		if r.ID != "" {
			s.Unrecord(ctx, r.ID)
		}
		return r, false, err
	}

	s.RequestRefresh(ctx, "record_added")
	return rec, false, nil
}

// DeleteLog removes the record with id and reports how many were removed.
func (s *Service) DeleteLog(ctx context.Context, id string) (int, error) {
	store, err := s.storeOrErr()
	if err != nil {
		return 0, err
	}
	n, err := store.DeleteRecord(ctx, id)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.RequestRefresh(ctx, "record_deleted")
	}
	return n, nil
}

// ClearLogs removes every record.
func (s *Service) ClearLogs(ctx context.Context) (int, error) {
	store, err := s.storeOrErr()
	if err != nil {
		return 0, err
	}
	n, err := store.ClearRecords(ctx)
	if err != nil {
		return 0, err
	}
	s.RequestRefresh(ctx, "records_cleared")
	return n, nil
}

// ImportCSV replaces every record with the rows read from r.
func (s *Service) ImportCSV(ctx context.Context, r io.Reader) (types.ImportResult, error) {
	store, err := s.storeOrErr()
	if err != nil {
		return types.ImportResult{}, err
	}

	records, skipped, err := csvio.Import(r)
	if err != nil {
		return types.ImportResult{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if err := store.ReplaceRecords(ctx, records); err != nil {
		return types.ImportResult{}, err
	}

	s.logger.Info(ctx, "records imported from csv",
		logger.Int("imported", len(records)),
		logger.Int("skipped", skipped),
	)
	s.RequestRefresh(ctx, "records_imported")
	return types.ImportResult{Imported: len(records), Skipped: skipped}, nil
}

// ExportCSV writes the records in [from, to], newest first, to w.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer, from, to string) error {
	records, err := s.Logs(ctx, from, to)
	if err != nil {
		return err
	}
	return csvio.Export(w, records)
}

// ImportLegacy merges a legacy data file into the store.
func (s *Service) ImportLegacy(ctx context.Context, r io.Reader) (repository.LegacyResult, error) {
	store, err := s.storeOrErr()
	if err != nil {
		return repository.LegacyResult{}, err
	}
	res, err := repository.ImportLegacy(ctx, store, r)
	if err != nil {
		return res, err
	}
	s.logger.Info(ctx, "legacy data imported",
		logger.Int("people", res.People),
		logger.Int("imported", res.Imported),
		logger.Int("skipped", res.Skipped),
	)
	s.RequestRefresh(ctx, "legacy_import")
	return res, nil
}

// bounds parses optional range bounds. A bound that is set but unreadable
// is an error.
func (s *Service) bounds(from, to string) (lo, hi localtime.Instant, err error) {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	lo = s.normalizer.ParseDateBound(from, false)
	if from != "" && !lo.Valid() {
		return lo, hi, fmt.Errorf("%w: unreadable from %q", ErrInvalidInput, from)
	}
	hi = s.normalizer.ParseDateBound(to, true)
	if to != "" && !hi.Valid() {
		return lo, hi, fmt.Errorf("%w: unreadable to %q", ErrInvalidInput, to)
	}
	return lo, hi, nil
}

// cleanParticipants trims names and drops empties and repeats, keeping
// the submitted order.
func cleanParticipants(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
