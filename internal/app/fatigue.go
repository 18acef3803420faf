package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/okian/dutylog/internal/adapters/repository"
	"github.com/okian/dutylog/internal/domain/fatigue"
	"github.com/okian/dutylog/internal/domain/localtime"
	"github.com/okian/dutylog/internal/domain/model"
	"github.com/okian/dutylog/internal/domain/tally"
	"github.com/okian/dutylog/internal/domain/types"
	"github.com/okian/dutylog/pkg/logger"
	"github.com/okian/dutylog/pkg/metrics"
)

// Bands returns the saved bands, or the defaults when none were saved.
func (s *Service) Bands(ctx context.Context) ([]model.Band, error) {
	store, err := s.storeOrErr()
	if err != nil {
		return nil, err
	}
	return s.activeBands(ctx, store)
}

func (s *Service) activeBands(ctx context.Context, store repository.Store) ([]model.Band, error) {
	bands, ok, err := store.Bands(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return s.DefaultBands(), nil
	}
	if bands == nil {
		bands = []model.Band{}
	}
	return bands, nil
}

// SaveBands stores bands in canonical "HH:MM" form with clamped weights
// and returns what was stored. An empty list is kept and scores everyone
// zero.
func (s *Service) SaveBands(ctx context.Context, bands []model.Band) ([]model.Band, error) {
	store, err := s.storeOrErr()
	if err != nil {
		return nil, err
	}
	if bands == nil {
		return nil, fmt.Errorf("%w: missing bands", ErrInvalidInput)
	}

	accepted := fatigue.Models(fatigue.AcceptBands(bands))
	if err := store.SaveBands(ctx, accepted); err != nil {
		return nil, err
	}
	s.RequestRefresh(ctx, "bands_saved")
	return accepted, nil
}

// ResetBands forgets the saved bands and returns the defaults.
func (s *Service) ResetBands(ctx context.Context) ([]model.Band, error) {
	store, err := s.storeOrErr()
	if err != nil {
		return nil, err
	}
	if err := store.ResetBands(ctx); err != nil {
		return nil, err
	}
	s.RequestRefresh(ctx, "bands_reset")
	return s.DefaultBands(), nil
}

// Fatigue computes fresh scores for the whole roster, highest first.
func (s *Service) Fatigue(ctx context.Context, q types.FatigueQuery) (types.Board, error) {
	store, err := s.storeOrErr()
	if err != nil {
		return types.Board{}, err
	}

	now := s.normalizer.FromTime(s.now())
	if strings.TrimSpace(q.Now) != "" {
		now = s.normalizer.Normalize(q.Now)
		if !now.Valid() {
			return types.Board{}, fmt.Errorf("%w: unreadable now %q", ErrInvalidInput, q.Now)
		}
	}
	days := s.LookbackDays()
	if q.Days != nil {
		days = *q.Days
		if days > s.maxLookback {
			return types.Board{}, fmt.Errorf("%w: days is %d, limit is %d", ErrInvalidInput, days, s.maxLookback)
		}
	}

	snap, _, err := s.compute(ctx, store, now, days, "query")
	return snap, err
}

// compute scores the roster and also reports how many records were read.
func (s *Service) compute(ctx context.Context, store repository.Store, now localtime.Instant, days int, mode string) (types.Board, int, error) {
	start := time.Now()

	people, err := store.People(ctx)
	if err != nil {
		return types.Board{}, 0, err
	}
	records, err := store.Records(ctx)
	if err != nil {
		return types.Board{}, 0, err
	}
	bands, err := s.activeBands(ctx, store)
	if err != nil {
		return types.Board{}, 0, err
	}

	res := s.aggregator.Evaluate(people, days, fatigue.AcceptBands(bands), records, now)
	fatigue.SortDescending(res.Scores)

	metrics.RecordFatigueComputation(mode, float64(time.Since(start).Microseconds())/1000)
	metrics.RecordInvalidTimestamps(res.Invalid)
	if res.Invalid > 0 {
		s.logger.Debug(ctx, "records with unreadable timestamps skipped",
			logger.Int("invalid", res.Invalid),
			logger.String("mode", mode),
		)
	}

	return types.Board{
		ComputedAt:   s.now(),
		Reference:    now.String(),
		LookbackDays: days,
		Bands:        bands,
		Entries:      types.Rank(res.Scores),
	}, len(records), nil
}

// Board returns the cached snapshot published by the last refresh.
func (s *Service) Board() (types.Board, bool) {
	return s.board.Snapshot()
}

// Series computes the running fatigue series for the roster over the
// days of [from, to].
func (s *Service) Series(ctx context.Context, from, to string) (types.Series, error) {
	store, err := s.storeOrErr()
	if err != nil {
		return types.Series{}, err
	}
	if strings.TrimSpace(from) == "" || strings.TrimSpace(to) == "" {
		return types.Series{}, fmt.Errorf("%w: from and to are required", ErrInvalidInput)
	}
	lo, hi, err := s.bounds(from, to)
	if err != nil {
		return types.Series{}, err
	}
	if days := lo.DaysUntil(hi) + 1; days > s.maxSeriesDays {
		return types.Series{}, fmt.Errorf("%w: range spans %d days, limit is %d", ErrInvalidInput, days, s.maxSeriesDays)
	}

	people, err := store.People(ctx)
	if err != nil {
		return types.Series{}, err
	}
	records, err := store.Records(ctx)
	if err != nil {
		return types.Series{}, err
	}

	start := time.Now()
	res := s.aggregator.Series(people, lo, hi, records)
	metrics.RecordFatigueComputation("series", float64(time.Since(start).Microseconds())/1000)

	out := types.Series{
		Dates: make([]string, len(res.Dates)),
		Lines: make([]types.SeriesLine, len(res.People)),
	}
	for i, d := range res.Dates {
		out.Dates[i] = d.String()
	}
	for i, p := range res.People {
		out.Lines[i] = types.SeriesLine{Person: p, Values: res.Values[i]}
	}
	return out, nil
}

// Summary counts participations in [q.From, q.To].
func (s *Service) Summary(ctx context.Context, q types.SummaryQuery) (types.Summary, error) {
	lo, hi, err := s.bounds(q.From, q.To)
	if err != nil {
		return types.Summary{}, err
	}
	return s.summarize(ctx, lo, hi, q.Sort, q.Dir)
}

// QuickSummary counts participations over the last days calendar days,
// today included.
func (s *Service) QuickSummary(ctx context.Context, days int, sortKey, dir string) (types.Summary, error) {
	if days < 1 {
		return types.Summary{}, fmt.Errorf("%w: days must be positive", ErrInvalidInput)
	}
	lo, hi := tally.QuickRange(s.normalizer.FromTime(s.now()), days)
	return s.summarize(ctx, lo, hi, sortKey, dir)
}

func (s *Service) summarize(ctx context.Context, lo, hi localtime.Instant, sortKey, dir string) (types.Summary, error) {
	store, err := s.storeOrErr()
	if err != nil {
		return types.Summary{}, err
	}
	records, err := store.Records(ctx)
	if err != nil {
		return types.Summary{}, err
	}

	sum := tally.Count(records, lo, hi, s.normalizer)
	key, direction := tally.ParseSort(sortKey, dir)
	tally.Sort(sum.Counts, key, direction)

	return types.Summary{
		From:    lo.String(),
		To:      hi.String(),
		Sort:    string(key),
		Dir:     string(direction),
		Records: sum.Records,
		People:  sum.People,
		Counts:  types.Counts(sum.Counts),
	}, nil
}

// RequestRefresh schedules a board refresh. When one is already pending
// the request is coalesced into it.
func (s *Service) RequestRefresh(ctx context.Context, reason string) {
	s.mu.RLock()
	q := s.refreshQueue
	started := s.started
	s.mu.RUnlock()
	if !started || q == nil {
		return
	}

	if !q.Enqueue(ctx, model.RefreshRequest{Reason: reason, RequestedAt: s.now()}) {
		s.logger.Debug(ctx, "refresh already pending", logger.String("reason", reason))
	}
}

// Refresh recomputes the board from the store and publishes it. It
// implements the worker's Refresher.
func (s *Service) Refresh(ctx context.Context, req model.RefreshRequest) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	store, err := s.storeOrErr()
	if err != nil {
		return err
	}

	snap, total, err := s.compute(ctx, store, s.normalizer.FromTime(s.now()), s.LookbackDays(), "board")
	if err != nil {
		metrics.RecordErrorByComponent("service", "refresh")
		return fmt.Errorf("refresh board (%s): %w", req.Reason, err)
	}

	scores := make(map[string]float64, len(snap.Entries))
	for _, e := range snap.Entries {
		scores[e.Person] = e.Score
	}
	metrics.UpdateFatigueScores(scores)
	metrics.UpdateRosterSize(len(snap.Entries))
	metrics.UpdateBandCount(len(snap.Bands))
	metrics.UpdateRecordsTotal(total)
	s.board.Publish(snap)

	s.logger.Debug(ctx, "board refreshed",
		logger.String("reason", req.Reason),
		logger.Int("people", len(snap.Entries)),
		logger.Duration("lag", time.Since(req.RequestedAt)),
	)
	return nil
}
