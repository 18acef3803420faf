// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	refreshqueue "github.com/okian/dutylog/internal/adapters/mq/queue"
	workerpool "github.com/okian/dutylog/internal/adapters/mq/worker"
	repository "github.com/okian/dutylog/internal/adapters/repository"
	"github.com/okian/dutylog/internal/domain/dedupe"
	"github.com/okian/dutylog/internal/domain/fatigue"
	"github.com/okian/dutylog/internal/domain/localtime"
	"github.com/okian/dutylog/internal/domain/model"
	"github.com/okian/dutylog/pkg/logger"
	"github.com/okian/dutylog/pkg/metrics"
)

const (
	defaultDBPath        = "data/dutylog.db"
	defaultLookbackDays  = 7
	defaultMaxSeriesDays = 366
	defaultMaxLookback   = 366
	refreshTimeout       = 30 * time.Second
)

// Service implements the API dependencies for the duty log.
type Service struct {
	mu sync.RWMutex
	// refreshMu serializes board refreshes so an older computation never
	// replaces a newer one.
	refreshMu sync.Mutex

	// Core components
	store        repository.Store
	normalizer   *localtime.Normalizer
	aggregator   *fatigue.Aggregator
	deduper      dedupe.Deduper
	refreshQueue refreshqueue.Queue
	workerPool   *workerpool.Pool
	board        *repository.Board

	// Configuration
	workerCount   int
	queueSize     int
	dedupeSize    int
	dbPath        string
	location      *time.Location
	lookbackDays  int
	defaultBands  []model.Band
	maxSeriesDays int
	maxLookback   int
	now           func() time.Time

	// State
	started bool
	stopCh  chan struct{}

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of refresh workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the refresh queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the submission ID cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDBPath sets the SQLite database file opened on Start.
func WithDBPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.dbPath = path
		}
	}
}

// WithStore supplies an already opened store. The service still closes
// it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithLocation sets the zone stored timestamps are read in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithLookbackDays sets the default fatigue horizon.
func WithLookbackDays(days int) Option {
	return func(s *Service) {
		if days >= 0 {
			s.lookbackDays = days
		}
	}
}

// WithDefaultBands sets the bands used while none are saved.
func WithDefaultBands(bands []model.Band) Option {
	return func(s *Service) {
		if bands != nil {
			s.defaultBands = fatigue.Models(fatigue.AcceptBands(bands))
		}
	}
}

// WithMaxSeriesDays caps the number of days a series request may span.
func WithMaxSeriesDays(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.maxSeriesDays = days
		}
	}
}

// WithMaxLookbackDays caps the lookback a fatigue query may ask for.
func WithMaxLookbackDays(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.maxLookback = days
		}
	}
}

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:   1,
		queueSize:     4,
		dedupeSize:    10000,
		dbPath:        defaultDBPath,
		location:      time.Local,
		lookbackDays:  defaultLookbackDays,
		defaultBands:  fatigue.DefaultBands(),
		maxSeriesDays: defaultMaxSeriesDays,
		maxLookback:   defaultMaxLookback,
		now:           time.Now,
		stopCh:        make(chan struct{}),
		logger:        nil, // Will be replaced when service starts
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	s.normalizer = localtime.New(localtime.WithLocation(s.location))
	s.aggregator = fatigue.NewAggregator(fatigue.WithNormalizer(s.normalizer))
	s.board = repository.NewBoard()

	return s
}

// Start opens the store, starts the refresh workers and publishes the
// first board.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()

	if s.started {
		s.mu.Unlock()
		return nil
	}
	select {
	case <-s.stopCh:
		s.mu.Unlock()
		return ErrStopped
	default:
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting duty log service...")

	if s.store == nil {
		store, err := repository.NewSQLiteStore(ctx, s.dbPath)
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("open store: %w", err)
		}
		s.store = store
		s.logger.Info(ctx, "using sqlite store", logger.String("path", s.dbPath))
	}

	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	q := refreshqueue.NewInMemoryQueue(
		refreshqueue.WithCapacity(s.queueSize),
	)
	s.refreshQueue = q

	s.workerPool = workerpool.NewPool(s.workerCount, q, s)
	s.workerPool.Start(ctx)

	s.started = true
	s.mu.Unlock()

	if err := s.Refresh(ctx, model.RefreshRequest{Reason: "startup", RequestedAt: s.now()}); err != nil {
		s.logger.Warn(ctx, "initial board refresh failed", logger.Error(err))
	}

	s.logger.Info(ctx, "duty log service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.String("timezone", s.location.String()),
		logger.Int("lookbackDays", s.LookbackDays()),
	)

	return nil
}

// Stop drains the refresh workers and closes the store. A stopped
// service cannot be restarted.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	pool, store := s.workerPool, s.store
	s.mu.Unlock()

	ctx := context.Background()
	s.logger.Info(ctx, "stopping duty log service...")

	close(s.stopCh)

	// Workers still call Refresh while draining, so no lock is held here.
	if pool != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, refreshTimeout)
		if err := pool.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
		}
		cancel()
	}

	if store != nil {
		if err := store.Close(); err != nil {
			s.logger.Warn(ctx, "close store", logger.Error(err))
		}
	}

	s.logger.Info(ctx, "duty log service stopped")
}

// Done is closed when the service stops.
func (s *Service) Done() <-chan struct{} {
	return s.stopCh
}

// storeOrErr returns the store, or ErrNotStarted.
func (s *Service) storeOrErr() (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

// Normalizer exposes the timestamp normalizer used by the service.
func (s *Service) Normalizer() *localtime.Normalizer {
	return s.normalizer
}

// LookbackDays returns the configured fatigue horizon.
func (s *Service) LookbackDays() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookbackDays
}

// DefaultBands returns a copy of the bands used while none are saved.
func (s *Service) DefaultBands() []model.Band {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Band(nil), s.defaultBands...)
}

// ApplyConfig updates the reloadable settings and schedules a refresh.
func (s *Service) ApplyConfig(ctx context.Context, lookbackDays int, bands []model.Band) {
	s.mu.Lock()
	if lookbackDays >= 0 {
		s.lookbackDays = lookbackDays
	}
	if bands != nil {
		s.defaultBands = fatigue.Models(fatigue.AcceptBands(bands))
	}
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Info(ctx, "configuration applied",
			logger.Int("lookbackDays", lookbackDays),
			logger.Int("defaultBands", len(bands)),
		)
	}
	s.RequestRefresh(ctx, "config")
}

// SeenAndRecord reports whether a submission ID was already seen and
// records it when not.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	s.mu.RLock()
	deduper := s.deduper
	s.mu.RUnlock()
	if deduper == nil {
		return false
	}

	seen := deduper.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordDuplicateSubmission()
	}
	return seen
}

// Unrecord forgets a submission ID so the client can retry.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.mu.RLock()
	deduper := s.deduper
	s.mu.RUnlock()
	if deduper != nil {
		deduper.Unrecord(ctx, id)
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":      s.started,
		"workerCount":  s.workerCount,
		"queueSize":    s.queueSize,
		"dedupeSize":   s.dedupeSize,
		"timezone":     s.location.String(),
		"lookbackDays": s.lookbackDays,
		"defaultBands": len(s.defaultBands),
	}

	if s.refreshQueue != nil {
		stats["pendingRefreshes"] = s.refreshQueue.Len(context.Background())
	}
	if s.deduper != nil {
		stats["dedupeEntries"] = s.deduper.Size()
	}
	if snap, ok := s.board.Snapshot(); ok {
		stats["boardComputedAt"] = snap.ComputedAt
		stats["boardEntries"] = len(snap.Entries)
	}

	return stats
}

// Size returns the number of remembered submission IDs.
func (s *Service) Size() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}
