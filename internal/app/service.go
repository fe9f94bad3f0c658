// Package service implements the read-compute-write handlers behind the
// message boundary: recording verdicts, event lifecycle, category
// lifecycle, settings, import/export and the maintenance sweep.
//
// Each handler performs one load -> pure-transform -> atomic-commit cycle
// against the snapshot store. There is no in-process lock across handlers:
// the store serializes individual get/set calls but not read-modify-write
// cycles, so two racing handlers can lose an update. The realistic
// concurrency here is one user with a few tabs, and a failed commit leaves
// the persisted state untouched, so this is an accepted limitation.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/horyu/NiconiCompare-sub000/internal/adapters/mq/retry"
	"github.com/horyu/NiconiCompare-sub000/internal/adapters/repository"
	"github.com/horyu/NiconiCompare-sub000/internal/domain/category"
	"github.com/horyu/NiconiCompare-sub000/internal/domain/model"
	"github.com/horyu/NiconiCompare-sub000/internal/domain/settings"
	"github.com/horyu/NiconiCompare-sub000/pkg/logger"
	"github.com/horyu/NiconiCompare-sub000/pkg/metrics"
)

// Service defaults.
const (
	defaultRetryAttempts     = 5
	defaultRetryDelay        = 500 * time.Millisecond
	defaultCleanupInterval   = 24 * time.Hour
	defaultDisabledRetention = 30 * 24 * time.Hour
	defaultMaxRankLimit      = 100
	cleanupTickInterval      = time.Hour
)

// Service implements the rating core operations over an injected store.
type Service struct {
	store repository.Store

	retryQueue  *retry.Queue
	retryWorker *retry.Worker

	// Configuration
	retryAttempts     int
	retryDelay        time.Duration
	cleanupInterval   time.Duration
	disabledRetention time.Duration
	maxRankLimit      int

	now func() time.Time

	// Lifecycle
	mu      sync.Mutex
	started bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithRetryAttempts sets the event persistence retry budget.
func WithRetryAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.retryAttempts = n
		}
	}
}

// WithRetryDelay sets the fixed delay between persistence retries.
func WithRetryDelay(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.retryDelay = d
		}
	}
}

// WithCleanupInterval sets how often the maintenance sweep is due.
func WithCleanupInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.cleanupInterval = d
		}
	}
}

// WithDisabledRetention sets how long disabled events survive sweeps.
func WithDisabledRetention(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.disabledRetention = d
		}
	}
}

// WithMaxRankLimit caps ranking query sizes.
func WithMaxRankLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxRankLimit = n
		}
	}
}

// WithClock injects a clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service over the given snapshot store.
func New(store repository.Store, opts ...Option) *Service {
	s := &Service{
		store:             store,
		retryAttempts:     defaultRetryAttempts,
		retryDelay:        defaultRetryDelay,
		cleanupInterval:   defaultCleanupInterval,
		disabledRetention: defaultDisabledRetention,
		maxRankLimit:      defaultMaxRankLimit,
		now:               time.Now,
		stopCh:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	return s
}

// Start launches the retry worker and the maintenance sweep loop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	s.stopCh = make(chan struct{})
	s.retryQueue = retry.NewQueue()
	s.retryWorker = retry.NewWorker(s.retryQueue, s.store,
		retry.WithAttempts(s.retryAttempts),
		retry.WithDelay(s.retryDelay),
		retry.WithLogger(s.logger.Named("retry")),
		retry.WithExhaustedFunc(func(eventID int64) {
			s.parkFailedWrite(context.Background(), eventID)
		}),
	)

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.retryWorker.Run(ctx)
	}()
	go func() {
		defer s.wg.Done()
		s.cleanupLoop(ctx)
	}()

	s.started = true
	s.logger.Info(ctx, "rating service started",
		logger.Int("retryAttempts", s.retryAttempts),
		logger.Any("cleanupInterval", s.cleanupInterval),
	)
	return nil
}

// Stop shuts down background work. The store is closed by the owner.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}

	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	_ = s.retryQueue.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.retryWorker.Shutdown(shutdownCtx)

	s.started = false
	s.logger.Info(context.Background(), "rating service stopped")
}

// nowMillis returns the current clock reading in ms epoch.
func (s *Service) nowMillis() int64 {
	return s.now().UnixMilli()
}

// cleanupLoop runs the maintenance sweep opportunistically.
func (s *Service) cleanupLoop(ctx context.Context) {
	// One eager pass on start; failures only delay the next attempt.
	if err := s.Cleanup(ctx, false); err != nil {
		s.logger.Warn(ctx, "startup cleanup failed", logger.Error(err))
	}

	ticker := time.NewTicker(cleanupTickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			if err := s.Cleanup(ctx, false); err != nil {
				s.logger.Warn(ctx, "cleanup failed", logger.Error(err))
			}
		}
	}
}

// parkFailedWrite records an exhausted event id in the failed-writes set so
// the user can resolve it manually. Best effort.
func (s *Service) parkFailedWrite(ctx context.Context, eventID int64) {
	snap, err := s.store.Get(ctx, repository.KeyMeta)
	if err != nil {
		s.logger.Error(ctx, "failed to load meta for failed-write bookkeeping",
			logger.Int64("eventID", eventID), logger.Error(err))
		return
	}
	meta := model.Meta{SchemaVersion: model.SchemaVersion}
	if snap.Meta != nil {
		meta = *snap.Meta
	}
	for _, id := range meta.FailedWriteIDs {
		if id == eventID {
			return
		}
	}
	meta.FailedWriteIDs = append(meta.FailedWriteIDs, eventID)
	if err := s.store.Set(ctx, repository.Changes{Meta: &meta}); err != nil {
		s.logger.Error(ctx, "failed to persist failed-write set",
			logger.Int64("eventID", eventID), logger.Error(err))
	}
}

// snapshotState is the fully-loaded, normalized working copy a handler
// computes the next state from.
type snapshotState struct {
	settings   model.Settings
	categories model.Categories
	events     model.EventLog
	ratings    model.Ratings
	session    model.SessionState
	videos     map[string]model.Video
	authors    map[string]model.Author
	meta       model.Meta
}

// load reads the whole snapshot and normalizes externally-sourced entities.
func (s *Service) load(ctx context.Context) (snapshotState, error) {
	var st snapshotState
	snap, err := s.store.Get(ctx, repository.AllKeys()...)
	if err != nil {
		return st, err
	}

	st.settings = settings.Normalize(snap.Settings)
	st.categories = category.Normalize(snap.Categories)
	if snap.Events != nil {
		st.events = *snap.Events
	}
	st.ratings = snap.Ratings
	if st.ratings == nil {
		st.ratings = make(model.Ratings)
	}
	if snap.State != nil {
		st.session = *snap.State
	}
	st.videos = snap.Videos
	if st.videos == nil {
		st.videos = make(map[string]model.Video)
	}
	st.authors = snap.Authors
	if st.authors == nil {
		st.authors = make(map[string]model.Author)
	}
	if snap.Meta != nil {
		st.meta = *snap.Meta
	}
	if st.meta.SchemaVersion == 0 {
		st.meta.SchemaVersion = model.SchemaVersion
	}
	return st, nil
}

// videoExists is the recent-window existence predicate over the loaded
// videos table.
func (st *snapshotState) videoExists(id string) bool {
	_, ok := st.videos[id]
	return ok
}

// updateScaleGauges refreshes the snapshot scale metrics after a commit.
func (st *snapshotState) updateScaleGauges() {
	metrics.UpdateLedgerEvents(len(st.events.Items))
	total := 0
	for _, table := range st.ratings {
		total += len(table)
	}
	metrics.UpdateRatedVideos(total)
	metrics.UpdateCategoryCount(len(st.categories.Items))
}
