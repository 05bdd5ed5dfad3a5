// Package service provides the core business service that implements
// the dependencies required by the HTTP API and the CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/iieadb/eventboard/internal/adapters/repository"
	"github.com/iieadb/eventboard/internal/domain/dedupe"
	"github.com/iieadb/eventboard/internal/domain/model"
	"github.com/iieadb/eventboard/internal/domain/session"
	"github.com/iieadb/eventboard/internal/domain/sorting"
	"github.com/iieadb/eventboard/internal/domain/types"
	"github.com/iieadb/eventboard/internal/listing"
	"github.com/iieadb/eventboard/pkg/logger"
	"github.com/iieadb/eventboard/pkg/metrics"
)

// Service owns the event store and the listing snapshot served to readers.
type Service struct {
	mu sync.RWMutex

	// Core components
	store    repository.Store
	ownStore bool
	holder   *listing.Holder
	deduper  dedupe.Deduper
	cron     *cron.Cron

	// Configuration
	driver          string
	dsn             string
	seedFile        string
	refreshSchedule string
	dedupeSize      int

	// State
	started   bool
	startedAt time.Time

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore injects an already opened store. The service will not close it.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithDriver selects the store to open on Start.
func WithDriver(driver, dsn string) Option {
	return func(s *Service) {
		if driver != "" {
			s.driver = driver
			s.dsn = dsn
		}
	}
}

// WithSeedFile imports a YAML seed file on Start.
func WithSeedFile(path string) Option {
	return func(s *Service) {
		s.seedFile = path
	}
}

// WithRefreshSchedule sets the cron schedule for periodic snapshot refreshes.
// An empty schedule disables the schedule.
func WithRefreshSchedule(schedule string) Option {
	return func(s *Service) {
		s.refreshSchedule = schedule
	}
}

// WithDedupeSize sets how many idempotency keys are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
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

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		holder:          &listing.Holder{},
		driver:          repository.DriverMemory,
		refreshSchedule: "@every 30s",
		dedupeSize:      10_000,
		logger:          nil, // resolved on Start
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the store, seeds it, loads the first snapshot and schedules
// periodic refreshes.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting event service...", logger.String("driver", s.driver))

	if s.store == nil {
		store, err := repository.Open(ctx, s.driver, s.dsn, repository.WithLogger(s.logger.Named("repository")))
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		s.store = store
		s.ownStore = true
	}

	if s.seedFile != "" {
		n, err := repository.LoadSeed(ctx, s.store, s.seedFile)
		if err != nil {
			s.closeStoreLocked()
			return fmt.Errorf("seed store: %w", err)
		}
		s.logger.Info(ctx, "store seeded", logger.String("file", s.seedFile), logger.Int("events", n))
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))

	if _, err := s.refresh(ctx); err != nil {
		s.closeStoreLocked()
		return err
	}

	if s.refreshSchedule != "" {
		s.cron = cron.New()
		if _, err := s.cron.AddFunc(s.refreshSchedule, s.scheduledRefresh); err != nil {
			s.closeStoreLocked()
			return fmt.Errorf("%w: refresh schedule %q: %w", ErrInvalidSchedule, s.refreshSchedule, err)
		}
		s.cron.Start()
	}

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "event service started",
		logger.String("refresh", s.refreshSchedule),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Uint64("snapshot", s.holder.Version()),
	)
	return nil
}

// Stop halts the refresh schedule and closes the store if the service opened it.
func (s *Service) Stop() {
	// scheduled refreshes take the read lock, so wait for them unlocked
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.logger.Info(context.Background(), "stopping event service...")
	s.closeStoreLocked()

	s.started = false
	s.logger.Info(context.Background(), "event service stopped")
}

func (s *Service) closeStoreLocked() {
	if s.store != nil && s.ownStore {
		if err := s.store.Close(); err != nil {
			s.logger.Warn(context.Background(), "failed to close store", logger.Error(err))
		}
		s.store = nil
		s.ownStore = false
	}
}

func (s *Service) scheduledRefresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := s.Refresh(ctx); err != nil {
		s.logger.Warn(ctx, "scheduled refresh failed", logger.Error(err))
	}
}

// Refresh reloads the snapshot from the store.
func (s *Service) Refresh(ctx context.Context) (*listing.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.store == nil {
		return nil, ErrNotStarted
	}
	return s.refresh(ctx)
}

// refresh requires s.mu to be held.
func (s *Service) refresh(ctx context.Context) (*listing.Snapshot, error) {
	snap, err := s.holder.Refresh(ctx, s.store)
	if err != nil {
		metrics.RecordError("service", "refresh_failed")
		return nil, err
	}
	s.logger.Debug(ctx, "snapshot refreshed",
		logger.Uint64("version", snap.Version),
		logger.Int("events", snap.Len()))
	return snap, nil
}

// Snapshot returns the current snapshot.
func (s *Service) Snapshot() *listing.Snapshot {
	return s.holder.Current()
}

// List returns the events of the current snapshot in store order.
func (s *Service) List(ctx context.Context) ([]model.Event, error) {
	snap := s.holder.Current()
	if snap == nil {
		return nil, ErrNotStarted
	}
	return snap.Events, nil
}

// Listing sorts the current snapshot by key and renders it for who.
func (s *Service) Listing(ctx context.Context, key sorting.Key, who *session.Identity) (types.Listing, error) {
	snap := s.holder.Current()
	if snap == nil {
		return types.Listing{}, ErrNotStarted
	}

	start := time.Now()
	sorted, err := sorting.Sort(snap.Events, key)
	if err != nil {
		metrics.RecordSortError()
		return types.Listing{}, err
	}
	metrics.RecordSort(string(key.Field), string(key.Direction), metrics.Since(start))

	return BuildListing(snap.Version, key, sorted, who), nil
}

// BuildListing renders already sorted events for who.
func BuildListing(version uint64, key sorting.Key, sorted []model.Event, who *session.Identity) types.Listing {
	headers := listing.HeadersFor(key)
	columns := make([]types.Column, len(headers))
	for i, h := range headers {
		columns[i] = types.Column{Label: h.Label, Field: string(h.Field), Active: h.Active, Direction: string(h.Direction)}
	}

	rows := listing.RowsFor(sorted, who)
	out := make([]types.EventRow, len(rows))
	for i, r := range rows {
		out[i] = types.NewEventRow(r.Event, types.Display{
			StartDate: r.StartDate,
			EndDate:   r.EndDate,
			Creator:   r.Creator,
			TeamEvent: r.Team,
		}, r.Deletable)
	}

	return types.Listing{
		Version: version,
		Sort:    string(key.Field),
		Order:   string(key.Direction),
		Columns: columns,
		Events:  out,
		Count:   len(out),
	}
}

// Get returns one event, preferring the snapshot and falling back to the store.
func (s *Service) Get(ctx context.Context, id int64) (model.Event, error) {
	if e, ok := s.holder.Current().Find(id); ok {
		return e, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.store == nil {
		return model.Event{}, ErrNotStarted
	}
	return s.store.Get(ctx, id)
}

// Create stores n owned by who. A non-empty idempotency key makes repeated
// submissions from the same user return the first event with duplicate set.
func (s *Service) Create(ctx context.Context, who session.Identity, idempotencyKey string, n model.NewEvent) (model.Event, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.store == nil {
		return model.Event{}, false, ErrNotStarted
	}

	key := ""
	if idempotencyKey != "" {
		key = strconv.FormatInt(who.ID, 10) + ":" + idempotencyKey
		switch res := s.deduper.SeenAndRecord(ctx, key); res.Status {
		case dedupe.StatusDone:
			metrics.RecordDuplicateCreate()
			e, err := s.store.Get(ctx, res.EventID)
			if err != nil {
				return model.Event{}, true, err
			}
			return e, true, nil
		case dedupe.StatusPending:
			metrics.RecordDuplicateCreate()
			return model.Event{}, true, ErrCreateInProgress
		}
	}

	e, err := s.store.Create(ctx, who.User(), n)
	if err != nil {
		if key != "" {
			s.deduper.Unrecord(ctx, key)
		}
		if !errors.Is(err, model.ErrInvalidEvent) {
			metrics.RecordError("service", "create_failed")
		}
		return model.Event{}, false, err
	}
	if key != "" {
		s.deduper.Complete(ctx, key, e.ID)
	}
	metrics.RecordEventCreated()
	s.logger.Info(ctx, "event created", logger.Int64("event_id", e.ID), logger.Int64("creator_id", who.ID))

	if _, err := s.refresh(ctx); err != nil {
		s.logger.Warn(ctx, "refresh after create failed", logger.Error(err))
	}
	return e, false, nil
}

// Delete removes id on behalf of who. The store re-checks ownership.
func (s *Service) Delete(ctx context.Context, who session.Identity, id int64) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.store == nil {
		return ErrNotStarted
	}

	if err := s.store.Delete(ctx, id, who.ID); err != nil {
		outcome := metrics.DeleteFailed
		if errors.Is(err, repository.ErrForbidden) {
			outcome = metrics.DeleteRejected
		}
		metrics.RecordDelete(outcome)
		return err
	}
	metrics.RecordDelete(metrics.DeleteSucceeded)
	s.logger.Info(ctx, "event deleted", logger.Int64("event_id", id), logger.Int64("actor_id", who.ID))

	if _, err := s.refresh(ctx); err != nil {
		s.logger.Warn(ctx, "refresh after delete failed", logger.Error(err))
	}
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":         s.started,
		"driver":          s.driver,
		"refresh":         s.refreshSchedule,
		"dedupeSize":      s.dedupeSize,
		"snapshot":        s.holder.Version(),
		"events":          s.holder.Current().Len(),
		"goroutines":      runtime.NumGoroutine(),
		"idempotencyKeys": int64(0),
		"uptimeSeconds":   int64(0),
	}
	if s.deduper != nil {
		stats["idempotencyKeys"] = s.deduper.Size()
	}
	if s.started {
		stats["uptimeSeconds"] = int64(time.Since(s.startedAt).Seconds())
		if snap := s.holder.Current(); snap != nil {
			stats["snapshotLoadedAt"] = snap.LoadedAt.UTC().Format(time.RFC3339)
		}
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	metrics.UpdateSystem(mem.Alloc, runtime.NumGoroutine())

	return stats
}
