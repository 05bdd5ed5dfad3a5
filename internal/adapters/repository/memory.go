package repository

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/iieadb/eventboard/internal/domain/model"
	"github.com/iieadb/eventboard/pkg/logger"
	"github.com/iieadb/eventboard/pkg/metrics"
)

// MemoryStore keeps events in a map guarded by a RWMutex.
type MemoryStore struct {
	mu     sync.RWMutex
	byID   map[int64]model.Event
	nextID int64
	logger logger.Logger
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := applyOptions(opts)
	return &MemoryStore{
		byID:   make(map[int64]model.Event),
		nextID: 1,
		logger: o.logger,
	}
}

// List implements Store.List.
func (s *MemoryStore) List(ctx context.Context) ([]model.Event, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency(DriverMemory, "list", metrics.Since(start)) }()

	s.mu.RLock()
	out := make([]model.Event, 0, len(s.byID))
	for _, e := range s.byID {
		out = append(out, cloneEvent(e))
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b model.Event) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// Get implements Store.Get.
func (s *MemoryStore) Get(ctx context.Context, id int64) (model.Event, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency(DriverMemory, "get", metrics.Since(start)) }()

	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byID[id]
	if !ok {
		return model.Event{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return cloneEvent(e), nil
}

// Create implements Store.Create.
func (s *MemoryStore) Create(ctx context.Context, creator model.User, n model.NewEvent) (model.Event, error) {
	if err := n.Validate(); err != nil {
		return model.Event{}, err
	}
	start := time.Now()
	defer func() { metrics.RecordStoreLatency(DriverMemory, "create", metrics.Since(start)) }()

	s.mu.Lock()
	defer s.mu.Unlock()
	e := n.Build(s.nextID, creator)
	s.byID[e.ID] = e
	s.nextID++
	return cloneEvent(e), nil
}

// Delete implements Store.Delete.
func (s *MemoryStore) Delete(ctx context.Context, id int64, actorID int64) error {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency(DriverMemory, "delete", metrics.Since(start)) }()

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if owner, ok := e.CreatorID(); !ok || owner != actorID {
		s.logger.Warn(ctx, "delete refused", logger.Int64("event_id", id), logger.Int64("actor_id", actorID))
		return fmt.Errorf("%w: %d", ErrForbidden, id)
	}
	delete(s.byID, id)
	return nil
}

// Import implements Store.Import.
func (s *MemoryStore) Import(ctx context.Context, events []model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range events {
		if e.ID <= 0 {
			return fmt.Errorf("%w: import needs a positive id, got %d", model.ErrInvalidEvent, e.ID)
		}
		s.byID[e.ID] = cloneEvent(e)
		if e.ID >= s.nextID {
			s.nextID = e.ID + 1
		}
	}
	return nil
}

// Count implements Store.Count.
func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID), nil
}

// Close implements Store.Close.
func (s *MemoryStore) Close() error { return nil }

func cloneEvent(e model.Event) model.Event {
	if e.Creator != nil {
		c := *e.Creator
		e.Creator = &c
	}
	return e
}
