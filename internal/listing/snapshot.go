package listing

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iieadb/eventboard/internal/domain/model"
	"github.com/iieadb/eventboard/pkg/metrics"
)

// Source supplies the record collection.
type Source interface {
	List(ctx context.Context) ([]model.Event, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]model.Event, error)

// List calls fn(ctx).
func (fn SourceFunc) List(ctx context.Context) ([]model.Event, error) { return fn(ctx) }

// Snapshot is an immutable, versioned copy of the collection. Callers must
// not modify Events.
type Snapshot struct {
	Version  uint64
	Events   []model.Event
	LoadedAt time.Time
}

// Find returns the event with the given id.
func (s *Snapshot) Find(id int64) (model.Event, bool) {
	if s == nil {
		return model.Event{}, false
	}
	for _, e := range s.Events {
		if e.ID == id {
			return e, true
		}
	}
	return model.Event{}, false
}

// Len returns the number of events, zero for a nil snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Events)
}

// Holder keeps the current snapshot and swaps it atomically on refresh.
// Readers never block; refreshes are serialized so versions only grow.
type Holder struct {
	refreshMu sync.Mutex
	current   atomic.Pointer[Snapshot]
}

// Current returns the latest snapshot, or nil before the first refresh.
func (h *Holder) Current() *Snapshot {
	return h.current.Load()
}

// Version returns the current snapshot version, zero before the first refresh.
func (h *Holder) Version() uint64 {
	if s := h.current.Load(); s != nil {
		return s.Version
	}
	return 0
}

// Refresh loads src into a new snapshot. On error the previous snapshot
// stays current.
func (h *Holder) Refresh(ctx context.Context, src Source) (*Snapshot, error) {
	h.refreshMu.Lock()
	defer h.refreshMu.Unlock()

	start := time.Now()
	events, err := src.List(ctx)
	if err != nil {
		metrics.RecordSnapshotRefreshError()
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}

	next := &Snapshot{
		Version:  h.Version() + 1,
		Events:   slices.Clip(slices.Clone(events)),
		LoadedAt: time.Now(),
	}
	if next.Events == nil {
		next.Events = []model.Event{}
	}
	h.current.Store(next)
	metrics.RecordSnapshotRefresh(next.Version, len(next.Events), metrics.Since(start))
	return next, nil
}
