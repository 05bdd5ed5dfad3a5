// Package listing composes sorting, the delete flow and the ownership gate
// into a table view over a versioned snapshot of events.
package listing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/iieadb/eventboard/internal/domain/deletion"
	"github.com/iieadb/eventboard/internal/domain/model"
	"github.com/iieadb/eventboard/internal/domain/session"
	"github.com/iieadb/eventboard/internal/domain/sorting"
	"github.com/iieadb/eventboard/pkg/logger"
	"github.com/iieadb/eventboard/pkg/metrics"
)

// Navigator changes the current view.
type Navigator interface {
	Navigate(path string, payload any)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string, payload any)

// Navigate calls fn(path, payload).
func (fn NavigatorFunc) Navigate(path string, payload any) { fn(path, payload) }

// NavigationState is the payload handed to the detail view.
type NavigationState struct {
	Event model.Event `json:"event"`
}

// Prompt is what a confirmation dialog needs to render.
type Prompt struct {
	Open   bool
	Target int64
	Event  *model.Event
	Err    error
}

// View is a sortable event table with a guarded delete action.
type View struct {
	mu  sync.Mutex
	key sorting.Key

	source   Source
	sessions session.Provider
	nav      Navigator
	holder   *Holder
	flow     *deletion.Flow
	logger   logger.Logger
}

// NewView wires a view. deleter receives confirmed deletes; the collection is
// reloaded from source after each success.
func NewView(source Source, deleter deletion.Deleter, sessions session.Provider, nav Navigator, opts ...Option) *View {
	v := &View{
		key:      sorting.DefaultKey(),
		source:   source,
		sessions: sessions,
		nav:      nav,
		holder:   &Holder{},
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.sessions == nil {
		v.sessions = session.Static{}
	}
	if v.nav == nil {
		v.nav = NavigatorFunc(func(string, any) {})
	}
	v.flow = deletion.NewFlow(deleter, v,
		deletion.WithLogger(v.logger.Named("deletion")),
		deletion.WithObserver(func(o deletion.Outcome) { metrics.RecordDelete(string(o)) }),
	)
	return v
}

// Activate loads the collection for the first time.
func (v *View) Activate(ctx context.Context) error {
	return v.Reload(ctx)
}

// Reload replaces the snapshot with a fresh copy from the source.
func (v *View) Reload(ctx context.Context) error {
	snap, err := v.holder.Refresh(ctx, v.source)
	if err != nil {
		v.logger.Error(ctx, "failed to load events", logger.Error(err))
		return err
	}
	v.logger.Debug(ctx, "events loaded",
		logger.Uint64("version", snap.Version),
		logger.Int("count", len(snap.Events)))
	return nil
}

// Snapshot returns the current snapshot, nil before activation.
func (v *View) Snapshot() *Snapshot {
	return v.holder.Current()
}

// SortKey returns the active ordering.
func (v *View) SortKey() sorting.Key {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.key
}

// RequestSort applies a header click on field and returns the new key.
func (v *View) RequestSort(field sorting.Field) (sorting.Key, error) {
	if !field.Valid() {
		metrics.RecordSortError()
		return v.SortKey(), fmt.Errorf("%w: %q", sorting.ErrInvalidField, field)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.key = v.key.Toggle(field)
	return v.key, nil
}

// Headers returns the sortable column headers for the active key.
func (v *View) Headers() []Header {
	return HeadersFor(v.SortKey())
}

// Rows returns the snapshot ordered by the active key, with the delete
// control gated on the current identity.
func (v *View) Rows(ctx context.Context) ([]Row, error) {
	snap := v.holder.Current()
	if snap == nil {
		return nil, ErrNotActivated
	}
	key := v.SortKey()

	start := time.Now()
	sorted, err := sorting.Sort(snap.Events, key)
	if err != nil {
		metrics.RecordSortError()
		return nil, err
	}
	metrics.RecordSort(string(key.Field), string(key.Direction), metrics.Since(start))

	return RowsFor(sorted, v.sessions.Current(ctx)), nil
}

// TargetKind says which part of a row was activated.
type TargetKind int

const (
	TargetRow TargetKind = iota
	TargetDeleteControl
)

// Target identifies a click inside the table.
type Target struct {
	Kind    TargetKind
	EventID int64
}

// Activation is a click travelling from the innermost element outwards.
// A handler that consumes it stops later handlers from running.
type Activation struct {
	Target   Target
	consumed bool
}

// StopPropagation marks the activation as consumed.
func (a *Activation) StopPropagation() { a.consumed = true }

// Consumed reports whether a handler stopped propagation.
func (a *Activation) Consumed() bool { return a.consumed }

type handler func(ctx context.Context, a *Activation) error

// Click dispatches an activation to the delete control handler and then to
// the row handler, unless the first one consumed it.
func (v *View) Click(ctx context.Context, t Target) error {
	a := &Activation{Target: t}
	for _, h := range []handler{v.handleDeleteControl, v.handleRow} {
		if a.Consumed() {
			break
		}
		if err := h(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

func (v *View) handleDeleteControl(ctx context.Context, a *Activation) error {
	if a.Target.Kind != TargetDeleteControl {
		return nil
	}
	a.StopPropagation()
	return v.ActivateDelete(ctx, a.Target.EventID)
}

func (v *View) handleRow(ctx context.Context, a *Activation) error {
	e, ok := v.holder.Current().Find(a.Target.EventID)
	if !ok {
		return fmt.Errorf("%w: %d", ErrNotFound, a.Target.EventID)
	}
	v.nav.Navigate(EventPath(e.ID), NavigationState{Event: e})
	metrics.RecordNavigation()
	return nil
}

// ActivateDelete opens the confirmation prompt for id. Rows the current
// identity does not own have no control and fail with ErrNotDeletable.
func (v *View) ActivateDelete(ctx context.Context, id int64) error {
	snap := v.holder.Current()
	if snap == nil {
		return ErrNotActivated
	}
	e, ok := snap.Find(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if !session.CanDelete(v.sessions.Current(ctx), e) {
		return fmt.Errorf("%w: %d", ErrNotDeletable, id)
	}
	return v.flow.RequestDelete(id)
}

// Prompt returns the confirmation dialog state.
func (v *View) Prompt() Prompt {
	st := v.flow.Status()
	p := Prompt{Open: st.PromptOpen, Target: st.Target, Err: st.LastError}
	if st.PromptOpen {
		if e, ok := v.holder.Current().Find(st.Target); ok {
			p.Event = &e
		}
	}
	return p
}

// ConfirmDelete executes the pending delete and reloads on success.
func (v *View) ConfirmDelete(ctx context.Context) error {
	return v.flow.Confirm(ctx)
}

// CancelDelete closes the prompt without deleting.
func (v *View) CancelDelete() {
	v.flow.Cancel()
}

// DeleteState exposes the flow state.
func (v *View) DeleteState() deletion.State {
	return v.flow.State()
}
