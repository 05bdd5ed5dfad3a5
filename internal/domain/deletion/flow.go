// Package deletion implements the confirm-before-destroy state machine used by
// event listings.
//
// A Flow moves Idle -> PendingConfirmation(id) -> Executing(id) -> Idle. Only
// one delete may be in flight: requests that arrive while executing are
// rejected with ErrBusy rather than queued. A successful delete triggers
// exactly one reload of the collection; a failed one triggers none.
package deletion

import (
	"context"
	"fmt"
	"sync"

	"github.com/iieadb/eventboard/pkg/logger"
)

// State is the flow's position in the confirmation cycle.
type State int

const (
	Idle State = iota
	PendingConfirmation
	Executing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case PendingConfirmation:
		return "pending_confirmation"
	case Executing:
		return "executing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Outcome labels a transition reported to observers.
type Outcome string

const (
	OutcomeRequested Outcome = "requested"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeRejected  Outcome = "rejected"
)

// Deleter removes a record by id.
type Deleter interface {
	Delete(ctx context.Context, id int64) error
}

// DeleterFunc adapts a function to Deleter.
type DeleterFunc func(ctx context.Context, id int64) error

// Delete calls fn(ctx, id).
func (fn DeleterFunc) Delete(ctx context.Context, id int64) error { return fn(ctx, id) }

// Reloader refreshes the record collection after a successful delete.
type Reloader interface {
	Reload(ctx context.Context) error
}

// ReloaderFunc adapts a function to Reloader.
type ReloaderFunc func(ctx context.Context) error

// Reload calls fn(ctx).
func (fn ReloaderFunc) Reload(ctx context.Context) error { return fn(ctx) }

// Status is a point-in-time copy of the flow state.
type Status struct {
	State      State
	Target     int64
	PromptOpen bool
	LastError  error
}

// Flow coordinates request, confirm and execute for a single pending target.
type Flow struct {
	mu       sync.Mutex
	deleter  Deleter
	reloader Reloader

	state   State
	target  int64
	lastErr error

	logger    logger.Logger
	observers []func(Outcome)
}

// NewFlow creates an idle flow. A nil reloader disables the post-delete reload.
func NewFlow(deleter Deleter, reloader Reloader, opts ...Option) *Flow {
	f := &Flow{
		deleter:  deleter,
		reloader: reloader,
		state:    Idle,
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// RequestDelete opens the confirmation prompt for id, replacing any pending
// target. It fails with ErrBusy while a delete is executing.
func (f *Flow) RequestDelete(id int64) error {
	f.mu.Lock()
	if f.state == Executing {
		busy := f.target
		f.mu.Unlock()
		f.emit(OutcomeRejected)
		return fmt.Errorf("%w: event %d", ErrBusy, busy)
	}
	f.state = PendingConfirmation
	f.target = id
	f.lastErr = nil
	f.mu.Unlock()

	f.emit(OutcomeRequested)
	return nil
}

// Cancel closes the prompt and discards the pending target. It reports
// whether there was anything to cancel.
func (f *Flow) Cancel() bool {
	f.mu.Lock()
	if f.state != PendingConfirmation {
		f.mu.Unlock()
		return false
	}
	f.state = Idle
	f.target = 0
	f.mu.Unlock()

	f.emit(OutcomeCancelled)
	return true
}

// Confirm executes the pending delete. The deleter runs without the flow lock
// held; concurrent Confirm or RequestDelete calls observe ErrBusy meanwhile.
//
// On success the flow is Idle and the reloader has been called once; a reload
// error is returned wrapped in ErrReloadFailed. On failure the flow is Idle,
// nothing is reloaded and the returned error wraps ErrDeleteFailed.
func (f *Flow) Confirm(ctx context.Context) error {
	f.mu.Lock()
	switch f.state {
	case Idle:
		f.mu.Unlock()
		return ErrNoPendingTarget
	case Executing:
		busy := f.target
		f.mu.Unlock()
		f.emit(OutcomeRejected)
		return fmt.Errorf("%w: event %d", ErrBusy, busy)
	}
	id := f.target
	f.state = Executing
	f.mu.Unlock()

	err := f.execute(ctx, id)

	f.mu.Lock()
	f.state = Idle
	f.target = 0
	if err != nil {
		err = fmt.Errorf("%w: event %d: %w", ErrDeleteFailed, id, err)
		f.lastErr = err
		f.mu.Unlock()

		f.logger.Error(ctx, "delete failed", logger.Int64("event_id", id), logger.Error(err))
		f.emit(OutcomeFailed)
		return err
	}
	f.lastErr = nil
	f.mu.Unlock()

	f.logger.Info(ctx, "event deleted", logger.Int64("event_id", id))
	f.emit(OutcomeSucceeded)

	if f.reloader == nil {
		return nil
	}
	if rerr := f.reloader.Reload(ctx); rerr != nil {
		rerr = fmt.Errorf("%w: %w", ErrReloadFailed, rerr)
		f.mu.Lock()
		f.lastErr = rerr
		f.mu.Unlock()
		f.logger.Warn(ctx, "reload after delete failed", logger.Int64("event_id", id), logger.Error(rerr))
		return rerr
	}
	return nil
}

// execute runs the deleter, turning a panic into an error so the flow always
// leaves Executing.
func (f *Flow) execute(ctx context.Context, id int64) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("deleter panicked: %v", r)
		}
	}()
	if f.deleter == nil {
		return fmt.Errorf("no deleter configured")
	}
	return f.deleter.Delete(ctx, id)
}

// Status returns a copy of the current state.
func (f *Flow) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Status{
		State:      f.state,
		Target:     f.target,
		PromptOpen: f.state != Idle,
		LastError:  f.lastErr,
	}
}

// State returns the current state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// LastError returns the error of the most recent Confirm, or nil. It is
// cleared by the next RequestDelete or successful Confirm.
func (f *Flow) LastError() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

func (f *Flow) emit(o Outcome) {
	for _, fn := range f.observers {
		fn(o)
	}
}
