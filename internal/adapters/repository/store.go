// Package repository provides event storage backends.
package repository

import (
	"context"
	"fmt"

	"github.com/iieadb/eventboard/internal/domain/model"
)

// Store provides read/write access to events.
type Store interface {
	// List returns every event ordered by id.
	List(ctx context.Context) ([]model.Event, error)

	// Get returns a single event or ErrNotFound.
	Get(ctx context.Context, id int64) (model.Event, error)

	// Create validates n and stores it owned by creator.
	Create(ctx context.Context, creator model.User, n model.NewEvent) (model.Event, error)

	// Delete removes the event when actorID is its creator. It returns
	// ErrNotFound for unknown ids and ErrForbidden for everyone else,
	// whatever the caller's presentation layer decided.
	Delete(ctx context.Context, id int64, actorID int64) error

	// Import upserts events keeping their ids. Used for seeding.
	Import(ctx context.Context, events []model.Event) error

	// Count returns the number of stored events.
	Count(ctx context.Context) (int, error)

	Close() error
}

// Open builds the store selected by driver.
func Open(ctx context.Context, driver string, dsn string, opts ...Option) (Store, error) {
	switch driver {
	case DriverMemory:
		return NewMemoryStore(opts...), nil
	case DriverSQLite:
		return OpenSQLite(ctx, dsn, opts...)
	case DriverPostgres:
		return OpenPostgres(ctx, dsn, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}
