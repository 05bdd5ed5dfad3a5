package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/iieadb/eventboard/internal/domain/model"
	"github.com/iieadb/eventboard/pkg/logger"
	"github.com/iieadb/eventboard/pkg/metrics"
)

//go:embed schema/sqlite.sql
var sqliteSchema string

const sqliteColumns = `id, name, start_date, end_date, creator_id, creator_username, team_event`

// SQLiteStore persists events in a single SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	logger logger.Logger
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite creates or opens the database at path and applies the schema.
// Use ":memory:" for a throwaway database.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	o := applyOptions(opts)

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}

	// one writer at a time; also keeps ":memory:" on a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}

	o.logger.Info(ctx, "sqlite store opened", logger.String("path", path))
	return &SQLiteStore{db: db, logger: o.logger}, nil
}

// List implements Store.List.
func (s *SQLiteStore) List(ctx context.Context) ([]model.Event, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency(DriverSQLite, "list", metrics.Since(start)) }()

	rows, err := s.db.QueryContext(ctx, `SELECT `+sqliteColumns+` FROM events ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	out := make([]model.Event, 0)
	for rows.Next() {
		e, err := scanSQLiteEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

// Get implements Store.Get.
func (s *SQLiteStore) Get(ctx context.Context, id int64) (model.Event, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency(DriverSQLite, "get", metrics.Since(start)) }()

	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteColumns+` FROM events WHERE id = ?`, id)
	e, err := scanSQLiteEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Event{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return e, err
}

// Create implements Store.Create.
func (s *SQLiteStore) Create(ctx context.Context, creator model.User, n model.NewEvent) (model.Event, error) {
	if err := n.Validate(); err != nil {
		return model.Event{}, err
	}
	start := time.Now()
	defer func() { metrics.RecordStoreLatency(DriverSQLite, "create", metrics.Since(start)) }()

	e := n.Build(0, creator)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO events (name, start_date, end_date, creator_id, creator_username, team_event)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.Name, sqliteDate(e.StartDate), sqliteDate(e.EndDate), creator.ID, creator.Username, e.TeamEvent)
	if err != nil {
		return model.Event{}, fmt.Errorf("create event: %w", err)
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return model.Event{}, fmt.Errorf("create event: %w", err)
	}
	return e, nil
}

// Delete implements Store.Delete.
func (s *SQLiteStore) Delete(ctx context.Context, id int64, actorID int64) error {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency(DriverSQLite, "delete", metrics.Since(start)) }()

	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = ? AND creator_id = ?`, id, actorID)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM events WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	s.logger.Warn(ctx, "delete refused", logger.Int64("event_id", id), logger.Int64("actor_id", actorID))
	return fmt.Errorf("%w: %d", ErrForbidden, id)
}

// Import implements Store.Import.
func (s *SQLiteStore) Import(ctx context.Context, events []model.Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO events (`+sqliteColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   start_date = excluded.start_date,
		   end_date = excluded.end_date,
		   creator_id = excluded.creator_id,
		   creator_username = excluded.creator_username,
		   team_event = excluded.team_event`)
	if err != nil {
		return fmt.Errorf("prepare import: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		if e.ID <= 0 {
			return fmt.Errorf("%w: import needs a positive id, got %d", model.ErrInvalidEvent, e.ID)
		}
		creatorID, creatorName := creatorColumns(e)
		if _, err := stmt.ExecContext(ctx, e.ID, e.Name, sqliteDate(e.StartDate), sqliteDate(e.EndDate),
			creatorID, creatorName, e.TeamEvent); err != nil {
			return fmt.Errorf("import event %d: %w", e.ID, err)
		}
	}
	return tx.Commit()
}

// Count implements Store.Count.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// Close implements Store.Close.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteEvent(r rowScanner) (model.Event, error) {
	var (
		e           model.Event
		start, end  sql.NullString
		creatorID   sql.NullInt64
		creatorName sql.NullString
	)
	if err := r.Scan(&e.ID, &e.Name, &start, &end, &creatorID, &creatorName, &e.TeamEvent); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Event{}, err
		}
		return model.Event{}, fmt.Errorf("scan event: %w", err)
	}

	var err error
	if e.StartDate, err = model.ParseDate(start.String); err != nil {
		return model.Event{}, fmt.Errorf("event %d start_date: %w", e.ID, err)
	}
	if e.EndDate, err = model.ParseDate(end.String); err != nil {
		return model.Event{}, fmt.Errorf("event %d end_date: %w", e.ID, err)
	}
	if creatorID.Valid {
		e.Creator = &model.User{ID: creatorID.Int64, Username: creatorName.String}
	}
	return e, nil
}

func sqliteDate(d model.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.UTC().Format(time.RFC3339Nano)
}

func creatorColumns(e model.Event) (any, any) {
	if e.Creator == nil {
		return nil, nil
	}
	return e.Creator.ID, e.Creator.Username
}
