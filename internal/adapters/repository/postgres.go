package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iieadb/eventboard/internal/domain/model"
	"github.com/iieadb/eventboard/pkg/logger"
	"github.com/iieadb/eventboard/pkg/metrics"
)

//go:embed schema/postgres.sql
var postgresSchema string

const postgresColumns = `id, name, start_date, end_date, creator_id, creator_username, team_event`

// PostgresStore persists events through a pgx connection pool.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger logger.Logger
}

var _ Store = (*PostgresStore)(nil)

// OpenPostgres connects to dsn, verifies the connection and ensures the schema.
func OpenPostgres(ctx context.Context, dsn string, opts ...Option) (*PostgresStore, error) {
	o := applyOptions(opts)

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	cfg.MaxConns = o.maxConns
	cfg.MinConns = o.minConns
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply postgres schema: %w", err)
	}

	o.logger.Info(ctx, "postgres store connected",
		logger.Int("max_conns", int(o.maxConns)),
		logger.Int("min_conns", int(o.minConns)))
	return &PostgresStore{pool: pool, logger: o.logger}, nil
}

// List implements Store.List.
func (s *PostgresStore) List(ctx context.Context) ([]model.Event, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency(DriverPostgres, "list", metrics.Since(start)) }()

	rows, err := s.pool.Query(ctx, `SELECT `+postgresColumns+` FROM events ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	out := make([]model.Event, 0)
	for rows.Next() {
		e, err := scanPostgresEvent(rows)
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
func (s *PostgresStore) Get(ctx context.Context, id int64) (model.Event, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency(DriverPostgres, "get", metrics.Since(start)) }()

	e, err := scanPostgresEvent(s.pool.QueryRow(ctx, `SELECT `+postgresColumns+` FROM events WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Event{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return e, err
}

// Create implements Store.Create.
func (s *PostgresStore) Create(ctx context.Context, creator model.User, n model.NewEvent) (model.Event, error) {
	if err := n.Validate(); err != nil {
		return model.Event{}, err
	}
	start := time.Now()
	defer func() { metrics.RecordStoreLatency(DriverPostgres, "create", metrics.Since(start)) }()

	e := n.Build(0, creator)
	err := s.pool.QueryRow(ctx,
		`INSERT INTO events (name, start_date, end_date, creator_id, creator_username, team_event)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		e.Name, e.StartDate.Ptr(), e.EndDate.Ptr(), creator.ID, creator.Username, e.TeamEvent).Scan(&e.ID)
	if err != nil {
		return model.Event{}, fmt.Errorf("create event: %w", err)
	}
	return e, nil
}

// Delete implements Store.Delete.
func (s *PostgresStore) Delete(ctx context.Context, id int64, actorID int64) error {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency(DriverPostgres, "delete", metrics.Since(start)) }()

	tag, err := s.pool.Exec(ctx, `DELETE FROM events WHERE id = $1 AND creator_id = $2`, id, actorID)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	s.logger.Warn(ctx, "delete refused", logger.Int64("event_id", id), logger.Int64("actor_id", actorID))
	return fmt.Errorf("%w: %d", ErrForbidden, id)
}

// Import implements Store.Import.
func (s *PostgresStore) Import(ctx context.Context, events []model.Event) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, e := range events {
		if e.ID <= 0 {
			return fmt.Errorf("%w: import needs a positive id, got %d", model.ErrInvalidEvent, e.ID)
		}
		var creatorID *int64
		var creatorName *string
		if e.Creator != nil {
			creatorID, creatorName = &e.Creator.ID, &e.Creator.Username
		}
		batch.Queue(
			`INSERT INTO events (`+postgresColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (id) DO UPDATE SET
			   name = EXCLUDED.name,
			   start_date = EXCLUDED.start_date,
			   end_date = EXCLUDED.end_date,
			   creator_id = EXCLUDED.creator_id,
			   creator_username = EXCLUDED.creator_username,
			   team_event = EXCLUDED.team_event`,
			e.ID, e.Name, e.StartDate.Ptr(), e.EndDate.Ptr(), creatorID, creatorName, e.TeamEvent)
	}
	batch.Queue(`SELECT setval(pg_get_serial_sequence('events', 'id'), GREATEST((SELECT MAX(id) FROM events), 1))`)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("import events: %w", err)
	}
	return tx.Commit(ctx)
}

// Count implements Store.Count.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// Close implements Store.Close.
func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func scanPostgresEvent(r pgx.Row) (model.Event, error) {
	var (
		e           model.Event
		start, end  *time.Time
		creatorID   *int64
		creatorName *string
	)
	if err := r.Scan(&e.ID, &e.Name, &start, &end, &creatorID, &creatorName, &e.TeamEvent); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Event{}, err
		}
		return model.Event{}, fmt.Errorf("scan event: %w", err)
	}
	e.StartDate = model.DateFromPtr(start)
	e.EndDate = model.DateFromPtr(end)
	if creatorID != nil {
		e.Creator = &model.User{ID: *creatorID}
		if creatorName != nil {
			e.Creator.Username = *creatorName
		}
	}
	return e, nil
}
