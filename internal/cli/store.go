package cli

import (
	"context"
	"fmt"

	"github.com/iieadb/eventboard/internal/adapters/repository"
	"github.com/iieadb/eventboard/internal/config"
	"github.com/iieadb/eventboard/pkg/logger"
)

// dsnFor picks the connection string of the configured driver.
func dsnFor(cfg *config.Config) string {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		return cfg.SQLitePath
	case config.DriverPostgres:
		return cfg.PostgresDSN
	}
	return ""
}

// openStore returns the injected store or opens and seeds the configured one.
// The returned release func closes only stores opened here.
func openStore(ctx context.Context, opts *RootOptions) (repository.Store, func(), error) {
	if opts.Store != nil {
		return opts.Store, func() {}, nil
	}
	cfg := opts.Config
	store, err := repository.Open(ctx, cfg.StoreDriver, dsnFor(cfg),
		repository.WithLogger(logger.Get().Named("repository")))
	if err != nil {
		return nil, nil, err
	}
	release := func() {
		if err := store.Close(); err != nil {
			logger.Get().Warn(ctx, "failed to close store", logger.Error(err))
		}
	}
	if cfg.SeedFile != "" {
		if _, err := repository.LoadSeed(ctx, store, cfg.SeedFile); err != nil {
			release()
			return nil, nil, fmt.Errorf("seed store: %w", err)
		}
	}
	return store, release, nil
}
