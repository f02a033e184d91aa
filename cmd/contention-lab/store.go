package main

import (
	"context"

	"github.com/AntonStoeckl/contention-lab/config"
	"github.com/AntonStoeckl/contention-lab/contention"
	"github.com/AntonStoeckl/contention-lab/contention/postgresengine"
)

// openPool creates the configured ResourcePool. The returned close function releases the
// database connections, if any.
func openPool(ctx context.Context, cfg Config, logger contention.Logger) (contention.ResourcePool, func(), error) {
	if cfg.Store == storeMemory {
		return contention.NewMemoryPool(), func() {}, nil
	}

	dsn := config.PostgresDSN(cfg.DSN)
	options := []postgresengine.Option{
		postgresengine.WithPoolName(cfg.PoolName),
		postgresengine.WithLogger(logger),
	}

	var (
		pool    *postgresengine.Pool
		closeDB func()
		err     error
	)

	switch cfg.Store {
	case storePGX:
		pgxPool, connErr := config.NewPostgresPGXPool(ctx, dsn)
		if connErr != nil {
			return nil, nil, connErr
		}

		closeDB = pgxPool.Close
		pool, err = postgresengine.NewPoolFromPGXPool(pgxPool, options...)

	case storeSQL:
		db, connErr := config.NewPostgresSQLDB(ctx, dsn)
		if connErr != nil {
			return nil, nil, connErr
		}

		closeDB = func() { _ = db.Close() }
		pool, err = postgresengine.NewPoolFromSQLDB(db, options...)

	case storeSQLX:
		db, connErr := config.NewPostgresSQLX(ctx, dsn)
		if connErr != nil {
			return nil, nil, connErr
		}

		closeDB = func() { _ = db.Close() }
		pool, err = postgresengine.NewPoolFromSQLX(db, options...)

	default:
		return nil, nil, ErrInvalidStore
	}

	if err != nil {
		closeDB()
		return nil, nil, err
	}

	if err := pool.EnsureSchema(ctx); err != nil {
		closeDB()
		return nil, nil, err
	}

	return pool, closeDB, nil
}
