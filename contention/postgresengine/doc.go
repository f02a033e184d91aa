// Package postgresengine provides a PostgreSQL implementation of contention.ResourcePool.
//
// The pool is a single row in a table (default "resource_pools"):
//
//	name text primary key, available_count bigint, version bigint
//
// Each mutation primitive is a single statement (RawDecrement, CompareAndDecrement) or a
// transaction holding a row lock (Lock), so the semantics match contention.MemoryPool:
//   - RawDecrement is an unchecked UPDATE ... RETURNING; the database serializes it per row,
//     but it never re-checks the count
//   - Lock begins a transaction and SELECTs the row FOR UPDATE; the lock lives until Unlock
//     commits or rolls back
//   - CompareAndDecrement is an UPDATE guarded by version and count; zero affected rows means
//     the caller lost the race
//
// Supported connection types are pgx.Pool, sql.DB (with lib/pq) and sqlx.DB:
//
//	pool, err := postgresengine.NewPoolFromPGXPool(pgxPool, postgresengine.WithPoolName("coupons"))
//	if err != nil {
//		// handle error
//	}
//
//	if err := pool.EnsureSchema(ctx); err != nil {
//		// handle error
//	}
//
//	coordinator, err := contention.NewCoordinator(pool, eventLog)
package postgresengine
