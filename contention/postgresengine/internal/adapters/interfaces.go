package adapters

import "context"

// Queryer executes plain SQL statements.
type Queryer interface {
	Query(ctx context.Context, query string) (DBRows, error)
	Exec(ctx context.Context, query string) (DBResult, error)
}

// DBAdapter defines the interface for database operations needed by the resource pool.
//
// Begin waits for a connection under ctx. The returned transaction is not bound to ctx and only ends
// with Commit or Rollback.
type DBAdapter interface {
	Queryer
	Begin(ctx context.Context) (DBTx, error)
}

// DBTx is an open transaction. Exactly one of Commit or Rollback must be called.
type DBTx interface {
	Queryer
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// DBRows defines the interface for query result rows.
type DBRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// DBResult defines the interface for execution results.
type DBResult interface {
	RowsAffected() (int64, error)
}
