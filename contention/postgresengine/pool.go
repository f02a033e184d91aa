package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // driver import
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/AntonStoeckl/contention-lab/contention"
	"github.com/AntonStoeckl/contention-lab/contention/postgresengine/internal/adapters"
)

const (
	defaultTableName = "resource_pools"
	defaultPoolName  = "default"
)

const (
	logMsgBuildQueryFailed = "failed to build sql statement"
	logMsgDBQueryFailed    = "database query execution failed"
	logMsgCloseRowsFailed  = "failed to close database rows"
	logMsgScanRowFailed    = "failed to scan database row"
	logMsgBeginTxFailed    = "failed to begin transaction"
	logMsgCommitFailed     = "failed to commit transaction"
	logMsgRollbackFailed   = "failed to roll back transaction"
	logMsgSQLExecuted      = "executed sql for: "
	logAttrError           = "error"
	logAttrQuery           = "query"
	logAttrDurationMS      = "duration_ms"
	logActionSchema        = "schema"
	logActionReset         = "reset"
	logActionPeek          = "peek"
	logActionRawDecrement  = "raw decrement"
	logActionLock          = "lock"
	logActionTryDecrement  = "try decrement"
	logActionCompare       = "compare and decrement"
	colName                = "name"
	colAvailableCount      = "available_count"
	colVersion             = "version"
	dialectPostgres        = "postgres"
	decrementExpression    = "? - 1"
	incrementExpression    = "? + 1"
	createTableStatement   = "CREATE TABLE IF NOT EXISTS %s (" +
		"name TEXT PRIMARY KEY, " +
		"available_count BIGINT NOT NULL, " +
		"version BIGINT NOT NULL DEFAULT 0)"
)

var (
	ErrNilDatabaseConnection = errors.New("database connection must not be nil")
	ErrEmptyTableName        = errors.New("table name must not be empty")
	ErrEmptyPoolName         = errors.New("pool name must not be empty")
	ErrPoolNotInitialized    = errors.New("resource pool row does not exist, reset it first")
	ErrVersionOutOfRange     = errors.New("stored version is negative")
)

// Pool is a contention.ResourcePool stored in one PostgreSQL row.
type Pool struct {
	db        adapters.DBAdapter
	tableName string
	poolName  string
	logger    contention.Logger
}

// NewPoolFromPGXPool creates a new Pool using a pgx Pool with optional configuration.
func NewPoolFromPGXPool(db *pgxpool.Pool, options ...Option) (*Pool, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newPool(adapters.NewPGXAdapter(db), options...)
}

// NewPoolFromSQLDB creates a new Pool using a sql.DB with optional configuration.
func NewPoolFromSQLDB(db *sql.DB, options ...Option) (*Pool, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newPool(adapters.NewSQLAdapter(db), options...)
}

// NewPoolFromSQLX creates a new Pool using a sqlx.DB with optional configuration.
func NewPoolFromSQLX(db *sqlx.DB, options ...Option) (*Pool, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newPool(adapters.NewSQLXAdapter(db), options...)
}

func newPool(db adapters.DBAdapter, options ...Option) (*Pool, error) {
	p := &Pool{
		db:        db,
		tableName: defaultTableName,
		poolName:  defaultPoolName,
	}

	for _, option := range options {
		if err := option(p); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// EnsureSchema creates the pool table if it does not exist yet.
func (p *Pool) EnsureSchema(ctx context.Context) error {
	statement := fmt.Sprintf(createTableStatement, pq.QuoteIdentifier(p.tableName))

	_, err := p.exec(ctx, p.db, statement, logActionSchema)

	return err
}

// Reset implements contention.ResourcePool by upserting the row with count = capacity and version = 0.
func (p *Pool) Reset(ctx context.Context, capacity int64) error {
	if capacity < 0 {
		return contention.ErrInvalidCapacity
	}

	statement, _, err := goqu.Dialect(dialectPostgres).
		Insert(p.tableName).
		Rows(goqu.Record{colName: p.poolName, colAvailableCount: capacity, colVersion: 0}).
		OnConflict(goqu.DoUpdate(colName, goqu.Record{colAvailableCount: capacity, colVersion: 0})).
		ToSQL()
	if err != nil {
		p.logError(logMsgBuildQueryFailed, err)
		return err
	}

	_, err = p.exec(ctx, p.db, statement, logActionReset)

	return err
}

// Peek implements contention.ResourcePool.
func (p *Pool) Peek(ctx context.Context) (contention.PoolStatus, error) {
	return p.peek(ctx, p.db)
}

func (p *Pool) peek(ctx context.Context, db adapters.Queryer) (contention.PoolStatus, error) {
	statement, err := p.selectStatement(false)
	if err != nil {
		return contention.PoolStatus{}, err
	}

	status, found, err := p.queryStatus(ctx, db, statement, logActionPeek)
	if err != nil {
		return contention.PoolStatus{}, err
	}

	if !found {
		return contention.PoolStatus{}, ErrPoolNotInitialized
	}

	return status, nil
}

// RawDecrement implements contention.ResourcePool with an unchecked decrement.
func (p *Pool) RawDecrement(ctx context.Context) (contention.PoolStatus, error) {
	statement, err := p.decrementStatement()
	if err != nil {
		return contention.PoolStatus{}, err
	}

	status, found, err := p.queryStatus(ctx, p.db, statement, logActionRawDecrement)
	if err != nil {
		return contention.PoolStatus{}, err
	}

	if !found {
		return contention.PoolStatus{}, ErrPoolNotInitialized
	}

	return status, nil
}

// CompareAndDecrement implements contention.ResourcePool.
// Zero updated rows is a lost race (or an empty pool), not an error.
func (p *Pool) CompareAndDecrement(ctx context.Context, expectedVersion uint64) (bool, contention.PoolStatus, error) {
	if expectedVersion > math.MaxInt64 {
		return false, contention.PoolStatus{}, nil
	}

	statement, err := p.decrementStatement(
		goqu.C(colVersion).Eq(int64(expectedVersion)),
		goqu.C(colAvailableCount).Gt(0),
	)
	if err != nil {
		return false, contention.PoolStatus{}, err
	}

	status, found, err := p.queryStatus(ctx, p.db, statement, logActionCompare)
	if err != nil {
		return false, contention.PoolStatus{}, err
	}

	return found, status, nil
}

// Lock implements contention.ResourcePool.
//
// Waiting for a connection and for the row lock is bound to ctx. The transaction itself is not, so it
// survives a cancellation inside the critical section until Unlock ends it.
func (p *Pool) Lock(ctx context.Context) (contention.LockedPool, error) {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		p.logError(logMsgBeginTxFailed, err)
		return nil, err
	}

	statement, err := p.selectStatement(true)
	if err != nil {
		p.rollback(ctx, tx)
		return nil, err
	}

	_, found, err := p.queryStatus(ctx, tx, statement, logActionLock)
	if err == nil && !found {
		err = ErrPoolNotInitialized
	}

	if err != nil {
		p.rollback(ctx, tx)
		return nil, err
	}

	return &lockedPool{pool: p, tx: tx}, nil
}

func (p *Pool) selectStatement(forUpdate bool) (string, error) {
	selectStmt := goqu.Dialect(dialectPostgres).
		From(p.tableName).
		Select(colAvailableCount, colVersion).
		Where(goqu.C(colName).Eq(p.poolName))

	if forUpdate {
		selectStmt = selectStmt.ForUpdate(exp.Wait)
	}

	statement, _, err := selectStmt.ToSQL()
	if err != nil {
		p.logError(logMsgBuildQueryFailed, err)
		return "", err
	}

	return statement, nil
}

func (p *Pool) decrementStatement(conditions ...exp.Expression) (string, error) {
	where := append([]exp.Expression{goqu.C(colName).Eq(p.poolName)}, conditions...)

	statement, _, err := goqu.Dialect(dialectPostgres).
		Update(p.tableName).
		Set(goqu.Record{
			colAvailableCount: goqu.L(decrementExpression, goqu.C(colAvailableCount)),
			colVersion:        goqu.L(incrementExpression, goqu.C(colVersion)),
		}).
		Where(where...).
		Returning(colAvailableCount, colVersion).
		ToSQL()
	if err != nil {
		p.logError(logMsgBuildQueryFailed, err)
		return "", err
	}

	return statement, nil
}

// queryStatus runs a statement returning (available_count, version) and reports whether a row came back.
func (p *Pool) queryStatus(
	ctx context.Context,
	db adapters.Queryer,
	statement string,
	action string,
) (contention.PoolStatus, bool, error) {

	start := time.Now()

	rows, err := db.Query(ctx, statement)
	if err != nil {
		p.logError(logMsgDBQueryFailed, err, logAttrQuery, statement)
		return contention.PoolStatus{}, false, err
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			p.logError(logMsgCloseRowsFailed, closeErr)
		}
	}()

	p.logQueryWithDuration(statement, action, time.Since(start))

	if !rows.Next() {
		return contention.PoolStatus{}, false, rows.Err()
	}

	var count, version int64
	if err := rows.Scan(&count, &version); err != nil {
		p.logError(logMsgScanRowFailed, err)
		return contention.PoolStatus{}, false, err
	}

	if version < 0 {
		return contention.PoolStatus{}, false, ErrVersionOutOfRange
	}

	return contention.PoolStatus{Count: count, Version: uint64(version)}, true, nil
}

func (p *Pool) exec(ctx context.Context, db adapters.Queryer, statement, action string) (int64, error) {
	start := time.Now()

	result, err := db.Exec(ctx, statement)
	if err != nil {
		p.logError(logMsgDBQueryFailed, err, logAttrQuery, statement)
		return 0, err
	}

	p.logQueryWithDuration(statement, action, time.Since(start))

	return result.RowsAffected()
}

func (p *Pool) rollback(ctx context.Context, tx adapters.DBTx) {
	if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil {
		p.logError(logMsgRollbackFailed, err)
	}
}

// logQueryWithDuration logs SQL statements with execution time at debug level if the logger is configured.
func (p *Pool) logQueryWithDuration(statement, action string, duration time.Duration) {
	if p.logger != nil {
		p.logger.Debug(logMsgSQLExecuted+action, logAttrDurationMS, toMilliseconds(duration), logAttrQuery, statement)
	}
}

// logError logs error information at the error level if the logger is configured.
func (p *Pool) logError(message string, err error, args ...any) {
	if p.logger != nil {
		allArgs := []any{logAttrError, err.Error()}
		allArgs = append(allArgs, args...)
		p.logger.Error(message, allArgs...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

// lockedPool is the critical section of one row-locking transaction.
type lockedPool struct {
	pool     *Pool
	tx       adapters.DBTx
	released atomic.Bool
}

func (l *lockedPool) Peek(ctx context.Context) (contention.PoolStatus, error) {
	return l.pool.peek(ctx, l.tx)
}

func (l *lockedPool) TryDecrement(ctx context.Context) (bool, contention.PoolStatus, error) {
	statement, err := l.pool.decrementStatement(goqu.C(colAvailableCount).Gt(0))
	if err != nil {
		return false, contention.PoolStatus{}, err
	}

	status, found, err := l.pool.queryStatus(ctx, l.tx, statement, logActionTryDecrement)
	if err != nil {
		return false, contention.PoolStatus{}, err
	}

	if !found {
		current, peekErr := l.Peek(ctx)
		return false, current, peekErr
	}

	return true, status, nil
}

// Unlock commits the transaction and rolls it back if the commit fails.
func (l *lockedPool) Unlock(ctx context.Context) error {
	if !l.released.CompareAndSwap(false, true) {
		return contention.ErrLockNotHeld
	}

	ctx = context.WithoutCancel(ctx)

	if err := l.tx.Commit(ctx); err != nil {
		l.pool.logError(logMsgCommitFailed, err)
		l.pool.rollback(ctx, l.tx)

		return err
	}

	return nil
}

var _ contention.ResourcePool = (*Pool)(nil)
