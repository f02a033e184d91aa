package adapters

import (
	"context"
	"database/sql"
)

// stdRows wraps standard library sql.Rows to implement DBRows interface.
type stdRows struct {
	rows *sql.Rows
}

func (s *stdRows) Next() bool {
	return s.rows.Next()
}

func (s *stdRows) Scan(dest ...any) error {
	return s.rows.Scan(dest...)
}

func (s *stdRows) Err() error {
	return s.rows.Err()
}

func (s *stdRows) Close() error {
	return s.rows.Close()
}

// stdResult wraps standard library sql.Result to implement DBResult interface.
type stdResult struct {
	result sql.Result
}

func (s *stdResult) RowsAffected() (int64, error) {
	return s.result.RowsAffected()
}

// stdTx wraps a standard library sql.Tx to implement DBTx interface.
// database/sql binds the transaction to the context given at begin, so Commit and Rollback ignore ctx.
// The reserved connection goes back to the pool once the transaction ended.
type stdTx struct {
	tx   *sql.Tx
	conn *sql.Conn
}

func (s *stdTx) Query(ctx context.Context, query string) (DBRows, error) {
	rows, err := s.tx.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}

	return &stdRows{rows: rows}, nil
}

func (s *stdTx) Exec(ctx context.Context, query string) (DBResult, error) {
	result, err := s.tx.ExecContext(ctx, query)
	if err != nil {
		return nil, err
	}

	return &stdResult{result: result}, nil
}

func (s *stdTx) Commit(_ context.Context) error {
	err := s.tx.Commit()
	if err == nil {
		s.release()
	}

	return err
}

func (s *stdTx) Rollback(_ context.Context) error {
	err := s.tx.Rollback()
	s.release()

	return err
}

func (s *stdTx) release() {
	if s.conn != nil {
		_ = s.conn.Close()
	}
}
