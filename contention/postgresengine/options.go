package postgresengine

import (
	"github.com/AntonStoeckl/contention-lab/contention"
)

// Option defines a functional option for configuring Pool.
type Option func(*Pool) error

// WithTableName sets the table name for the Pool.
func WithTableName(tableName string) Option {
	return func(p *Pool) error {
		if tableName == "" {
			return ErrEmptyTableName
		}

		p.tableName = tableName

		return nil
	}
}

// WithPoolName selects the row of the table this Pool operates on.
// Several pools can share one table under different names.
func WithPoolName(poolName string) Option {
	return func(p *Pool) error {
		if poolName == "" {
			return ErrEmptyPoolName
		}

		p.poolName = poolName

		return nil
	}
}

// WithLogger sets the logger for the Pool.
//
// Debug level: SQL statements with execution timing (development use)
// Error level: failed statements and transactions.
func WithLogger(logger contention.Logger) Option {
	return func(p *Pool) error {
		p.logger = logger
		return nil
	}
}
