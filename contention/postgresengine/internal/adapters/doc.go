// Package adapters provide database adapter implementations for the PostgreSQL resource pool.
//
// This package implements the adapter pattern to support multiple PostgreSQL database libraries:
// pgx.Pool, sql.DB, and sqlx.DB. All adapters provide equivalent functionality through
// a common DBAdapter interface, including transactions for the row lock used by the
// pessimistic strategy.
package adapters
