// Package config provides connection and observability configuration helpers for contention-lab.
//
// It contains factory functions for creating PostgreSQL connections with different drivers
// (pgx.Pool, sql.DB, sqlx.DB) using pre-configured pool tuning, the DSN resolution used by the CLI
// and the integration tests, and OpenTelemetry providers that export spans to a writer.
package config
