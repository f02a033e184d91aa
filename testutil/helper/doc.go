// Package helper provides testing utilities for the contention packages.
//
// It contains spies for the dependency-free observability interfaces (logger, metrics, tracing),
// a slog.Handler that captures records, and Given-style helpers that build coordinators, pools and
// strategies with fast, deterministic delays.
package helper
