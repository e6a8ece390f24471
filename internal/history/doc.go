// Package history persists boiler parameter values to the local SQLite store.
//
// After each successful poll cycle the daemon appends the numeric values of
// the decoded snapshot, one row per parameter, to the parameter_history
// table. The HTTP API exposes the stored rows per parameter, and a periodic
// prune enforces the configured retention window.
//
// Schema creation is idempotent: Init runs CREATE TABLE IF NOT EXISTS and
// can be called on every startup.
package history
