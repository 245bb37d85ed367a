// Package sqlite provides the SQLite results backend.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. Each trial is one row of the trials
// table, ordered by an autoincrement sequence.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Applied versions are recorded in schema_migrations.
//
// # Concurrency
//
// The database runs in WAL mode, so the dashboard can read the table while a
// sweep appends to it.
package sqlite
