// Package history persists audit runs in a SQLite database.
//
// Each run is stored as a summary row (input counts, services by status,
// issues by severity) plus the serialized verdict tree and one row per
// issue, denormalized so past runs can be queried per service or severity
// without decoding the report JSON.
//
// The store uses WAL mode and a configurable busy timeout, and is safe for
// concurrent use through database/sql's connection pool. Retention is
// handled by Prune, typically driven by the watch scheduler.
package history
