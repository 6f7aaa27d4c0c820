// Package store is the SQLite backend for tree.Store.
//
// Nodes live in a single table keyed by (parent, name), with the canonical
// path kept as a stored generated column:
//
//	nodes(id, parent, name, path = parent || name || '/', data, ctime, mtime)
//
// The backend only executes WHERE fragments compiled by querysql for the
// SQLite dialect, binding every value as a parameter. Payloads are stored as
// canonical JSON and timestamps as fixed-width UTC text, so ordering by the
// text columns is ordering by value.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - a single connection: SQLite allows one writer at a time
//
// Statements that still fail with "database is locked" are retried with
// backoff before the error is returned.
//
// Two drivers are supported: "sqlite3" (github.com/mattn/go-sqlite3, cgo) and
// "sqlite" (modernc.org/sqlite, pure Go).
package store
