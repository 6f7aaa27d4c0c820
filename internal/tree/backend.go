package tree

import (
	"context"
	"time"

	"github.com/roach88/treestore/internal/ir"
	"github.com/roach88/treestore/internal/querysql"
)

// Row is a node as stored by a Backend, already decoded.
type Row struct {
	ID     string
	Parent string
	Name   string
	Data   ir.Object
	CTime  time.Time
	MTime  time.Time
}

// Path returns the canonical path of the row.
func (r Row) Path() string {
	return r.Parent + r.Name + "/"
}

// Cursor iterates rows of a Select. It must be closed.
type Cursor interface {
	// Next advances to the next row, returning false when exhausted or on error.
	Next() bool
	// Row returns the current row.
	Row() Row
	// Err returns the error that stopped iteration, if any.
	Err() error
	// Close releases the cursor. It is safe to call more than once.
	Close() error
}

// Backend is the row-access capability a Store runs on. Where fragments are
// compiled for the backend's Dialect and carry all values as parameters.
type Backend interface {
	// Dialect is the SQL dialect fragments must be compiled for.
	Dialect() querysql.Dialect

	// Select returns the rows matching where, ordered by path.
	Select(ctx context.Context, where querysql.Fragment) (Cursor, error)

	// Count returns the number of rows matching where.
	Count(ctx context.Context, where querysql.Fragment) (int64, error)

	// Upsert inserts row, or, when (parent, name) exists, replaces only its
	// data and mtime. It returns the stored row and whether it was created.
	Upsert(ctx context.Context, row Row) (Row, bool, error)

	// Delete removes the rows matching where in a single statement and
	// returns how many were removed.
	Delete(ctx context.Context, where querysql.Fragment) (int64, error)
}
