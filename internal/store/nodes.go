package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/treestore/internal/ir"
	"github.com/roach88/treestore/internal/querysql"
	"github.com/roach88/treestore/internal/tree"
)

const nodeColumns = "id, parent, name, data, ctime, mtime"

var _ tree.Backend = (*Store)(nil)

// Select implements tree.Backend. Rows come back ordered by path.
func (s *Store) Select(ctx context.Context, where querysql.Fragment) (tree.Cursor, error) {
	query := fmt.Sprintf("SELECT %s FROM nodes WHERE %s ORDER BY %s",
		nodeColumns, where.SQL, s.dialect.OrderBy(querysql.PathColumn))
	s.trace(query, where)

	rows, err := withRetry(ctx, s, "select", func() (*sql.Rows, error) {
		return s.db.QueryContext(ctx, query, where.Args()...)
	})
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	return &cursor{rows: rows}, nil
}

// Count implements tree.Backend.
func (s *Store) Count(ctx context.Context, where querysql.Fragment) (int64, error) {
	query := "SELECT COUNT(*) FROM nodes WHERE " + where.SQL
	s.trace(query, where)

	n, err := withRetry(ctx, s, "count", func() (int64, error) {
		var n int64
		err := s.db.QueryRowContext(ctx, query, where.Args()...).Scan(&n)
		return n, err
	})
	if err != nil {
		return 0, fmt.Errorf("count nodes: %w", err)
	}
	return n, nil
}

// Upsert implements tree.Backend. On a (parent, name) conflict only data and
// mtime change; id and ctime keep their stored values.
func (s *Store) Upsert(ctx context.Context, row tree.Row) (tree.Row, bool, error) {
	dataJSON, err := ir.MarshalCanonical(row.Data)
	if err != nil {
		return tree.Row{}, false, fmt.Errorf("marshal data: %w", err)
	}

	stored, err := withRetry(ctx, s, "upsert", func() (tree.Row, error) {
		r := s.db.QueryRowContext(ctx, `
			INSERT INTO nodes (id, parent, name, data, ctime, mtime)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(parent, name) DO UPDATE SET
				data = excluded.data,
				mtime = excluded.mtime
			RETURNING `+nodeColumns,
			row.ID,
			row.Parent,
			row.Name,
			string(dataJSON),
			tree.FormatTime(row.CTime),
			tree.FormatTime(row.MTime),
		)
		return scanRow(r)
	})
	if err != nil {
		return tree.Row{}, false, fmt.Errorf("upsert node: %w", err)
	}
	return stored, stored.ID == row.ID, nil
}

// Delete implements tree.Backend.
func (s *Store) Delete(ctx context.Context, where querysql.Fragment) (int64, error) {
	query := "DELETE FROM nodes WHERE " + where.SQL
	s.trace(query, where)

	n, err := withRetry(ctx, s, "delete", func() (int64, error) {
		res, err := s.db.ExecContext(ctx, query, where.Args()...)
		if err != nil {
			return 0, err
		}
		return res.RowsAffected()
	})
	if err != nil {
		return 0, fmt.Errorf("delete nodes: %w", err)
	}
	return n, nil
}

func (s *Store) trace(query string, where querysql.Fragment) {
	s.log.WithField("sql", query).WithField("params", where.Params.String()).Trace("statement")
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRow decodes one nodes row.
func scanRow(sc rowScanner) (tree.Row, error) {
	var (
		r            tree.Row
		data         string
		ctime, mtime string
	)
	if err := sc.Scan(&r.ID, &r.Parent, &r.Name, &data, &ctime, &mtime); err != nil {
		return tree.Row{}, err
	}

	obj, err := ir.ParseObject([]byte(data))
	if err != nil {
		return tree.Row{}, fmt.Errorf("decode data of %s: %w", r.Path(), err)
	}
	r.Data = obj

	if r.CTime, err = tree.ParseTime(ctime); err != nil {
		return tree.Row{}, err
	}
	if r.MTime, err = tree.ParseTime(mtime); err != nil {
		return tree.Row{}, err
	}
	return r, nil
}

// cursor adapts *sql.Rows to tree.Cursor, decoding as it goes.
type cursor struct {
	rows *sql.Rows
	row  tree.Row
	err  error
}

func (c *cursor) Next() bool {
	if c.err != nil || !c.rows.Next() {
		return false
	}
	row, err := scanRow(c.rows)
	if err != nil {
		c.err = fmt.Errorf("scan node: %w", err)
		return false
	}
	c.row = row
	return true
}

func (c *cursor) Row() tree.Row {
	return c.row
}

func (c *cursor) Err() error {
	if c.err != nil {
		return c.err
	}
	if err := c.rows.Err(); err != nil {
		return fmt.Errorf("iterate nodes: %w", err)
	}
	return nil
}

func (c *cursor) Close() error {
	return c.rows.Close()
}
