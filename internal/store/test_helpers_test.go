package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/treestore/internal/ir"
	"github.com/roach88/treestore/internal/querysql"
	"github.com/roach88/treestore/internal/queryir"
	"github.com/roach88/treestore/internal/tree"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var testEpoch = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

// createTestRow creates a row with fixed timestamps.
func createTestRow(id, parent, name string, data ir.Object) tree.Row {
	if data == nil {
		data = ir.Object{}
	}
	return tree.Row{
		ID:     id,
		Parent: parent,
		Name:   name,
		Data:   data,
		CTime:  testEpoch,
		MTime:  testEpoch,
	}
}

// compile compiles pred for the SQLite dialect, failing the test on error.
func compile(t *testing.T, pred queryir.Predicate) querysql.Fragment {
	t.Helper()
	frag, err := querysql.NewCompiler(querysql.SQLite{}).Compile(pred)
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}
	return frag
}

// selectPaths runs a Select and returns the matched paths in order.
func selectPaths(t *testing.T, s *Store, pred queryir.Predicate) []string {
	t.Helper()
	cur, err := s.Select(t.Context(), compile(t, pred))
	if err != nil {
		t.Fatalf("Select() failed: %v", err)
	}
	defer cur.Close()

	paths := []string{}
	for cur.Next() {
		paths = append(paths, cur.Row().Path())
	}
	if err := cur.Err(); err != nil {
		t.Fatalf("cursor failed: %v", err)
	}
	return paths
}
