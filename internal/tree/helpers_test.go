package tree_test

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/treestore/internal/ir"
	"github.com/roach88/treestore/internal/querysql"
	"github.com/roach88/treestore/internal/store"
	"github.com/roach88/treestore/internal/testutil"
	"github.com/roach88/treestore/internal/tree"
)

// spyBackend counts calls reaching the backend.
type spyBackend struct {
	tree.Backend
	calls atomic.Int64
}

func (b *spyBackend) Select(ctx context.Context, where querysql.Fragment) (tree.Cursor, error) {
	b.calls.Add(1)
	return b.Backend.Select(ctx, where)
}

func (b *spyBackend) Count(ctx context.Context, where querysql.Fragment) (int64, error) {
	b.calls.Add(1)
	return b.Backend.Count(ctx, where)
}

func (b *spyBackend) Upsert(ctx context.Context, row tree.Row) (tree.Row, bool, error) {
	b.calls.Add(1)
	return b.Backend.Upsert(ctx, row)
}

func (b *spyBackend) Delete(ctx context.Context, where querysql.Fragment) (int64, error) {
	b.calls.Add(1)
	return b.Backend.Delete(ctx, where)
}

// createTestTree opens a SQLite-backed store with a deterministic clock and
// IDs, initialized with a root.
func createTestTree(t *testing.T, opts ...tree.Option) (*tree.Store, *spyBackend) {
	t.Helper()
	backend, err := store.Open(filepath.Join(t.TempDir(), "tree.db"))
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	spy := &spyBackend{Backend: backend}
	opts = append([]tree.Option{
		tree.WithClock(testutil.NewDeterministicClock()),
		tree.WithIDGenerator(testutil.NewSequentialIDs("n").Generate),
	}, opts...)
	s := tree.New(spy, opts...)

	_, err = s.Initialize(t.Context())
	require.NoError(t, err)
	return s, spy
}

func obj(t *testing.T, js string) ir.Object {
	t.Helper()
	o, err := ir.ParseObject([]byte(js))
	require.NoError(t, err)
	return o
}

func mustSave(t *testing.T, s *tree.Store, path, js string) *tree.Node {
	t.Helper()
	res, err := s.Save(t.Context(), obj(t, js), path)
	require.NoError(t, err)
	return res.Node
}

// pathsOf returns a collector for (stream, err) results, so calls read
// pathsOf(t)(s.Ls(ctx, "/")).
func pathsOf(t *testing.T) func(*tree.Stream, error) []string {
	return func(stream *tree.Stream, err error) []string {
		t.Helper()
		require.NoError(t, err)
		out, err := stream.Paths()
		require.NoError(t, err)
		return out
	}
}
