package tree

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/treestore/internal/treepath"
)

// sliceCursor serves fixed rows, optionally failing after them.
type sliceCursor struct {
	rows   []Row
	i      int
	failAt int // index at which Next fails; -1 never
	err    error
	closed int
}

func newSliceCursor(paths ...string) *sliceCursor {
	c := &sliceCursor{failAt: -1, i: -1}
	for _, p := range paths {
		parent, name, err := treepath.Split(p)
		if err != nil {
			panic(err)
		}
		c.rows = append(c.rows, Row{ID: p, Parent: parent, Name: name})
	}
	return c
}

func (c *sliceCursor) Next() bool {
	c.i++
	if c.failAt >= 0 && c.i == c.failAt {
		c.err = errors.New("disk on fire")
		return false
	}
	return c.i < len(c.rows)
}

func (c *sliceCursor) Row() Row     { return c.rows[c.i] }
func (c *sliceCursor) Err() error   { return c.err }
func (c *sliceCursor) Close() error { c.closed++; return nil }

func TestStream_DrainsAndCloses(t *testing.T) {
	cur := newSliceCursor("/a/", "/b/")
	s := newStream(cur)

	var got []string
	for s.Next() {
		got = append(got, s.Path())
		assert.NotNil(t, s.Node())
	}
	assert.Equal(t, []string{"/a/", "/b/"}, got)
	assert.NoError(t, s.Err())
	assert.Equal(t, 1, cur.closed)
	assert.Nil(t, s.Node())
	assert.Equal(t, "", s.Path())

	assert.False(t, s.Next(), "streams are not restartable")
	assert.NoError(t, s.Close())
	assert.Equal(t, 1, cur.closed, "Close is idempotent")
}

func TestStream_AllClosesOnBreak(t *testing.T) {
	cur := newSliceCursor("/a/", "/b/", "/c/")
	s := newStream(cur)

	for p := range s.All() {
		assert.Equal(t, "/a/", p)
		break
	}
	assert.Equal(t, 1, cur.closed)
	assert.False(t, s.Next())
}

func TestStream_ReportsCursorError(t *testing.T) {
	cur := newSliceCursor("/a/", "/b/")
	cur.failAt = 1
	s := newStream(cur)

	nodes, err := s.Collect()
	require.Error(t, err)
	assert.Nil(t, nodes)
	assert.Contains(t, err.Error(), "disk on fire")
	assert.Equal(t, 1, cur.closed)
}

func TestStream_CollectEmpty(t *testing.T) {
	nodes, err := newStream(newSliceCursor()).Collect()
	require.NoError(t, err)
	assert.Empty(t, nodes)
	assert.NotNil(t, nodes)
}
