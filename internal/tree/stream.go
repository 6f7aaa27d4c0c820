package tree

import (
	"iter"
	"runtime"
)

// Stream is a forward-only, single-pass sequence of nodes pulled lazily from
// a backend Cursor. Callers must either drain it, call Close, or range over
// All, which closes it. A stream dropped without any of these still releases
// its cursor once it is garbage collected.
type Stream struct {
	cur     Cursor
	node    *Node
	err     error
	closed  bool
	cleanup runtime.Cleanup
}

func newStream(cur Cursor) *Stream {
	s := &Stream{cur: cur}
	s.cleanup = runtime.AddCleanup(s, func(c Cursor) { _ = c.Close() }, cur)
	return s
}

// Next advances to the next node. It returns false when the stream is
// exhausted, failed or closed; the stream is closed automatically at the end.
func (s *Stream) Next() bool {
	if s.closed {
		return false
	}
	if !s.cur.Next() {
		s.err = s.cur.Err()
		s.node = nil
		if err := s.Close(); err != nil && s.err == nil {
			s.err = err
		}
		return false
	}
	s.node = nodeFromRow(s.cur.Row())
	return true
}

// Node returns the current node.
func (s *Stream) Node() *Node {
	return s.node
}

// Path returns the current node's path, the stream's key.
func (s *Stream) Path() string {
	if s.node == nil {
		return ""
	}
	return s.node.Path
}

// Err returns the error that ended iteration, if any.
func (s *Stream) Err() error {
	return s.err
}

// Close releases the underlying cursor. It is idempotent.
func (s *Stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.cleanup.Stop()
	return s.cur.Close()
}

// All ranges over (path, node) pairs. Breaking out of the loop closes the
// stream; check Err afterwards for iteration failures.
func (s *Stream) All() iter.Seq2[string, *Node] {
	return func(yield func(string, *Node) bool) {
		defer s.Close()
		for s.Next() {
			if !yield(s.node.Path, s.node) {
				return
			}
		}
	}
}

// Collect drains the stream into a slice.
func (s *Stream) Collect() ([]*Node, error) {
	nodes := []*Node{}
	for _, n := range s.All() {
		nodes = append(nodes, n)
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return nodes, nil
}

// Paths drains the stream and returns only the node paths.
func (s *Stream) Paths() ([]string, error) {
	paths := []string{}
	for p := range s.All() {
		paths = append(paths, p)
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return paths, nil
}
