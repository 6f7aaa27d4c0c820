package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs generates node IDs "<prefix>-0001", "<prefix>-0002", ...
//
// Plug Generate into tree.WithIDGenerator to make stored IDs (and therefore
// golden traces) stable across runs.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDs creates a generator. An empty prefix means "node".
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "node"
	}
	return &SequentialIDs{prefix: prefix}
}

// Generate returns the next ID.
func (g *SequentialIDs) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n), nil
}
