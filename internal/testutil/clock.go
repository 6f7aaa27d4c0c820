// Package testutil provides deterministic clocks and ID generators so store
// tests and scenario traces are reproducible.
package testutil

import (
	"sync"
	"time"
)

// Epoch is the time of tick 0 for clocks created by NewDeterministicClock.
var Epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// DeterministicClock is a thread-safe ticking clock for tests.
//
// Every call to Now advances one tick of Step past Epoch, so successive
// saves get distinct, strictly increasing timestamps. Reset rewinds it for
// test reuse.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu    sync.Mutex
	seq   int64
	start time.Time
	step  time.Duration
}

// NewDeterministicClock creates a clock at Epoch ticking one second per call.
//
// The first call to Now() returns Epoch + 1s.
func NewDeterministicClock() *DeterministicClock {
	return NewDeterministicClockAt(Epoch, time.Second)
}

// NewDeterministicClockAt creates a clock starting at start with the given step.
func NewDeterministicClockAt(start time.Time, step time.Duration) *DeterministicClock {
	return &DeterministicClock{start: start.UTC(), step: step}
}

// Next increments and returns the tick number.
func (c *DeterministicClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Now advances one tick and returns its time. Implements tree.Clock.
func (c *DeterministicClock) Now() time.Time {
	n := c.Next()
	return c.start.Add(time.Duration(n) * c.step)
}

// Current returns the current tick number without advancing.
func (c *DeterministicClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// At returns the time of tick n without advancing.
func (c *DeterministicClock) At(n int64) time.Time {
	return c.start.Add(time.Duration(n) * c.step)
}

// Reset rewinds the clock to tick 0.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}
