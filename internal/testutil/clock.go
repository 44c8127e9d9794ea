// Package testutil provides deterministic test doubles shared across
// packages.
package testutil

import (
	"sync"
	"time"
)

// Clock is a deterministic wall clock for tests.
//
// Dismissal resurfacing is a time-relative predicate, so tests advance this
// clock to simulate elapsed time instead of sleeping.
//
// Thread-safety: all methods are safe for concurrent use via internal
// mutex, although the data layer reads it from a single writer.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock creates a clock frozen at the given instant.
func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

// Now returns the current simulated instant.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d. Monotonic: d must not be negative.
func (c *Clock) Advance(d time.Duration) {
	if d < 0 {
		panic("testutil.Clock: negative advance")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set jumps the clock to a specific instant. Used to restart scenarios
// from a known base time.
func (c *Clock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}
