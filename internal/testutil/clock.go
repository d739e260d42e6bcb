// Package testutil provides in-memory fakes for tests.
package testutil

import (
	"sync"
	"time"
)

// StubClock is a controllable clock for tests.
type StubClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewStubClock creates a StubClock frozen at the given time.
func NewStubClock(now time.Time) *StubClock {
	return &StubClock{now: now}
}

// Now returns the stubbed current time.
func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the stubbed time forward.
func (c *StubClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set replaces the stubbed time.
func (c *StubClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}
