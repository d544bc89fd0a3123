package engine

import (
	"sync"
	"time"
)

// Clock supplies the elapsed time, in seconds, that drives the simulation.
// It must be monotonically non-decreasing.
type Clock interface {
	Elapsed() float64
}

// RealClock measures wall-clock time since it was created
type RealClock struct {
	start time.Time
}

// NewRealClock starts a wall clock
func NewRealClock() *RealClock {
	return &RealClock{start: time.Now()}
}

// Elapsed returns seconds since the clock started
func (c *RealClock) Elapsed() float64 {
	return time.Since(c.start).Seconds()
}

// ManualClock is advanced explicitly. It is used for deterministic replays
// and tests.
type ManualClock struct {
	mu      sync.Mutex
	elapsed float64
}

// NewManualClock creates a manual clock starting at elapsed
func NewManualClock(elapsed float64) *ManualClock {
	return &ManualClock{elapsed: elapsed}
}

// Elapsed returns the current value
func (c *ManualClock) Elapsed() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsed
}

// Advance moves the clock forward by dt seconds. Negative steps are ignored.
func (c *ManualClock) Advance(dt float64) {
	if dt <= 0 {
		return
	}
	c.mu.Lock()
	c.elapsed += dt
	c.mu.Unlock()
}

// Set jumps to an absolute elapsed time, never moving backwards.
func (c *ManualClock) Set(elapsed float64) {
	c.mu.Lock()
	if elapsed > c.elapsed {
		c.elapsed = elapsed
	}
	c.mu.Unlock()
}
