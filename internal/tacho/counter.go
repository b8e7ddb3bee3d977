// Package tacho measures fan rotational speed from the FG tachometer
// pulse train. The counter half is the only code in the repository
// invoked from the edge-trigger context; everything else runs on the
// sequential control loop. Time is always injectable.
package tacho

import (
	"sync/atomic"
	"time"
)

// Counter accumulates tachometer edges for a fixed set of channels.
// OnEdge may be called from the edge-trigger context at any moment;
// Drain must only be called from the control loop.
type Counter struct {
	edges []atomic.Int64

	// windowStart is touched only from the control loop.
	windowStart []time.Time
}

// NewCounter creates a counter for the given number of channels.
// The channel count is fixed for the life of the counter.
func NewCounter(channels int) *Counter {
	return &Counter{
		edges:       make([]atomic.Int64, channels),
		windowStart: make([]time.Time, channels),
	}
}

// Channels returns the number of channels the counter tracks.
func (c *Counter) Channels() int {
	return len(c.edges)
}

// OnEdge records one tachometer edge on the given channel. It is
// non-blocking and allocation-free. Out-of-range channels are ignored
// rather than allowed to panic in the trigger context.
func (c *Counter) OnEdge(channel int) {
	if channel < 0 || channel >= len(c.edges) {
		return
	}
	c.edges[channel].Add(1)
}

// Drain atomically takes the accumulated edge count together with the
// time elapsed since the previous drain, then starts a new window at
// now. An edge racing the drain lands wholly in the old window or
// wholly in the new one, never in neither. The first drain of a
// channel only primes the window and reports zero elapsed time.
func (c *Counter) Drain(channel int, now time.Time) (count int64, elapsed time.Duration) {
	count = c.edges[channel].Swap(0)
	start := c.windowStart[channel]
	c.windowStart[channel] = now
	if start.IsZero() {
		return count, 0
	}
	return count, now.Sub(start)
}
