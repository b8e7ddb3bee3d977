// Package edge delivers tachometer (FG) edge events with hardware
// abstraction. The real implementation watches GPIO lines through the
// Linux GPIO character device. The fake implementation injects edges
// from tests.
package edge

// Handler receives one edge event for a channel. It runs in the event
// source's trigger context and must not block or allocate.
type Handler func(channel int)

// Source emits tachometer edges to its handler until closed.
type Source interface {
	// Close stops event delivery and releases the lines.
	Close() error
}
