//go:build linux

package edge

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealSource watches a set of GPIO offsets and reports every edge of
// each line to a single shared handler carrying the channel index.
type RealSource struct {
	lines *gpiocdev.Lines
}

// NewRealSource requests the offsets on the named chip ("gpiochip0")
// with both-edge events; offsets[i] is the FG line for channel i.
// Lines are pulled up to match the open-collector FG outputs most
// fans drive.
func NewRealSource(chip string, offsets []int, handler Handler) (*RealSource, error) {
	// Events carry the line offset, not the request index, so
	// dispatch goes through an offset-to-channel table. One shared
	// callback per request; no per-channel closures.
	byOffset := make(map[int]int, len(offsets))
	for ch, off := range offsets {
		if prev, dup := byOffset[off]; dup {
			return nil, fmt.Errorf("fg offset %d assigned to channels %d and %d", off, prev, ch)
		}
		byOffset[off] = ch
	}

	eh := func(evt gpiocdev.LineEvent) {
		if ch, ok := byOffset[evt.Offset]; ok {
			handler(ch)
		}
	}

	lines, err := gpiocdev.RequestLines(chip, offsets,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(eh))
	if err != nil {
		return nil, fmt.Errorf("request fg lines on %s: %w", chip, err)
	}

	return &RealSource{lines: lines}, nil
}

// Close stops event delivery and releases the lines.
func (s *RealSource) Close() error {
	return s.lines.Close()
}
