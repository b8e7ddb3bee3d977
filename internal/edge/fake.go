package edge

// FakeSource delivers scripted edges into a handler from tests.
type FakeSource struct {
	handler Handler

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeSource creates a FakeSource feeding the given handler.
func NewFakeSource(handler Handler) *FakeSource {
	return &FakeSource{handler: handler}
}

// Pulse delivers n edges on the given channel. Edges delivered after
// Close are dropped, matching a released line.
func (f *FakeSource) Pulse(channel, n int) {
	if f.Closed {
		return
	}
	for i := 0; i < n; i++ {
		f.handler(channel)
	}
}

// Close marks the source as closed.
func (f *FakeSource) Close() error {
	f.Closed = true
	return nil
}
