// Package bank models the fan bank: per-channel duty control, health
// assessment, and the emergency stop path. All bank state is owned by
// the sequential control loop; the only cross-context state, the
// tachometer counters, lives in internal/tacho.
package bank

import (
	"fmt"

	"github.com/sweeney/fan-bank/internal/pwm"
	"github.com/sweeney/fan-bank/internal/tacho"
)

// Channel is one fan position. Channels are created at bring-up with a
// fixed 1:1 pin mapping and are never resized.
type Channel struct {
	ID  int
	Out pwm.Output // nil when hardware init failed

	commanded int // last commanded speed percent, 0..100
}

// Available reports whether the channel's control hardware came up.
func (c *Channel) Available() bool {
	return c.Out != nil
}

// Commanded returns the last commanded speed percent.
func (c *Channel) Commanded() int {
	return c.commanded
}

// Bank composes the channels with the tachometer estimator.
type Bank struct {
	channels []*Channel
	maxDuty  uint32
	est      *tacho.Estimator
	stopped  bool
}

// New creates a bank over the given outputs; a nil output marks its
// channel unavailable (the "ignore missing fans" policy — the rest of
// the bank keeps working).
func New(outputs []pwm.Output, maxDuty uint32, est *tacho.Estimator) *Bank {
	channels := make([]*Channel, len(outputs))
	for i, out := range outputs {
		channels[i] = &Channel{ID: i, Out: out}
	}
	return &Bank{channels: channels, maxDuty: maxDuty, est: est}
}

// Channels returns the number of fan positions in the bank.
func (b *Bank) Channels() int {
	return len(b.channels)
}

// Channel returns the channel with the given id, or nil if out of
// range.
func (b *Bank) Channel(id int) *Channel {
	if id < 0 || id >= len(b.channels) {
		return nil
	}
	return b.channels[id]
}

// Stopped reports whether the bank is in the emergency-stopped state.
func (b *Bank) Stopped() bool {
	return b.stopped
}

// EmergencyStop forces duty 0 on every available channel, bypassing
// percent validation. Failures are collected, never fatal: a wedged
// fan must not keep its neighbors spinning. Unavailable channels are
// reported alongside the write failures. The tachometer counters are
// left untouched, and the bank is marked stopped regardless of the
// outcome.
func (b *Bank) EmergencyStop() []error {
	var failures []error
	for _, ch := range b.channels {
		if !ch.Available() {
			failures = append(failures, fmt.Errorf("fan %d: %w", ch.ID, ErrChannelUnavailable))
			continue
		}
		if err := ch.Out.WriteDuty(0); err != nil {
			failures = append(failures, &WriteError{Channel: ch.ID, Err: err})
			continue
		}
		ch.commanded = 0
	}
	b.stopped = true
	return failures
}

// Healthy reports whether the channel's latest measured speed clears
// the threshold. Out-of-range channels are unhealthy.
func (b *Bank) Healthy(channel int, thresholdRPM float64) bool {
	if channel < 0 || channel >= len(b.channels) {
		return false
	}
	return b.est.Last(channel).RPM > thresholdRPM
}

// ChannelStatus is one row of a status report.
type ChannelStatus struct {
	ID        int
	Percent   int
	Hz        float64
	RPM       float64
	Healthy   bool
	Available bool
}

// Report is the aggregate bank status.
type Report struct {
	Stopped  bool
	Channels []ChannelStatus
}

// ActiveFans counts channels currently measured as turning.
func (r Report) ActiveFans() int {
	n := 0
	for _, ch := range r.Channels {
		if ch.RPM > 0 {
			n++
		}
	}
	return n
}

// StatusReport assembles commanded speed and the latest measurement
// for every channel. It does not trigger sampling; it reads whatever
// the periodic sampler last produced.
func (b *Bank) StatusReport(thresholdRPM float64) Report {
	rep := Report{
		Stopped:  b.stopped,
		Channels: make([]ChannelStatus, len(b.channels)),
	}
	for i, ch := range b.channels {
		s := b.est.Last(i)
		rep.Channels[i] = ChannelStatus{
			ID:        ch.ID,
			Percent:   ch.commanded,
			Hz:        s.Hz,
			RPM:       s.RPM,
			Healthy:   s.RPM > thresholdRPM,
			Available: ch.Available(),
		}
	}
	return rep
}
