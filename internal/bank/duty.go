package bank

import (
	"fmt"
	"math"
)

// DutyForPercent maps a speed percent onto the duty scale, rounding
// half away from zero: 50% of 1023 is 512, not 511.
func DutyForPercent(percent int, maxDuty uint32) uint32 {
	return uint32(math.Round(float64(percent) * float64(maxDuty) / 100))
}

// SetSpeed validates and applies one channel's speed percent. On
// success the commanded speed is recorded; a non-zero speed clears the
// stopped flag since the bank is no longer fully stopped.
func (b *Bank) SetSpeed(channel, percent int) error {
	if channel < 0 || channel >= len(b.channels) {
		return fmt.Errorf("fan %d: %w", channel, ErrInvalidChannel)
	}
	if percent < 0 || percent > 100 {
		return fmt.Errorf("fan %d: speed %d: %w", channel, percent, ErrInvalidSpeed)
	}
	ch := b.channels[channel]
	if !ch.Available() {
		return fmt.Errorf("fan %d: %w", channel, ErrChannelUnavailable)
	}

	if err := ch.Out.WriteDuty(DutyForPercent(percent, b.maxDuty)); err != nil {
		return &WriteError{Channel: channel, Err: err}
	}

	ch.commanded = percent
	if percent > 0 {
		b.stopped = false
	}
	return nil
}

// SetAll applies one percent per channel. Every element is validated
// before any hardware is touched, so a bad batch leaves the whole bank
// unmodified and the error names the offending channel.
func (b *Bank) SetAll(percents []int) error {
	if len(percents) != len(b.channels) {
		return fmt.Errorf("got %d speeds for %d fans: %w", len(percents), len(b.channels), ErrInvalidSpeed)
	}
	for i, p := range percents {
		if p < 0 || p > 100 {
			return fmt.Errorf("fan %d: speed %d: %w", i, p, ErrInvalidSpeed)
		}
		if !b.channels[i].Available() {
			return fmt.Errorf("fan %d: %w", i, ErrChannelUnavailable)
		}
	}

	for i, p := range percents {
		if err := b.SetSpeed(i, p); err != nil {
			return err
		}
	}
	return nil
}
