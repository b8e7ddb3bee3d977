package tacho

import (
	"fmt"
	"time"
)

// Sample is one sampling-window measurement for a channel.
type Sample struct {
	Hz        float64
	RPM       float64
	SampledAt time.Time
}

// Estimator converts drained edge counts into frequency and RPM.
//
// Two independent ratios feed the conversion: edgesPerPulse is how
// many edge events one physical FG pulse produces (2 when the line is
// watched on both edges), and pulsesPerRev is how many full pulses the
// fan emits per revolution. They are commonly both 2 but must not be
// assumed equal.
type Estimator struct {
	counter       *Counter
	edgesPerPulse int
	pulsesPerRev  int
	now           func() time.Time
	last          []Sample
}

// NewEstimator creates an estimator over the given counter. Ratios
// below 1 are raised to 1. The now function supplies the monotonic
// clock; tests inject a fake.
func NewEstimator(counter *Counter, edgesPerPulse, pulsesPerRev int, now func() time.Time) *Estimator {
	if edgesPerPulse < 1 {
		edgesPerPulse = 1
	}
	if pulsesPerRev < 1 {
		pulsesPerRev = 1
	}
	return &Estimator{
		counter:       counter,
		edgesPerPulse: edgesPerPulse,
		pulsesPerRev:  pulsesPerRev,
		now:           now,
		last:          make([]Sample, counter.Channels()),
	}
}

// Sample drains the channel's counter and converts the closed window
// into a frequency measurement. The first window for a channel, and
// any window with non-positive elapsed time, reports zero — that path
// guards both divide-by-zero and a non-monotonic clock.
func (e *Estimator) Sample(channel int) (Sample, error) {
	if channel < 0 || channel >= e.counter.Channels() {
		return Sample{}, fmt.Errorf("tacho: channel %d out of range [0,%d)", channel, e.counter.Channels())
	}

	now := e.now()
	count, elapsed := e.counter.Drain(channel, now)

	s := Sample{SampledAt: now}
	if elapsed <= 0 {
		e.last[channel] = s
		return s, nil
	}

	// The counter only increments, but clamp anyway so a corrupted
	// count can never produce a negative frequency.
	if count < 0 {
		count = 0
	}

	fullPulses := float64(count) / float64(e.edgesPerPulse)
	s.Hz = fullPulses / elapsed.Seconds()
	s.RPM = s.Hz * 60 / float64(e.pulsesPerRev)
	e.last[channel] = s
	return s, nil
}

// Last returns the most recent sample taken for the channel, or a zero
// sample if the channel has never been sampled. Out-of-range channels
// report a zero sample.
func (e *Estimator) Last(channel int) Sample {
	if channel < 0 || channel >= len(e.last) {
		return Sample{}
	}
	return e.last[channel]
}
