// Package stability decides when a fan has settled at a target speed.
// The monitor is a step machine driven by whoever owns the sampling
// cadence; it holds no timers, never blocks, and reads time only from
// the samples it is fed. This package has no hardware dependencies.
package stability

import (
	"math"
	"time"

	"github.com/sweeney/fan-bank/internal/tacho"
)

// State is the monitor's position in its lifecycle. Stable and
// TimedOut are terminal.
type State string

const (
	Sampling State = "SAMPLING"
	Stable   State = "STABLE"
	TimedOut State = "TIMED_OUT"
)

// Monitor tracks a run of consecutive in-tolerance samples against a
// target RPM. The caller feeds it one sample per poll; cancellation is
// simply ceasing to call Step.
type Monitor struct {
	targetRPM    float64
	toleranceRPM float64
	required     int
	timeout      time.Duration

	state     State
	hits      int
	started   bool
	startedAt time.Time
	last      tacho.Sample
}

// NewMonitor creates a monitor in the Sampling state. A required count
// below 1 is raised to 1.
func NewMonitor(targetRPM, toleranceRPM float64, required int, timeout time.Duration) *Monitor {
	if required < 1 {
		required = 1
	}
	return &Monitor{
		targetRPM:    targetRPM,
		toleranceRPM: toleranceRPM,
		required:     required,
		timeout:      timeout,
		state:        Sampling,
	}
}

// Step feeds one measurement in and returns the state after applying
// it. Once terminal, further steps return the terminal state
// unchanged. The timeout is measured from the first step's sample
// timestamp; the in-tolerance check runs before the timeout check, so
// a sample completing the required run wins at the boundary.
func (m *Monitor) Step(s tacho.Sample) State {
	if m.state != Sampling {
		return m.state
	}
	if !m.started {
		m.started = true
		m.startedAt = s.SampledAt
	}
	m.last = s

	if math.Abs(s.RPM-m.targetRPM) <= m.toleranceRPM {
		m.hits++
		if m.hits >= m.required {
			m.state = Stable
			return m.state
		}
	} else {
		m.hits = 0
	}

	if s.SampledAt.Sub(m.startedAt) > m.timeout {
		m.state = TimedOut
	}
	return m.state
}

// State returns the current state without advancing the monitor.
func (m *Monitor) State() State {
	return m.state
}

// Done reports whether the monitor reached a terminal state.
func (m *Monitor) Done() bool {
	return m.state != Sampling
}

// Hits returns the current consecutive in-tolerance count.
func (m *Monitor) Hits() int {
	return m.hits
}

// TargetRPM returns the target the monitor was armed with.
func (m *Monitor) TargetRPM() float64 {
	return m.targetRPM
}

// LastSample returns the most recent sample fed to Step.
func (m *Monitor) LastSample() tacho.Sample {
	return m.last
}
