package stability

import (
	"testing"
	"time"

	"github.com/sweeney/fan-bank/internal/tacho"
)

func feed(m *Monitor, start time.Time, interval time.Duration, rpms []float64) []State {
	states := make([]State, len(rpms))
	for i, rpm := range rpms {
		states[i] = m.Step(tacho.Sample{
			RPM:       rpm,
			SampledAt: start.Add(time.Duration(i) * interval),
		})
	}
	return states
}

func TestMonitorReachesStable(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewMonitor(3000, 50, 3, 10*time.Second)

	rpms := []float64{2000, 3010, 3040, 3005}
	wantHits := []int{0, 1, 2, 3}

	for i, rpm := range rpms {
		st := m.Step(tacho.Sample{RPM: rpm, SampledAt: start.Add(time.Duration(i) * 500 * time.Millisecond)})
		if m.Hits() != wantHits[i] {
			t.Errorf("poll %d: hits got %d, want %d", i, m.Hits(), wantHits[i])
		}
		if i < 3 && st != Sampling {
			t.Errorf("poll %d: state got %s, want SAMPLING", i, st)
		}
		if i == 3 && st != Stable {
			t.Errorf("poll %d: state got %s, want STABLE", i, st)
		}
	}
}

func TestMonitorResetsRunOnExcursion(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewMonitor(3000, 50, 3, 10*time.Second)

	// In-tolerance twice, out once, then three in a row: only the
	// final run of three may complete.
	states := feed(m, start, 500*time.Millisecond, []float64{3010, 3040, 2000, 3005, 3020, 3000})

	for i, st := range states[:5] {
		if st != Sampling {
			t.Errorf("poll %d: state got %s, want SAMPLING", i, st)
		}
	}
	if states[5] != Stable {
		t.Errorf("final poll: state got %s, want STABLE", states[5])
	}
}

func TestMonitorTimesOut(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewMonitor(3000, 50, 3, 2*time.Second)

	// Never in tolerance; the sample past the deadline times out.
	states := feed(m, start, time.Second, []float64{1000, 1100, 1200, 1300})
	if states[1] != Sampling {
		t.Errorf("at deadline: state got %s, want SAMPLING", states[1])
	}
	if states[3] != TimedOut {
		t.Errorf("past deadline: state got %s, want TIMED_OUT", states[3])
	}
}

func TestMonitorStableWinsAtDeadline(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewMonitor(3000, 50, 2, time.Second)

	m.Step(tacho.Sample{RPM: 3000, SampledAt: start})
	// This sample both completes the run and sits past the deadline;
	// the run wins.
	st := m.Step(tacho.Sample{RPM: 3000, SampledAt: start.Add(2 * time.Second)})
	if st != Stable {
		t.Errorf("state got %s, want STABLE", st)
	}
}

func TestMonitorTerminalStatesLatch(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	m := NewMonitor(3000, 50, 1, 10*time.Second)
	m.Step(tacho.Sample{RPM: 3000, SampledAt: start})
	if !m.Done() {
		t.Fatal("expected terminal state")
	}
	// Out-of-tolerance samples after Stable must not demote it.
	if st := m.Step(tacho.Sample{RPM: 0, SampledAt: start.Add(time.Second)}); st != Stable {
		t.Errorf("after Stable: state got %s, want STABLE", st)
	}

	m = NewMonitor(3000, 50, 3, time.Second)
	m.Step(tacho.Sample{RPM: 0, SampledAt: start})
	m.Step(tacho.Sample{RPM: 0, SampledAt: start.Add(2 * time.Second)})
	if m.State() != TimedOut {
		t.Fatal("expected TIMED_OUT")
	}
	// In-tolerance samples after TimedOut must not resurrect it.
	if st := m.Step(tacho.Sample{RPM: 3000, SampledAt: start.Add(3 * time.Second)}); st != TimedOut {
		t.Errorf("after TimedOut: state got %s, want TIMED_OUT", st)
	}
}

func TestMonitorRequiredFloor(t *testing.T) {
	m := NewMonitor(3000, 50, 0, time.Second)
	if m.required != 1 {
		t.Errorf("required: got %d, want 1", m.required)
	}
}

func TestMonitorAccessors(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewMonitor(2400, 100, 3, 5*time.Second)

	if m.TargetRPM() != 2400 {
		t.Errorf("TargetRPM: got %v, want 2400", m.TargetRPM())
	}
	if m.Done() {
		t.Error("fresh monitor should not be done")
	}

	s := tacho.Sample{RPM: 2390, SampledAt: start}
	m.Step(s)
	if m.LastSample() != s {
		t.Errorf("LastSample: got %+v, want %+v", m.LastSample(), s)
	}
}
