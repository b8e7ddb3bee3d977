package edge

import "testing"

func TestFakeSourcePulse(t *testing.T) {
	counts := make(map[int]int)
	f := NewFakeSource(func(channel int) {
		counts[channel]++
	})

	f.Pulse(0, 3)
	f.Pulse(5, 1)

	if counts[0] != 3 {
		t.Errorf("channel 0: got %d edges, want 3", counts[0])
	}
	if counts[5] != 1 {
		t.Errorf("channel 5: got %d edges, want 1", counts[5])
	}
}

func TestFakeSourceClosedDropsEdges(t *testing.T) {
	total := 0
	f := NewFakeSource(func(int) { total++ })

	f.Pulse(0, 2)
	if err := f.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.Pulse(0, 10)

	if !f.Closed {
		t.Error("expected Closed=true")
	}
	if total != 2 {
		t.Errorf("edges after close must be dropped: got %d, want 2", total)
	}
}
