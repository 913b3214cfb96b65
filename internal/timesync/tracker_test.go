package timesync

import (
	"math"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestEstimateTracksClockAdvance(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Unix(1000, 0))
	tracker := NewTracker(clock)
	tracker.Update(5.0, clock.Now())

	tests := []struct {
		name     string
		advance  time.Duration
		expected float64
	}{
		{"immediate", 0, 5.00},
		{"half second", 500 * time.Millisecond, 5.50},
		{"one and a half", time.Second, 6.50},
		{"no advance holds", 0, 6.50},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clock.Advance(tc.advance)
			est, ok := tracker.EstimateNow()
			if !ok {
				t.Fatalf("expected valid estimate")
			}
			if math.Abs(est-tc.expected) > 1e-9 {
				t.Fatalf("expected %.2f got %v", tc.expected, est)
			}
		})
	}
}

func TestEstimateNonDecreasing(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Unix(0, 0))
	tracker := NewTracker(clock)
	tracker.Update(1.25, clock.Now())

	prev, _ := tracker.EstimateNow()
	for i := 0; i < 20; i++ {
		clock.Advance(37 * time.Millisecond)
		est, ok := tracker.EstimateNow()
		if !ok {
			t.Fatalf("estimate became invalid at step %d", i)
		}
		if est < prev {
			t.Fatalf("estimate decreased from %v to %v", prev, est)
		}
		prev = est
	}
}

func TestUpdateSetsEstimateAtReference(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Unix(100, 0))
	tracker := NewTracker(clock)

	tracker.Update(42.5, clock.Now())
	est, ok := tracker.EstimateNow()
	if !ok {
		t.Fatalf("expected valid estimate")
	}
	if math.Abs(est-42.5) > 1e-9 {
		t.Fatalf("expected 42.5 at reference instant, got %v", est)
	}
}

func TestResetClearsSnapshot(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Unix(0, 0))
	tracker := NewTracker(clock)
	tracker.Update(3.0, clock.Now())

	tracker.Reset()

	snap := tracker.Snapshot()
	if snap.Valid {
		t.Fatalf("expected invalid snapshot after reset")
	}
	if snap.ServerElapsed != 0 || !snap.Reference.IsZero() {
		t.Fatalf("expected zeroed snapshot, got %+v", snap)
	}
	if _, ok := tracker.EstimateNow(); ok {
		t.Fatalf("expected estimate to be invalid after reset")
	}
}

func TestUpdateOverwritesUnconditionally(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Unix(50, 0))
	tracker := NewTracker(clock)

	tracker.Update(10.0, clock.Now())
	// A smaller elapsed value still wins; the server is authoritative.
	tracker.Update(2.0, clock.Now())

	est, ok := tracker.EstimateNow()
	if !ok || math.Abs(est-2.0) > 1e-9 {
		t.Fatalf("expected overwrite to 2.0, got %v (valid=%v)", est, ok)
	}
}
