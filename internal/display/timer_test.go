package display

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestRunningTimerElapsed(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Unix(0, 0))
	timer := NewRunningTimer("test", clock)

	if got := timer.Get(); got != 0 {
		t.Fatalf("expected 0 before reset, got %v", got)
	}

	timer.Reset()
	clock.Advance(2500 * time.Millisecond)
	if got := timer.Get(); got != 2.5 {
		t.Fatalf("expected 2.5, got %v", got)
	}

	timer.Stop()
	clock.Advance(time.Hour)
	if got := timer.Get(); got != 2.5 {
		t.Fatalf("expected elapsed frozen at stop, got %v", got)
	}
}

func TestRunningTimerResetRestarts(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Unix(0, 0))
	timer := NewRunningTimer("test", clock)

	timer.Reset()
	timer.Step()
	timer.Step()
	clock.Advance(10 * time.Second)
	timer.Reset()

	if got := timer.Get(); got != 0 {
		t.Fatalf("expected fresh timer, got %v", got)
	}
	if got := timer.Frames(); got != 0 {
		t.Fatalf("expected frame count reset, got %d", got)
	}
	if !timer.Running() {
		t.Fatalf("expected timer running after reset")
	}
}
