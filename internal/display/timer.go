package display

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// RunningTimer measures how long the display has been running and how many
// frames it has painted. Reset arms it; Get reads elapsed seconds.
type RunningTimer struct {
	name  string
	clock clockwork.Clock

	mu        sync.Mutex
	start     time.Time
	stoppedAt time.Time
	frames    int64
	running   bool
}

// NewRunningTimer constructs a stopped timer.
func NewRunningTimer(name string, clock clockwork.Clock) *RunningTimer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &RunningTimer{name: name, clock: clock}
}

// Reset starts the timer from zero.
func (t *RunningTimer) Reset() {
	t.mu.Lock()
	t.start = t.clock.Now()
	t.stoppedAt = time.Time{}
	t.frames = 0
	t.running = true
	t.mu.Unlock()
}

// Stop halts the timer; Get keeps returning the elapsed value at stop time.
func (t *RunningTimer) Stop() {
	t.mu.Lock()
	if t.running {
		t.running = false
		t.stoppedAt = t.clock.Now()
	}
	t.mu.Unlock()
}

// Step counts one painted frame.
func (t *RunningTimer) Step() {
	t.mu.Lock()
	t.frames++
	t.mu.Unlock()
}

// Get returns the elapsed seconds since the last Reset, frozen at stop time
// once Stop is called, or 0 before the first Reset.
func (t *RunningTimer) Get() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.start.IsZero() {
		return 0
	}
	if !t.running && !t.stoppedAt.IsZero() {
		return t.stoppedAt.Sub(t.start).Seconds()
	}
	return t.clock.Now().Sub(t.start).Seconds()
}

// Frames returns the number of Step calls since the last Reset.
func (t *RunningTimer) Frames() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.frames
}

// Running reports whether the timer is armed.
func (t *RunningTimer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}
