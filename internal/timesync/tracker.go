package timesync

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Snapshot pairs a server-reported elapsed value with the wall-clock
// reference at which it was taken. Both fields are always written together;
// a zero Snapshot (Valid false) means no resync has succeeded yet.
type Snapshot struct {
	ServerElapsed float64
	Reference     time.Time
	Valid         bool
}

// Tracker holds the most recent authoritative (server, wall-clock) pair and
// derives a smoothly increasing estimate of elapsed seconds between resyncs.
// It is written by the resync loop and read by the render loop.
type Tracker struct {
	clock clockwork.Clock

	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker constructs an empty tracker using the supplied clock.
func NewTracker(clock clockwork.Clock) *Tracker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Tracker{clock: clock}
}

// Reset clears the snapshot. Estimates are invalid until the next Update.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.snap = Snapshot{}
	t.mu.Unlock()
}

// Update overwrites the snapshot unconditionally. No monotonicity or
// staleness validation is performed; the server value is authoritative.
func (t *Tracker) Update(serverElapsed float64, reference time.Time) {
	t.mu.Lock()
	t.snap = Snapshot{ServerElapsed: serverElapsed, Reference: reference, Valid: true}
	t.mu.Unlock()
}

// Snapshot returns a copy of the current snapshot.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap
}

// EstimateNow interpolates the elapsed seconds at the current instant:
// ServerElapsed plus the wall-clock time passed since Reference. The second
// return value is false when no valid snapshot is held, in which case the
// estimate is meaningless. Between successive calls with no intervening
// Update or Reset the estimate is non-decreasing.
func (t *Tracker) EstimateNow() (float64, bool) {
	t.mu.RLock()
	snap := t.snap
	t.mu.RUnlock()
	if !snap.Valid {
		return 0, false
	}
	return snap.ServerElapsed + t.clock.Now().Sub(snap.Reference).Seconds(), true
}
