package timesync

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

const (
	// ResyncFailureText replaces the polled readout when a resync fails.
	ResyncFailureText = "Error checkoutPassedSeconds.json"
	// UnsyncedText is shown by the render loop while no snapshot is held
	// and HoldWhenUnsynced is enabled.
	UnsyncedText = "--"

	defaultResyncInterval = time.Second
	defaultRenderInterval = 100 * time.Millisecond
)

// Reading is the payload of one passed-seconds query: the display's elapsed
// seconds and the server wall clock (Unix seconds) at reply time.
type Reading struct {
	Passed    float64 `json:"passed"`
	Timestamp float64 `json:"timestamp"`
}

// TimeSource fetches the authoritative elapsed time from the backend.
type TimeSource interface {
	PassedSeconds(ctx context.Context) (Reading, error)
}

// ResyncConfig drives the resync loop.
type ResyncConfig struct {
	Interval time.Duration
	Clock    clockwork.Clock
	// Render receives the polled readout text after every cycle.
	Render func(string)
}

// Resyncer periodically refreshes a Tracker from a TimeSource. A failed
// query renders ResyncFailureText, resets the tracker and stops the loop;
// no automatic retry is scheduled, restarting is the caller's decision.
type Resyncer struct {
	tracker  *Tracker
	source   TimeSource
	render   func(string)
	clock    clockwork.Clock
	interval time.Duration
}

// NewResyncer constructs a resync loop around the tracker and source.
func NewResyncer(tracker *Tracker, source TimeSource, cfg ResyncConfig) *Resyncer {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultResyncInterval
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	render := cfg.Render
	if render == nil {
		render = func(string) {}
	}
	return &Resyncer{
		tracker:  tracker,
		source:   source,
		render:   render,
		clock:    clock,
		interval: interval,
	}
}

// Run performs a sync immediately and then re-arms itself after each
// interval until a query fails or ctx is cancelled. It returns the failure
// that ended the loop, or ctx.Err on cancellation.
func (r *Resyncer) Run(ctx context.Context) error {
	for {
		if err := r.SyncOnce(ctx); err != nil {
			r.render(ResyncFailureText)
			r.tracker.Reset()
			logrus.WithError(err).Error("passed-seconds resync failed")
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.clock.After(r.interval):
		}
	}
}

// SyncOnce runs a single resync cycle: query, tracker update, readout.
// The tracker update always happens before the readout is rendered.
func (r *Resyncer) SyncOnce(ctx context.Context) error {
	reading, err := r.source.PassedSeconds(ctx)
	if err != nil {
		return err
	}
	r.tracker.Update(reading.Passed, unixSeconds(reading.Timestamp))
	r.render(fmt.Sprintf("%.2f | %s", reading.Passed,
		strconv.FormatFloat(reading.Timestamp, 'f', -1, 64)))
	logrus.WithFields(logrus.Fields{
		"passed":    reading.Passed,
		"timestamp": reading.Timestamp,
	}).Debug("resynced passed seconds")
	return nil
}

// RenderConfig drives the interpolation render loop.
type RenderConfig struct {
	Interval time.Duration
	Clock    clockwork.Clock
	// HoldWhenUnsynced renders UnsyncedText instead of a garbage estimate
	// while the tracker holds no snapshot. Disable to reproduce the raw
	// interpolated output regardless of snapshot state.
	HoldWhenUnsynced bool
}

// Renderer renders the interpolated elapsed estimate at a fixed cadence.
type Renderer struct {
	tracker  *Tracker
	render   func(string)
	clock    clockwork.Clock
	interval time.Duration
	hold     bool
}

// NewRenderer constructs the interpolation render loop.
func NewRenderer(tracker *Tracker, render func(string), cfg RenderConfig) *Renderer {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultRenderInterval
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if render == nil {
		render = func(string) {}
	}
	return &Renderer{
		tracker:  tracker,
		render:   render,
		clock:    clock,
		interval: interval,
		hold:     cfg.HoldWhenUnsynced,
	}
}

// Run renders immediately and then after every interval until ctx is
// cancelled. The loop never stops on its own.
func (r *Renderer) Run(ctx context.Context) error {
	for {
		r.RenderOnce()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.clock.After(r.interval):
		}
	}
}

// RenderOnce emits one readout of the current estimate.
func (r *Renderer) RenderOnce() {
	est, ok := r.tracker.EstimateNow()
	if !ok {
		if r.hold {
			r.render(UnsyncedText)
			return
		}
		est = math.NaN()
	}
	r.render(fmt.Sprintf("%.2f", est))
}

func unixSeconds(ts float64) time.Time {
	sec, frac := math.Modf(ts)
	return time.Unix(int64(sec), int64(frac*float64(time.Second)))
}
