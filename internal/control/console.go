package control

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"ssvep-engine/internal/timesync"
)

// ConsoleConfig wires the operator console together.
type ConsoleConfig struct {
	Client         *Client
	Clock          clockwork.Clock
	ResyncInterval time.Duration
	RenderInterval time.Duration
	// RenderPolled receives the raw readout produced by each resync.
	RenderPolled func(string)
	// RenderSmooth receives the interpolated readout at render cadence.
	RenderSmooth func(string)
}

// Console drives the operator side of a stimulus session: it starts the
// display, keeps an elapsed-time tracker resynced from the gateway, renders
// both readouts and mirrors the cue texts accepted so far.
type Console struct {
	client   *Client
	tracker  *timesync.Tracker
	resyncer *timesync.Resyncer
	renderer *timesync.Renderer

	mu   sync.Mutex
	cues []string
}

// NewConsole builds a console around a gateway client.
func NewConsole(cfg ConsoleConfig) *Console {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	tracker := timesync.NewTracker(clock)
	c := &Console{
		client:  cfg.Client,
		tracker: tracker,
	}
	c.resyncer = timesync.NewResyncer(tracker, cfg.Client, timesync.ResyncConfig{
		Interval: cfg.ResyncInterval,
		Clock:    clock,
		Render:   cfg.RenderPolled,
	})
	c.renderer = timesync.NewRenderer(tracker, cfg.RenderSmooth, timesync.RenderConfig{
		Interval:         cfg.RenderInterval,
		Clock:            clock,
		HoldWhenUnsynced: true,
	})
	return c
}

// Tracker exposes the shared elapsed-time tracker.
func (c *Console) Tracker() *timesync.Tracker {
	return c.tracker
}

// Run starts the display and keeps both readout loops going until ctx is
// cancelled or a resync fails. The start command is fire-and-forget: the
// loops are launched whether or not it succeeded.
func (c *Console) Run(ctx context.Context) error {
	if res := c.client.StartDisplay(ctx); !res.OK() {
		logrus.WithError(res.Err).WithField("status", res.Status).
			Warn("start display command did not succeed")
	}

	renderCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.renderer.Run(renderCtx)
	}()

	err := c.resyncer.Run(ctx)
	cancel()
	<-done
	return err
}

// AppendCue submits cue text to the gateway and, on success, records it in
// the local cue list so the caller can clear its input.
func (c *Console) AppendCue(ctx context.Context, text string) CommandResult {
	res := c.client.AppendCueSequence(ctx, text)
	if res.OK() {
		c.mu.Lock()
		c.cues = append(c.cues, text)
		c.mu.Unlock()
		logrus.WithField("text", text).Info("cue sequence appended")
	}
	return res
}

// SelectLayout switches the stimulus grid width.
func (c *Console) SelectLayout(ctx context.Context, columns int) CommandResult {
	res := c.client.SetLayoutColumns(ctx, columns)
	if res.OK() {
		logrus.WithField("columns", columns).Info("layout columns changed")
	}
	return res
}

// Cue recalls one accepted cue text by list position, the way clicking a
// list entry copies it back into the input.
func (c *Console) Cue(i int) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.cues) {
		return "", false
	}
	return c.cues[i], true
}

// Cues returns a copy of the cue texts accepted so far.
func (c *Console) Cues() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.cues))
	copy(out, c.cues)
	return out
}

// CueSummary renders the accepted cues as one line for plain-text UIs.
func (c *Console) CueSummary() string {
	return strings.Join(c.Cues(), ", ")
}
