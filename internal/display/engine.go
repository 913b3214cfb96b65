package display

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"ssvep-engine/internal/bridge"
	"ssvep-engine/internal/words"
)

const (
	defaultFrameInterval = 16 * time.Millisecond
	defaultShuffleStep   = 5 * time.Second
)

var (
	// ErrAlreadyRunning is returned when Start is called on a live engine.
	ErrAlreadyRunning = errors.New("display loop already running")
	// ErrNotRunning is returned when Stop is called on a stopped engine.
	ErrNotRunning = errors.New("display loop is not running")
)

// Config tunes the display engine.
type Config struct {
	FrameInterval time.Duration
	// ShuffleStep is how often the patch characters are redealt.
	ShuffleStep time.Duration
	Clock       clockwork.Clock
	Bag         *words.Bag
}

// Engine is the headless display core: a frame loop advancing the running
// timer and redealing the patch characters, plus the command handler served
// over the bridge socket. Rendering hardware sits behind the Patches
// snapshot and is out of scope here.
type Engine struct {
	clock         clockwork.Clock
	timer         *RunningTimer
	layout        *Layout
	bag           *words.Bag
	frameInterval time.Duration
	shuffleStep   time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewEngine constructs a stopped engine.
func NewEngine(cfg Config) *Engine {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	frame := cfg.FrameInterval
	if frame <= 0 {
		frame = defaultFrameInterval
	}
	shuffle := cfg.ShuffleStep
	if shuffle <= 0 {
		shuffle = defaultShuffleStep
	}
	bag := cfg.Bag
	if bag == nil {
		bag = words.NewBag(words.Config{})
	}
	return &Engine{
		clock:         clock,
		timer:         NewRunningTimer("display", clock),
		layout:        NewLayout(),
		bag:           bag,
		frameInterval: frame,
		shuffleStep:   shuffle,
	}
}

// Timer exposes the running timer (read by the command handler and tests).
func (e *Engine) Timer() *RunningTimer { return e.timer }

// Layout exposes the stimulus grid.
func (e *Engine) Layout() *Layout { return e.layout }

// Bag exposes the cue word bag.
func (e *Engine) Bag() *words.Bag { return e.bag }

// Start launches the frame loop. Starting a live engine is an error.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.done = make(chan struct{})
	e.timer.Reset()
	e.redeal()
	go e.run(ctx, e.done)
	logrus.Info("display loop started")
	return nil
}

// Stop cancels the frame loop and waits for it to exit.
func (e *Engine) Stop() error {
	e.mu.Lock()
	cancel, done := e.cancel, e.done
	e.cancel, e.done = nil, nil
	e.mu.Unlock()
	if cancel == nil {
		return ErrNotRunning
	}
	cancel()
	<-done
	e.timer.Stop()
	logrus.Info("display loop stopped")
	return nil
}

func (e *Engine) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	nextShuffle := e.shuffleStep.Seconds()
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.clock.After(e.frameInterval):
		}
		e.timer.Step()
		if passed := e.timer.Get(); passed > nextShuffle {
			nextShuffle += e.shuffleStep.Seconds()
			e.redeal()
		}
	}
}

// redeal paints a fresh character layout, planting the pending cue head on
// a random patch when one is queued.
func (e *Engine) redeal() {
	sequence, cueIndex := e.bag.MakeLayout()
	e.layout.SetChars(sequence)
	if cueIndex >= 0 {
		logrus.WithField("cue_index", cueIndex).Debug("cue planted in layout")
	}
}

// HandleCommand serves one bridge command. Every reply carries the display
// wall clock; unknown commands fail without touching engine state.
func (e *Engine) HandleCommand(msg bridge.Message) bridge.Message {
	switch msg.Cmd {
	case bridge.CmdEcho:
		msg.Status = bridge.StatusSuccess

	case bridge.CmdQueryPassedSeconds:
		msg.Status = bridge.StatusSuccess
		msg.Passed = e.timer.Get()

	case bridge.CmdChangeColumns:
		if err := e.layout.ResetColumns(msg.Columns); err != nil {
			msg.Status = bridge.StatusFail
			msg.Error = err.Error()
			break
		}
		e.redeal()
		msg.Status = bridge.StatusSuccess

	case bridge.CmdAppendCueSequence:
		msg.Status = bridge.StatusSuccess
		msg.Sequence = e.bag.AppendCue(msg.Text)

	case bridge.CmdConsumeCue:
		head, ok := e.bag.Consume(msg.Text)
		if !ok {
			msg.Status = bridge.StatusFail
			msg.Error = "Cue mismatch"
			break
		}
		msg.Status = bridge.StatusSuccess
		msg.Text = head
		msg.Sequence = e.bag.CueSequence()
		e.redeal()

	default:
		msg.Status = bridge.StatusFail
		msg.Error = "Unknown command"
		logrus.WithField("cmd", msg.Cmd).Warn("unknown display command")
	}
	msg.Timestamp = bridge.UnixSeconds(e.clock.Now())
	return msg
}
