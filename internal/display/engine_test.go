package display

import (
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"ssvep-engine/internal/bridge"
)

func TestHandleCommand(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Unix(500, 0))
	engine := NewEngine(Config{Clock: clock})
	engine.Timer().Reset()
	clock.Advance(1500 * time.Millisecond)

	tests := []struct {
		name   string
		msg    bridge.Message
		verify func(t *testing.T, reply bridge.Message)
	}{
		{
			name: "echo",
			msg:  bridge.Message{Cmd: bridge.CmdEcho, Body: "test message"},
			verify: func(t *testing.T, reply bridge.Message) {
				if !reply.Ok() || reply.Body != "test message" {
					t.Fatalf("unexpected reply %+v", reply)
				}
			},
		},
		{
			name: "query passed seconds",
			msg:  bridge.Message{Cmd: bridge.CmdQueryPassedSeconds},
			verify: func(t *testing.T, reply bridge.Message) {
				if !reply.Ok() {
					t.Fatalf("expected success, got %+v", reply)
				}
				if reply.Passed != 1.5 {
					t.Fatalf("expected passed 1.5, got %v", reply.Passed)
				}
			},
		},
		{
			name: "change columns",
			msg:  bridge.Message{Cmd: bridge.CmdChangeColumns, Columns: 5},
			verify: func(t *testing.T, reply bridge.Message) {
				if !reply.Ok() {
					t.Fatalf("expected success, got %+v", reply)
				}
				if got := engine.Layout().Columns(); got != 5 {
					t.Fatalf("expected layout columns 5, got %d", got)
				}
			},
		},
		{
			name: "change columns invalid",
			msg:  bridge.Message{Cmd: bridge.CmdChangeColumns, Columns: 0},
			verify: func(t *testing.T, reply bridge.Message) {
				if reply.Status != bridge.StatusFail {
					t.Fatalf("expected failure, got %+v", reply)
				}
			},
		},
		{
			name: "append cue sequence",
			msg:  bridge.Message{Cmd: bridge.CmdAppendCueSequence, Text: "ab"},
			verify: func(t *testing.T, reply bridge.Message) {
				if !reply.Ok() {
					t.Fatalf("expected success, got %+v", reply)
				}
				if len(reply.Sequence) != 2 || reply.Sequence[0] != "a" {
					t.Fatalf("unexpected sequence %v", reply.Sequence)
				}
			},
		},
		{
			name: "unknown command",
			msg:  bridge.Message{Cmd: "reticulate splines"},
			verify: func(t *testing.T, reply bridge.Message) {
				if reply.Status != bridge.StatusFail || reply.Error != "Unknown command" {
					t.Fatalf("unexpected reply %+v", reply)
				}
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			reply := engine.HandleCommand(tc.msg)
			if reply.Timestamp != bridge.UnixSeconds(clock.Now()) {
				t.Fatalf("reply missing wall clock stamp: %+v", reply)
			}
			tc.verify(t, reply)
		})
	}
}

func TestHandleConsumeCue(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Unix(0, 0))
	engine := NewEngine(Config{Clock: clock})
	engine.Bag().LoadCueSequence([]string{"a", "b"})

	reply := engine.HandleCommand(bridge.Message{Cmd: bridge.CmdConsumeCue, Text: "a"})
	if !reply.Ok() || reply.Text != "a" {
		t.Fatalf("expected head consumed, got %+v", reply)
	}
	if len(reply.Sequence) != 1 || reply.Sequence[0] != "b" {
		t.Fatalf("unexpected remaining sequence %v", reply.Sequence)
	}

	// A mismatch fails and leaves the sequence alone.
	reply = engine.HandleCommand(bridge.Message{Cmd: bridge.CmdConsumeCue, Text: "z"})
	if reply.Status != bridge.StatusFail || reply.Error != "Cue mismatch" {
		t.Fatalf("expected mismatch failure, got %+v", reply)
	}
	if got := engine.Bag().CueSequence(); len(got) != 1 || got[0] != "b" {
		t.Fatalf("mismatch must not touch the sequence, got %v", got)
	}
}

func TestStartStopLifecycle(t *testing.T) {
	engine := NewEngine(Config{FrameInterval: time.Millisecond})

	if err := engine.Stop(); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning, got %v", err)
	}
	if err := engine.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := engine.Start(); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	if !engine.Timer().Running() {
		t.Fatalf("expected timer armed after start")
	}
	if err := engine.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if engine.Timer().Running() {
		t.Fatalf("expected timer stopped")
	}
	// A stopped engine can be started again.
	if err := engine.Start(); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if err := engine.Stop(); err != nil {
		t.Fatalf("stop after restart: %v", err)
	}
}

func TestFrameLoopStepsAndRedeals(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Unix(0, 0))
	engine := NewEngine(Config{
		Clock:         clock,
		FrameInterval: time.Second,
		ShuffleStep:   2 * time.Second,
	})
	if err := engine.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer engine.Stop()

	for i := 0; i < 3; i++ {
		clock.BlockUntil(1)
		clock.Advance(time.Second)
	}
	waitFor(t, func() bool { return engine.Timer().Frames() >= 3 })
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}
