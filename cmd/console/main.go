package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"ssvep-engine/internal/control"
)

func main() {
	gatewayURL := flag.String("gateway", envOr("SSVEP_GATEWAY_URL", "http://localhost:8000"),
		"gateway base URL")
	cue := flag.String("cue", "", "append this cue sequence and exit")
	columns := flag.Int("columns", 0, "switch the layout to this column count and exit")
	resyncEvery := flag.Duration("resync", time.Second, "resync period")
	renderEvery := flag.Duration("render", 100*time.Millisecond, "interpolated readout period")
	flag.Parse()

	client := control.NewClient(control.Config{BaseURL: *gatewayURL})
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *cue != "" {
		res := client.AppendCueSequence(ctx, *cue)
		if !res.OK() {
			logrus.Fatalf("append cue sequence: status=%d err=%v", res.Status, res.Err)
		}
		logrus.WithField("text", *cue).Info("cue sequence appended")
		return
	}

	if *columns != 0 {
		res := client.SetLayoutColumns(ctx, *columns)
		if !res.OK() {
			logrus.Fatalf("set layout columns: status=%d err=%v", res.Status, res.Err)
		}
		logrus.WithField("columns", *columns).Info("layout columns changed")
		return
	}

	console := control.NewConsole(control.ConsoleConfig{
		Client:         client,
		ResyncInterval: *resyncEvery,
		RenderInterval: *renderEvery,
		RenderPolled: func(s string) {
			fmt.Printf("polled:       %s\n", s)
		},
		RenderSmooth: func(s string) {
			fmt.Printf("interpolated: %s\n", s)
		},
	})

	logrus.WithField("gateway", *gatewayURL).Info("starting stimulus display")
	if err := console.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logrus.Fatalf("console stopped: %v", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
