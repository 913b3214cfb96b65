package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"ssvep-engine/internal/bridge"
	"ssvep-engine/internal/display"
)

func main() {
	addr := strings.TrimSpace(os.Getenv("SSVEP_DISPLAY_ADDR"))
	if addr == "" {
		addr = bridge.DefaultAddr
	}
	if bridge.PortInUse(addr) {
		logrus.Fatalf("display command socket %s already in use", addr)
	}

	engine := display.NewEngine(display.Config{})
	if err := engine.Start(); err != nil {
		logrus.Fatalf("start display engine: %v", err)
	}
	defer func() {
		if err := engine.Stop(); err != nil {
			logrus.WithError(err).Warn("stop display engine")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := bridge.NewServer(addr, engine.HandleCommand)
	logrus.Infof("ssvep display engine serving commands on %s", addr)
	if err := server.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logrus.Fatalf("command server exited: %v", err)
	}
	logrus.Info("display engine shutting down")
}
