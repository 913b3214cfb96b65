package main

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"ssvep-engine/internal/api"
	"ssvep-engine/internal/bridge"
	"ssvep-engine/internal/display"
)

func main() {
	baseDir, err := os.Getwd()
	if err != nil {
		logrus.Fatalf("determine working directory: %v", err)
	}

	dataDir := filepath.Join(baseDir, "data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		logrus.Fatalf("create data directory: %v", err)
	}

	cfg := api.Config{
		DBPath:      filepath.Join(dataDir, "ssvep.db"),
		DisplayAddr: bridge.DefaultAddr,
	}

	if override := strings.TrimSpace(os.Getenv("SSVEP_DB_PATH")); override != "" {
		cfg.DBPath = override
	}
	if addr := strings.TrimSpace(os.Getenv("SSVEP_DISPLAY_ADDR")); addr != "" {
		cfg.DisplayAddr = addr
	}
	if origins := strings.TrimSpace(os.Getenv("SSVEP_ALLOWED_ORIGINS")); origins != "" {
		for _, origin := range strings.Split(origins, ",") {
			if trimmed := strings.TrimSpace(origin); trimmed != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
			}
		}
	}
	if timeout := strings.TrimSpace(os.Getenv("SSVEP_COMMAND_TIMEOUT")); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			cfg.CommandTimeout = d
		}
	}

	// The start endpoint spawns the display engine like the original rig.
	// SSVEP_DISPLAY_CMD runs an external display binary; without it the
	// engine runs in-process next to the gateway.
	if cmdline := strings.TrimSpace(os.Getenv("SSVEP_DISPLAY_CMD")); cmdline != "" {
		cfg.Launch = commandLauncher(cmdline, cfg.DisplayAddr)
	} else {
		cfg.Launch = inProcessLauncher(cfg.DisplayAddr)
	}

	server, err := api.NewServer(cfg)
	if err != nil {
		logrus.Fatalf("create server: %v", err)
	}
	defer server.Close()

	router, err := server.Router()
	if err != nil {
		logrus.Fatalf("configure router: %v", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}

	logrus.Infof("starting ssvep gateway on :%s (display at %s)", port, cfg.DisplayAddr)
	if err := router.Run(":" + port); err != nil {
		logrus.Fatalf("server exited: %v", err)
	}
}

// commandLauncher starts an external display engine process.
func commandLauncher(cmdline, displayAddr string) api.Launcher {
	parts := strings.Fields(cmdline)
	return func() error {
		cmd := exec.Command(parts[0], parts[1:]...)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		cmd.Env = append(os.Environ(), "SSVEP_DISPLAY_ADDR="+displayAddr)
		if err := cmd.Start(); err != nil {
			return err
		}
		logrus.WithFields(logrus.Fields{
			"cmd": cmdline,
			"pid": cmd.Process.Pid,
		}).Info("display engine process started")
		go func() {
			if err := cmd.Wait(); err != nil {
				logrus.WithError(err).Warn("display engine process exited")
			}
		}()
		return nil
	}
}

// inProcessLauncher runs the display engine inside the gateway process.
func inProcessLauncher(displayAddr string) api.Launcher {
	engine := display.NewEngine(display.Config{})
	return func() error {
		if err := engine.Start(); err != nil {
			return err
		}
		go func() {
			server := bridge.NewServer(displayAddr, engine.HandleCommand)
			if err := server.Serve(context.Background()); err != nil {
				logrus.WithError(err).Error("display command socket closed")
			}
		}()
		logrus.WithField("addr", displayAddr).Info("in-process display engine started")
		return nil
	}
}
