package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"procon2-haptics/config"
	"procon2-haptics/haptics"
	"procon2-haptics/logging"
	"procon2-haptics/procon"
	"procon2-haptics/watch"
)

func main() {
	configPath := flag.String("config", "", "Path to a .toml or .yaml config file")
	backend := flag.String("backend", "", "Haptic backend: procon or ebiten (overrides config)")
	play := flag.String("play", "", "Comma separated feedback to play, e.g. heartbeat,success")
	daemonMode := flag.Bool("daemon", false, "Keep running: map controller buttons to feedback until SIGINT/SIGTERM")
	debug := flag.Bool("debug", false, "Debug logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}
	if *backend != "" {
		cfg.Backend = *backend
	}
	if *debug {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		slog.Error("configuring logging", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	plays, err := parsePlays(*play)
	if err != nil {
		logger.Error("bad -play", "error", err)
		os.Exit(2)
	}

	if cfg.Backend == "ebiten" {
		if err := runEbiten(logger, plays); err != nil {
			logger.Error("ebiten host failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := runProcon(cfg, logger, plays, *daemonMode); err != nil {
		logger.Error("procon host failed", "error", err)
		os.Exit(1)
	}
}

func proconConfig(cfg *config.Config) procon.Config {
	return procon.Config{
		Vendor:     cfg.Device.Vendor,
		Products:   cfg.Device.Products,
		ConfigNum:  cfg.Device.Config,
		Interface:  cfg.Device.Interface,
		PlayerLED:  cfg.Device.PlayerLED,
		HidrawPath: cfg.Device.Hidraw,
		Playback: procon.PlayerConfig{
			FrameInterval:   cfg.Engine.FrameInterval(),
			TransientLength: cfg.Engine.TransientLength(),
			MaxPattern:      cfg.Engine.MaxPattern(),
		},
	}
}

func runProcon(cfg *config.Config, logger *slog.Logger, plays []string, daemon bool) error {
	logger.Info("🚀 haptics host starting", "backend", "procon")

	platform, err := procon.Open(proconConfig(cfg), logger)
	if err != nil {
		return err
	}
	defer platform.Close()

	h := haptics.New(platform, haptics.WithLogger(logger))
	defer h.Shutdown()

	if !h.IsSupported() {
		logger.Warn("⚠️ no haptic controller found, feedback will be skipped")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if daemon {
		startWatchers(ctx, cfg, platform.HidrawPath(), h, logger)
	}

	h.Prepare()

	var longest time.Duration
	for _, name := range plays {
		d, err := h.PlayNamed(name)
		if err != nil {
			logger.Warn("feedback rejected", "feedback", name, "error", err)
			continue
		}
		longest = max(longest, d)
	}

	if !daemon {
		// let the player goroutine finish its frames before shutdown
		select {
		case <-ctx.Done():
		case <-time.After(longest + 100*time.Millisecond):
		}
		return nil
	}

	logger.Info("✅ ready, press controller buttons for feedback")
	runButtonLoop(ctx, platform.HidrawPath(), h, logger)
	logger.Info("🛑 shutdown signal received, cleaning up")
	return nil
}

func startWatchers(ctx context.Context, cfg *config.Config, hidPath string, h *haptics.Haptics, logger *slog.Logger) {
	if cfg.Watch.Sleep {
		w := watch.NewSleepWatcher(h, logger)
		go func() {
			if err := w.Run(ctx); err != nil {
				logger.Warn("sleep watcher stopped", "error", err)
			}
		}()
	}
	if cfg.Watch.Hotplug && hidPath != "" {
		w := watch.NewDeviceWatcher(hidPath, h, logger)
		go func() {
			if err := w.Run(ctx); err != nil {
				logger.Warn("device watcher stopped", "error", err)
			}
		}()
	}
}

// runButtonLoop reads input on its own goroutine and plays feedback on this
// one, which stays the only caller of the façade.
func runButtonLoop(ctx context.Context, hidPath string, h *haptics.Haptics, logger *slog.Logger) {
	if hidPath == "" {
		<-ctx.Done()
		return
	}
	reader, err := procon.NewInputReader(hidPath)
	if err != nil {
		logger.Warn("button input unavailable", "error", err)
		<-ctx.Done()
		return
	}

	states := make(chan procon.ButtonState, 8)
	go func() {
		defer close(states)
		failCount := 0
		for {
			state, err := reader.ReadButtons()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				failCount++
				if failCount > 20 {
					logger.Warn("input read failed", "error", err)
					return
				}
				time.Sleep(100 * time.Millisecond)
				continue
			}
			failCount = 0
			select {
			case states <- state:
			case <-ctx.Done():
				return
			}
		}
	}()

	var prev procon.ButtonState
	for {
		select {
		case <-ctx.Done():
			reader.Close()
			return
		case state, ok := <-states:
			if !ok {
				reader.Close()
				<-ctx.Done()
				return
			}
			for _, b := range state.JustPressed(prev) {
				name := buttonFeedback[b]
				logger.Debug("button pressed", "button", b, "feedback", name)
				if _, err := h.PlayNamed(name); err != nil {
					logger.Warn("feedback rejected", "feedback", name, "error", err)
				}
			}
			prev = state
		}
	}
}
