package main

import (
	"log/slog"
	"time"

	"github.com/hajimehoshi/ebiten/v2"

	"procon2-haptics/ebitenhaptics"
	"procon2-haptics/haptics"
)

// hostGame plays the requested feedback from ebiten's Update, which is the
// façade's control thread in this mode.
type hostGame struct {
	platform *ebitenhaptics.Platform
	h        *haptics.Haptics
	logger   *slog.Logger
	plays    []string
	deadline time.Time
	started  bool
}

func (g *hostGame) Update() error {
	g.platform.Update()

	if !g.started {
		g.started = true
		g.h.Prepare()
		var longest time.Duration
		for _, name := range g.plays {
			d, err := g.h.PlayNamed(name)
			if err != nil {
				g.logger.Warn("feedback rejected", "feedback", name, "error", err)
				continue
			}
			longest = max(longest, d)
		}
		g.deadline = time.Now().Add(longest + 100*time.Millisecond)
	}

	if time.Now().After(g.deadline) {
		return ebiten.Termination
	}
	return nil
}

func (g *hostGame) Draw(*ebiten.Image) {}

func (g *hostGame) Layout(int, int) (int, int) {
	return 320, 240
}

func runEbiten(logger *slog.Logger, plays []string) error {
	logger.Info("🚀 haptics host starting", "backend", "ebiten")

	platform := ebitenhaptics.New(logger)
	h := haptics.New(platform, haptics.WithLogger(logger))
	defer h.Shutdown()

	ebiten.SetWindowSize(320, 240)
	ebiten.SetWindowTitle("haptics")

	return ebiten.RunGame(&hostGame{
		platform: platform,
		h:        h,
		logger:   logger,
		plays:    plays,
	})
}
