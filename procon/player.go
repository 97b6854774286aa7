package procon

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"procon2-haptics/haptics"
)

var errNotStarted = errors.New("haptic player not started")

// PlayerConfig tunes frame rendering
type PlayerConfig struct {
	FrameInterval   time.Duration
	TransientLength time.Duration
	MaxPattern      time.Duration
}

// Player streams rendered frames to the controller's hidraw node. It is the
// engine behind parameterized events and patterns.
type Player struct {
	path    string
	open    func(string) (io.WriteCloser, error)
	cfg     PlayerConfig
	onReset func()
	logger  *slog.Logger

	mu      sync.Mutex
	dev     io.WriteCloser
	counter byte

	// events is the batch being played, played the frames of it written
	events []haptics.Event
	played atomic.Int64

	stop chan struct{}
	done chan struct{}
}

// NewPlayer returns an unstarted player for hidPath. onReset is called from
// the playback goroutine when the device stops accepting frames.
func NewPlayer(hidPath string, cfg PlayerConfig, onReset func(), logger *slog.Logger) *Player {
	if onReset == nil {
		onReset = func() {}
	}
	return &Player{
		path:    hidPath,
		open:    openHidraw,
		cfg:     cfg,
		onReset: onReset,
		logger:  logger,
	}
}

func openHidraw(path string) (io.WriteCloser, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("open hidraw: %w (try running as root or add udev rule)", err)
	}
	return f, nil
}

func (p *Player) Start() error {
	if p.path == "" {
		return errors.New("no hidraw node for controller")
	}
	dev, err := p.open(p.path)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.dev = dev
	p.counter = 0
	p.mu.Unlock()
	p.logger.Debug("haptic player started", "path", p.path)
	return nil
}

func (p *Player) Stop() error {
	p.cancel()
	p.events = nil

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dev == nil {
		return nil
	}
	err := p.dev.Close()
	p.dev = nil
	return err
}

func (p *Player) SubmitEvent(ev haptics.Event) error {
	return p.SubmitPattern([]haptics.Event{ev})
}

// SubmitPattern mixes events into the playback in progress: what is left of
// the current batch is re-rendered together with the new events, so a
// transient rides on top of a running continuous event instead of ending it.
func (p *Player) SubmitPattern(events []haptics.Event) error {
	if len(Render(events, p.cfg.FrameInterval, p.cfg.TransientLength, p.cfg.MaxPattern)) == 0 {
		return nil
	}

	p.cancel()
	if !p.connected() {
		return errNotStarted
	}

	elapsed := time.Duration(p.played.Load()) * p.cfg.FrameInterval
	merged := append(carryOver(p.events, elapsed, p.cfg.TransientLength), events...)
	frames := Render(merged, p.cfg.FrameInterval, p.cfg.TransientLength, p.cfg.MaxPattern)

	p.events = merged
	p.played.Store(0)
	stop := make(chan struct{})
	done := make(chan struct{})
	p.stop, p.done = stop, done
	go p.play(frames, stop, done)
	return nil
}

// carryOver shifts events back by elapsed and keeps those still sounding or
// yet to start.
func carryOver(events []haptics.Event, elapsed, transientLen time.Duration) []haptics.Event {
	var rest []haptics.Event
	for _, e := range events {
		e.Time -= elapsed
		end := e.End()
		if e.Kind == haptics.Transient {
			end = e.Time + transientLen
		}
		if end > 0 {
			rest = append(rest, e)
		}
	}
	return rest
}

// Halt cancels playback and silences the actuators.
func (p *Player) Halt() error {
	p.cancel()
	p.events = nil
	if !p.connected() {
		return nil
	}
	return p.writeReport(nil)
}

func (p *Player) cancel() {
	if p.stop == nil {
		return
	}
	close(p.stop)
	<-p.done
	p.stop, p.done = nil, nil
}

func (p *Player) connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dev != nil
}

func (p *Player) play(frames []Frame, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.cfg.FrameInterval)
	defer ticker.Stop()

	for i := range frames {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		if err := p.writeReport(&frames[i]); err != nil {
			p.logger.Warn("haptic frame write failed", "frame", i, "error", err)
			p.onReset()
			return
		}
		p.played.Add(1)
	}

	select {
	case <-stop:
		return
	case <-ticker.C:
	}
	if err := p.writeReport(nil); err != nil {
		p.logger.Warn("haptic stop report failed", "error", err)
		p.onReset()
		return
	}
	p.logger.Debug("haptic playback finished", "frames", len(frames))
}

// writeReport sends report 0x02 carrying f for both actuators; a nil frame
// sends the stop report.
func (p *Player) writeReport(f *Frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.dev == nil {
		return errNotStarted
	}

	report := make([]byte, 64)
	report[0] = 0x02
	report[1] = 0x50
	if f != nil {
		report[1] |= p.counter & 0x0F
		copy(report[2:7], f[:])
		copy(report[18:23], f[:])
		p.counter = (p.counter + 1) & 0x0F
	}
	report[17] = report[1]

	n, err := p.dev.Write(report)
	if err != nil {
		return fmt.Errorf("write error: %w", err)
	}
	if n != len(report) {
		return fmt.Errorf("short write: %d/%d bytes", n, len(report))
	}
	return nil
}
