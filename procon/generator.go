package procon

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"procon2-haptics/haptics"
)

var errGeneratorClosed = errors.New("rumble generator closed")

// drainTimeout bounds how long Close lets scheduled pulses finish
const drainTimeout = 500 * time.Millisecond

type rumbler interface {
	SendRumble(left, right Band) error
}

// stopper is the part of *time.Timer the generator needs
type stopper interface {
	Stop() bool
}

// pulse is one burst on the bulk rumble path
type pulse struct {
	at     time.Duration
	length time.Duration
	amp    float64
	sharp  float64
}

const ms = time.Millisecond

var impactPulses = map[haptics.ImpactStyle]pulse{
	haptics.ImpactLight:  {length: 20 * ms, amp: 0.4, sharp: 0.6},
	haptics.ImpactMedium: {length: 30 * ms, amp: 0.7, sharp: 0.5},
	haptics.ImpactHeavy:  {length: 45 * ms, amp: 1.0, sharp: 0.3},
	haptics.ImpactSoft:   {length: 40 * ms, amp: 0.5, sharp: 0.1},
	haptics.ImpactRigid:  {length: 15 * ms, amp: 0.9, sharp: 0.9},
	haptics.ImpactCustom: {length: 30 * ms, sharp: 0.5},
}

var notifyPulses = map[haptics.NotificationKind][]pulse{
	haptics.NotifySuccess: {
		{at: 0, length: 20 * ms, amp: 0.5, sharp: 0.7},
		{at: 80 * ms, length: 25 * ms, amp: 0.7, sharp: 0.7},
	},
	haptics.NotifyWarning: {
		{at: 0, length: 30 * ms, amp: 0.7, sharp: 0.5},
		{at: 120 * ms, length: 30 * ms, amp: 0.7, sharp: 0.5},
	},
	haptics.NotifyError: {
		{at: 0, length: 40 * ms, amp: 1.0, sharp: 0.3},
		{at: 90 * ms, length: 40 * ms, amp: 1.0, sharp: 0.3},
		{at: 180 * ms, length: 40 * ms, amp: 1.0, sharp: 0.3},
	},
}

var selectionPulse = pulse{length: 10 * ms, amp: 0.25, sharp: 1.0}

// span is how long a pulse train keeps the motors busy
func span(pulses []pulse) time.Duration {
	var d time.Duration
	for _, p := range pulses {
		d = max(d, p.at+p.length)
	}
	return d
}

// Generator plays short pre-tuned bursts over the USB bulk endpoint,
// without the hidraw player. Delayed pulses and releases run on timers
// that Close lets finish, then cancels.
type Generator struct {
	dev    rumbler
	after  func(time.Duration, func()) stopper
	drain  time.Duration
	logger *slog.Logger

	mu      sync.Mutex
	timers  map[uint64]stopper
	nextID  uint64
	idle    chan struct{}
	closing bool

	// wmu serializes writes with Close so nothing reaches the device
	// once Close returns.
	wmu    sync.Mutex
	closed bool
}

var (
	_ haptics.Generator = (*Generator)(nil)
	_ haptics.Timed     = (*Generator)(nil)
)

func newGenerator(dev rumbler, logger *slog.Logger) *Generator {
	return &Generator{
		dev: dev,
		after: func(d time.Duration, f func()) stopper {
			return time.AfterFunc(d, f)
		},
		drain:  drainTimeout,
		logger: logger,
		timers: make(map[uint64]stopper),
	}
}

func impactPulse(style haptics.ImpactStyle, intensity float64) pulse {
	p, ok := impactPulses[style]
	if !ok || style == haptics.ImpactCustom {
		p = impactPulses[haptics.ImpactCustom]
		p.amp = intensity
	}
	return p
}

func (g *Generator) Impact(style haptics.ImpactStyle, intensity float64) error {
	return g.play([]pulse{impactPulse(style, intensity)})
}

func (g *Generator) Notify(kind haptics.NotificationKind) error {
	return g.play(notifyPulses[kind])
}

func (g *Generator) Select() error {
	return g.play([]pulse{selectionPulse})
}

func (g *Generator) ImpactDuration(style haptics.ImpactStyle) time.Duration {
	return span([]pulse{impactPulse(style, 1)})
}

func (g *Generator) NotifyDuration(kind haptics.NotificationKind) time.Duration {
	return span(notifyPulses[kind])
}

func (g *Generator) SelectDuration() time.Duration {
	return span([]pulse{selectionPulse})
}

// play fires the first pulse inline and schedules the rest.
func (g *Generator) play(pulses []pulse) error {
	for _, p := range pulses {
		if p.at <= 0 {
			if err := g.fire(p); err != nil {
				return err
			}
			continue
		}
		g.schedule(p.at, func() {
			if err := g.fire(p); err != nil {
				g.logger.Debug("delayed rumble pulse failed", "error", err)
			}
		})
	}
	return nil
}

func (g *Generator) fire(p pulse) error {
	if p.amp <= 0 {
		return nil
	}
	hi, lo := sharpnessFreqs(p.sharp)
	band := EncodeBand(hi, lo, p.amp)
	if err := g.send(band); err != nil {
		return err
	}
	g.schedule(p.length, func() {
		if err := g.send(neutralBand); err != nil {
			g.logger.Debug("rumble release failed", "error", err)
		}
	})
	return nil
}

func (g *Generator) send(b Band) error {
	g.wmu.Lock()
	defer g.wmu.Unlock()
	if g.closed {
		return errGeneratorClosed
	}
	return g.dev.SendRumble(b, b)
}

// schedule runs f after d unless the generator is closed first. The timer
// is registered before it is armed, so an after that fires synchronously
// still balances the pending count.
func (g *Generator) schedule(d time.Duration, f func()) {
	g.mu.Lock()
	if g.closing {
		g.mu.Unlock()
		return
	}
	id := g.nextID
	g.nextID++
	g.timers[id] = nil
	g.mu.Unlock()

	t := g.after(d, func() {
		f()
		g.finish(id)
	})

	g.mu.Lock()
	if _, pending := g.timers[id]; pending {
		g.timers[id] = t
	}
	g.mu.Unlock()
}

func (g *Generator) finish(id uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.timers, id)
	if len(g.timers) == 0 && g.idle != nil {
		close(g.idle)
		g.idle = nil
	}
}

// Close waits up to the drain timeout for scheduled pulses, cancels what is
// left and silences the motors. No write reaches the device afterwards.
func (g *Generator) Close() error {
	g.mu.Lock()
	var idle chan struct{}
	if len(g.timers) > 0 && g.idle == nil {
		g.idle = make(chan struct{})
	}
	idle = g.idle
	g.mu.Unlock()

	if idle != nil {
		select {
		case <-idle:
		case <-time.After(g.drain):
			g.logger.Debug("rumble pulses still pending at close")
		}
	}

	g.mu.Lock()
	g.closing = true
	for id, t := range g.timers {
		if t != nil {
			t.Stop()
		}
		delete(g.timers, id)
	}
	g.idle = nil
	g.mu.Unlock()

	g.wmu.Lock()
	defer g.wmu.Unlock()
	if g.closed {
		return nil
	}
	g.closed = true
	return g.dev.SendRumble(neutralBand, neutralBand)
}
