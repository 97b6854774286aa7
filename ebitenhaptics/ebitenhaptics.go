// Package ebitenhaptics plays haptics through ebiten: ebiten.Vibrate on
// phones for discrete feedback and ebiten.VibrateGamepad for parameterized
// events and patterns on a connected gamepad.
//
// Call Update from the game's Update so gamepad disconnects reach the
// façade as engine interruptions.
package ebitenhaptics

import (
	"errors"
	"log/slog"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"procon2-haptics/haptics"
)

// TransientLength is how long a transient event drives the motors
const TransientLength = 30 * time.Millisecond

var errNoGamepad = errors.New("no gamepad connected")

var styleMagnitude = map[haptics.ImpactStyle]float64{
	haptics.ImpactLight:  0.35,
	haptics.ImpactMedium: 0.6,
	haptics.ImpactHeavy:  1.0,
	haptics.ImpactSoft:   0.45,
	haptics.ImpactRigid:  0.85,
}

var styleDuration = map[haptics.ImpactStyle]time.Duration{
	haptics.ImpactLight:  20 * time.Millisecond,
	haptics.ImpactMedium: 30 * time.Millisecond,
	haptics.ImpactHeavy:  45 * time.Millisecond,
	haptics.ImpactSoft:   40 * time.Millisecond,
	haptics.ImpactRigid:  15 * time.Millisecond,
	haptics.ImpactCustom: 30 * time.Millisecond,
}

// Platform is the ebiten haptics.Platform.
type Platform struct {
	logger *slog.Logger
	mobile bool

	mu     sync.Mutex
	active *gamepadEngine
}

var _ haptics.Platform = (*Platform)(nil)

func New(logger *slog.Logger) *Platform {
	if logger == nil {
		logger = slog.Default()
	}
	return &Platform{
		logger: logger.With("backend", "ebiten"),
		mobile: runtime.GOOS == "android" || runtime.GOOS == "ios",
	}
}

func (p *Platform) Capabilities() haptics.Capabilities {
	pads := len(ebiten.AppendGamepadIDs(nil)) > 0
	return haptics.Capabilities{
		Basic: p.mobile || pads,
		Core:  pads,
	}
}

func (p *Platform) Generator() haptics.Generator {
	g := &generator{platform: p}
	g.out = g.pulse
	return g
}

func (p *Platform) NewEngine(onReset func()) (haptics.Engine, error) {
	e := &gamepadEngine{
		platform: p,
		onReset:  onReset,
		vibrate:  ebiten.VibrateGamepad,
		after: func(d time.Duration, f func()) stopper {
			return time.AfterFunc(d, f)
		},
	}
	return e, nil
}

// Update reports a disconnect of the engine's gamepad. Call once per tick.
func (p *Platform) Update() {
	p.mu.Lock()
	e := p.active
	p.mu.Unlock()
	if e == nil {
		return
	}
	if id, ok := e.gamepad(); ok && inpututil.IsGamepadJustDisconnected(id) {
		p.logger.Info("gamepad disconnected", "id", id)
		e.onReset()
	}
}

func (p *Platform) setActive(e *gamepadEngine) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = e
}

func (p *Platform) clearActive(e *gamepadEngine) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active == e {
		p.active = nil
	}
}

func firstGamepad() (ebiten.GamepadID, bool) {
	ids := ebiten.AppendGamepadIDs(nil)
	if len(ids) == 0 {
		return 0, false
	}
	return ids[0], true
}

// GamepadOptions splits an event across the two rumble motors: the strong
// motor carries the dull part, the weak motor the sharp part.
func GamepadOptions(e haptics.Event) *ebiten.VibrateGamepadOptions {
	d := TransientLength
	if e.Kind == haptics.Continuous {
		d = e.Duration
	}
	return &ebiten.VibrateGamepadOptions{
		Duration:        d,
		StrongMagnitude: e.Intensity * (1 - e.Sharpness),
		WeakMagnitude:   e.Intensity * e.Sharpness,
	}
}

// segment is one VibrateGamepad call of a rendered pattern
type segment struct {
	at    time.Duration
	opts  *ebiten.VibrateGamepadOptions
	event int
}

func eventEnd(e haptics.Event) time.Duration {
	if e.Kind == haptics.Continuous {
		return e.Time + e.Duration
	}
	return e.Time + TransientLength
}

// strongest returns the index of the loudest event sounding at t, or -1.
// Ties go to the earlier event.
func strongest(events []haptics.Event, t time.Duration) int {
	best := -1
	for i, e := range events {
		if t < e.Time || t >= eventEnd(e) || e.Intensity <= 0 {
			continue
		}
		if best < 0 || e.Intensity > events[best].Intensity {
			best = i
		}
	}
	return best
}

// segments renders events into back-to-back vibrations. A gamepad plays one
// vibration at a time, so wherever events overlap the strongest one drives
// the motors until the next event starts or ends.
func segments(events []haptics.Event) []segment {
	var points []time.Duration
	for _, e := range events {
		points = append(points, max(e.Time, 0), eventEnd(e))
	}
	slices.Sort(points)
	points = slices.Compact(points)

	var segs []segment
	for i := 0; i+1 < len(points); i++ {
		from, to := points[i], points[i+1]
		j := strongest(events, from)
		if j < 0 {
			continue
		}
		if n := len(segs); n > 0 && segs[n-1].event == j && segs[n-1].at+segs[n-1].opts.Duration == from {
			segs[n-1].opts.Duration += to - from
			continue
		}
		opts := GamepadOptions(events[j])
		opts.Duration = to - from
		segs = append(segs, segment{at: from, opts: opts, event: j})
	}
	return segs
}

var (
	successPulse   = cue{0.5, 40 * time.Millisecond}
	warningPulse   = cue{0.75, 80 * time.Millisecond}
	errorPulse     = cue{1.0, 120 * time.Millisecond}
	selectionPulse = cue{0.2, 10 * time.Millisecond}
)

// cue is a single vibration used for discrete feedback
type cue struct {
	magnitude float64
	length    time.Duration
}

func impactCue(style haptics.ImpactStyle, intensity float64) cue {
	mag, ok := styleMagnitude[style]
	if !ok {
		mag = intensity
	}
	return cue{mag, styleDuration[style]}
}

func notifyCue(kind haptics.NotificationKind) cue {
	switch kind {
	case haptics.NotifySuccess:
		return successPulse
	case haptics.NotifyWarning:
		return warningPulse
	default:
		return errorPulse
	}
}

type generator struct {
	platform *Platform
	out      func(magnitude float64, d time.Duration) error
}

var _ haptics.Timed = (*generator)(nil)

func (g *generator) Impact(style haptics.ImpactStyle, intensity float64) error {
	c := impactCue(style, intensity)
	return g.out(c.magnitude, c.length)
}

func (g *generator) Notify(kind haptics.NotificationKind) error {
	c := notifyCue(kind)
	return g.out(c.magnitude, c.length)
}

func (g *generator) Select() error {
	return g.out(selectionPulse.magnitude, selectionPulse.length)
}

func (g *generator) ImpactDuration(style haptics.ImpactStyle) time.Duration {
	return impactCue(style, 1).length
}

func (g *generator) NotifyDuration(kind haptics.NotificationKind) time.Duration {
	return notifyCue(kind).length
}

func (g *generator) SelectDuration() time.Duration {
	return selectionPulse.length
}

func (g *generator) pulse(magnitude float64, d time.Duration) error {
	if magnitude <= 0 {
		return nil
	}
	if g.platform.mobile {
		ebiten.Vibrate(&ebiten.VibrateOptions{Duration: d, Magnitude: magnitude})
		return nil
	}
	id, ok := firstGamepad()
	if !ok {
		return errNoGamepad
	}
	ebiten.VibrateGamepad(id, &ebiten.VibrateGamepadOptions{
		Duration:        d,
		StrongMagnitude: magnitude,
		WeakMagnitude:   magnitude,
	})
	return nil
}

type stopper interface {
	Stop() bool
}

// gamepadEngine schedules events on one gamepad with timers
type gamepadEngine struct {
	platform *Platform
	onReset  func()
	vibrate  func(ebiten.GamepadID, *ebiten.VibrateGamepadOptions)
	after    func(time.Duration, func()) stopper

	mu      sync.Mutex
	id      ebiten.GamepadID
	started bool
	timers  []stopper
}

func (e *gamepadEngine) gamepad() (ebiten.GamepadID, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.id, e.started
}

func (e *gamepadEngine) Start() error {
	id, ok := firstGamepad()
	if !ok {
		return errNoGamepad
	}
	e.mu.Lock()
	e.id, e.started = id, true
	e.mu.Unlock()
	e.platform.setActive(e)
	return nil
}

func (e *gamepadEngine) Stop() error {
	err := e.Halt()
	e.mu.Lock()
	e.started = false
	e.mu.Unlock()
	e.platform.clearActive(e)
	return err
}

func (e *gamepadEngine) SubmitEvent(ev haptics.Event) error {
	id, ok := e.gamepad()
	if !ok {
		return haptics.ErrInvalidated
	}
	e.vibrate(id, GamepadOptions(ev))
	return nil
}

// SubmitPattern replaces scheduled playback with events, one vibration per
// rendered segment.
func (e *gamepadEngine) SubmitPattern(events []haptics.Event) error {
	id, ok := e.gamepad()
	if !ok {
		return haptics.ErrInvalidated
	}
	e.cancelTimers()

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, seg := range segments(events) {
		if seg.at <= 0 {
			e.vibrate(id, seg.opts)
			continue
		}
		e.timers = append(e.timers, e.after(seg.at, func() {
			e.vibrate(id, seg.opts)
		}))
	}
	return nil
}

func (e *gamepadEngine) Halt() error {
	e.cancelTimers()
	id, ok := e.gamepad()
	if !ok {
		return nil
	}
	e.vibrate(id, &ebiten.VibrateGamepadOptions{Duration: time.Millisecond})
	return nil
}

func (e *gamepadEngine) cancelTimers() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, t := range e.timers {
		t.Stop()
	}
	e.timers = nil
}
