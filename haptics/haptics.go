// Package haptics is a tactile feedback façade over a native haptic subsystem.
//
// A Haptics value owns at most one engine, created lazily the first time a
// parameterized event or pattern is requested, recreated after interruptions
// and released by Shutdown. Discrete impacts, notifications and selection
// ticks use the lighter Generator path and never touch the engine.
//
// Feedback is best effort: apart from argument validation in Continuous, no
// method reports failure. When the parameterized engine is missing, requests
// degrade to the closest discrete impact instead of doing nothing.
//
// All methods except Invalidate must be called from a single goroutine.
package haptics

import (
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// Nominal strengths handed to generators for the pre-tuned styles
var styleIntensity = map[ImpactStyle]float64{
	ImpactLight:  0.4,
	ImpactMedium: 0.7,
	ImpactHeavy:  1.0,
	ImpactSoft:   0.5,
	ImpactRigid:  0.9,
}

// Haptics is the feedback façade. Create it with New.
type Haptics struct {
	platform  Platform
	logger    *slog.Logger
	afterFunc func(time.Duration, func())

	capsOnce  sync.Once
	caps      Capabilities
	generator Generator

	engine           Engine
	state            engineState
	generation       uint64
	resets           chan uint64
	continuousActive bool
	closed           atomic.Bool
}

// Option configures a Haptics instance
type Option func(*Haptics)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(h *Haptics) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithAfterFunc replaces the scheduler used for delayed fallback steps.
func WithAfterFunc(f func(time.Duration, func())) Option {
	return func(h *Haptics) {
		if f != nil {
			h.afterFunc = f
		}
	}
}

// New returns a façade bound to platform. Nothing is queried or started yet.
func New(platform Platform, opts ...Option) *Haptics {
	h := &Haptics{
		platform: platform,
		logger:   slog.Default(),
		afterFunc: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
		resets: make(chan uint64, 1),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With("component", "haptics")
	return h
}

// Capabilities returns the cached capability snapshot.
func (h *Haptics) Capabilities() Capabilities {
	h.capsOnce.Do(func() {
		h.caps = h.platform.Capabilities()
		if h.caps.Basic {
			h.generator = h.platform.Generator()
		}
		h.logger.Info("haptic capabilities", "basic", h.caps.Basic, "core", h.caps.Core)
	})
	return h.caps
}

// IsSupported reports whether any haptic feedback is available.
func (h *Haptics) IsSupported() bool {
	return h.Capabilities().Basic
}

// IsCoreHapticsSupported reports whether parameterized events and patterns
// can be played natively.
func (h *Haptics) IsCoreHapticsSupported() bool {
	return h.Capabilities().Core
}

func (h *Haptics) Light()  { h.styledImpact(ImpactLight) }
func (h *Haptics) Medium() { h.styledImpact(ImpactMedium) }
func (h *Haptics) Heavy()  { h.styledImpact(ImpactHeavy) }
func (h *Haptics) Soft()   { h.styledImpact(ImpactSoft) }
func (h *Haptics) Rigid()  { h.styledImpact(ImpactRigid) }

// Impact plays a discrete bump at a custom intensity in [0,1].
func (h *Haptics) Impact(intensity float64) {
	h.drain()
	h.playImpact(ImpactCustom, clamp01(intensity))
}

func (h *Haptics) Success() { h.notify(NotifySuccess) }
func (h *Haptics) Warning() { h.notify(NotifyWarning) }
func (h *Haptics) Error()   { h.notify(NotifyError) }

// Selection plays the minimal selection-changed tick.
func (h *Haptics) Selection() {
	h.drain()
	if !h.basicAvailable() {
		return
	}
	if err := h.generator.Select(); err != nil {
		h.logger.Debug("selection feedback failed", "error", err)
	}
}

// Transient plays one instantaneous parameterized pulse.
func (h *Haptics) Transient(intensity, sharpness float64) {
	ev := Event{
		Kind:      Transient,
		Intensity: clamp01(intensity),
		Sharpness: clamp01(sharpness),
	}
	if err := h.ensureReady(); err != nil {
		h.degrade("transient", err, ev.Intensity)
		return
	}
	if err := h.engine.SubmitEvent(ev); err != nil {
		h.logger.Warn("transient submission failed", "error", err)
		h.degrade("transient", err, ev.Intensity)
	}
}

// Continuous plays a sustained vibration for duration. A non-positive
// duration is rejected with a *ValidationError before anything is played.
func (h *Haptics) Continuous(intensity, sharpness float64, duration time.Duration) error {
	if duration <= 0 {
		return &ValidationError{Field: "duration", Value: duration.Seconds()}
	}
	ev := Event{
		Kind:      Continuous,
		Intensity: clamp01(intensity),
		Sharpness: clamp01(sharpness),
		Duration:  duration,
	}
	if err := h.ensureReady(); err != nil {
		h.degrade("continuous", err, ev.Intensity)
		return nil
	}
	if err := h.engine.SubmitEvent(ev); err != nil {
		h.logger.Warn("continuous submission failed", "error", err)
		h.degrade("continuous", err, ev.Intensity)
		return nil
	}
	h.continuousActive = true
	return nil
}

// Prepare creates the engine ahead of the first parameterized request.
// Failures are logged only.
func (h *Haptics) Prepare() {
	if err := h.ensureReady(); err != nil {
		h.logger.Debug("prepare skipped", "error", err)
	}
}

// Stop silences in-flight continuous playback. The engine stays alive and
// the lightweight generators are not affected.
func (h *Haptics) Stop() {
	h.drain()
	if !h.continuousActive {
		return
	}
	h.continuousActive = false
	if h.engine == nil || h.state != stateReady {
		return
	}
	if err := h.engine.Halt(); err != nil {
		h.logger.Debug("halting playback failed", "error", err)
	}
}

func (h *Haptics) styledImpact(style ImpactStyle) {
	h.drain()
	h.playImpact(style, styleIntensity[style])
}

func (h *Haptics) notify(kind NotificationKind) {
	h.drain()
	if !h.basicAvailable() {
		return
	}
	if err := h.generator.Notify(kind); err != nil {
		h.logger.Debug("notification feedback failed", "kind", kind, "error", err)
	}
}

// playImpact may run on a timer goroutine during pattern fallback.
func (h *Haptics) playImpact(style ImpactStyle, intensity float64) {
	if !h.basicAvailable() {
		return
	}
	if err := h.generator.Impact(style, intensity); err != nil {
		h.logger.Debug("impact feedback failed", "style", style, "error", err)
	}
}

func (h *Haptics) basicAvailable() bool {
	return !h.closed.Load() && h.Capabilities().Basic
}

// degrade substitutes a discrete impact for a parameterized event.
func (h *Haptics) degrade(op string, cause error, intensity float64) {
	h.logger.Debug("degrading to impact", "op", op, "cause", cause)
	h.playImpact(ImpactCustom, intensity)
}

// clamp01 limits v to [0,1]; NaN becomes 0.
func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
