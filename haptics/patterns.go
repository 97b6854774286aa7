package haptics

import (
	"slices"
	"time"
)

// FallbackStep is one discrete impact of a pattern's degraded rendition
type FallbackStep struct {
	At    time.Duration
	Style ImpactStyle
}

// Pattern is a named sequence of timed events
type Pattern struct {
	Name     string
	Events   []Event
	Fallback []FallbackStep
}

func (p Pattern) clone() Pattern {
	p.Events = slices.Clone(p.Events)
	p.Fallback = slices.Clone(p.Fallback)
	return p
}

// hasContinuous reports whether any event sustains output
func (p Pattern) hasContinuous() bool {
	return slices.ContainsFunc(p.Events, func(e Event) bool { return e.Kind == Continuous })
}

// Validate rejects continuous events without a positive duration and
// events scheduled before the pattern start.
func (p Pattern) Validate() error {
	for _, e := range p.Events {
		if e.Time < 0 {
			return &ValidationError{Field: "time", Value: e.Time.Seconds()}
		}
		if e.Kind == Continuous && e.Duration <= 0 {
			return &ValidationError{Field: "duration", Value: e.Duration.Seconds()}
		}
	}
	return nil
}

// Duration is the offset at which the last event ends
func (p Pattern) Duration() time.Duration {
	var end time.Duration
	for _, e := range p.Events {
		end = max(end, e.End())
	}
	return end
}

const ms = time.Millisecond

var heartbeat = Pattern{
	Name: "heartbeat",
	Events: []Event{
		{Kind: Transient, Time: 0, Intensity: 1.0, Sharpness: 0.5},
		{Kind: Transient, Time: 150 * ms, Intensity: 0.7, Sharpness: 0.3},
	},
	Fallback: []FallbackStep{
		{At: 0, Style: ImpactMedium},
		{At: 150 * ms, Style: ImpactMedium},
	},
}

var doubleTap = Pattern{
	Name: "double_tap",
	Events: []Event{
		{Kind: Transient, Time: 0, Intensity: 1.0, Sharpness: 0.8},
		{Kind: Transient, Time: 100 * ms, Intensity: 1.0, Sharpness: 0.8},
	},
	Fallback: []FallbackStep{
		{At: 0, Style: ImpactRigid},
		{At: 100 * ms, Style: ImpactRigid},
	},
}

var rampUp = Pattern{
	Name: "ramp_up",
	Events: []Event{
		{Kind: Continuous, Time: 0, Intensity: 0.3, Sharpness: 0.2, Duration: 500 * ms},
		{Kind: Transient, Time: 0, Intensity: 0.2, Sharpness: 0.2},
		{Kind: Transient, Time: 100 * ms, Intensity: 0.4, Sharpness: 0.3},
		{Kind: Transient, Time: 200 * ms, Intensity: 0.6, Sharpness: 0.4},
		{Kind: Transient, Time: 300 * ms, Intensity: 0.8, Sharpness: 0.5},
		{Kind: Transient, Time: 400 * ms, Intensity: 1.0, Sharpness: 0.6},
	},
	Fallback: []FallbackStep{
		{At: 0, Style: ImpactLight},
		{At: 100 * ms, Style: ImpactSoft},
		{At: 200 * ms, Style: ImpactMedium},
		{At: 300 * ms, Style: ImpactHeavy},
	},
}

var builtinPatterns = []Pattern{heartbeat, doubleTap, rampUp}

// PatternNames lists the built-in presets
func PatternNames() []string {
	names := make([]string, 0, len(builtinPatterns))
	for _, p := range builtinPatterns {
		names = append(names, p.Name)
	}
	return names
}

// PatternByName returns a copy of a built-in preset
func PatternByName(name string) (Pattern, bool) {
	for _, p := range builtinPatterns {
		if p.Name == name {
			return p.clone(), true
		}
	}
	return Pattern{}, false
}

func (h *Haptics) PatternHeartbeat() { _ = h.Play(heartbeat) }
func (h *Haptics) PatternDoubleTap() { _ = h.Play(doubleTap) }
func (h *Haptics) PatternRampUp()    { _ = h.Play(rampUp) }

// Play submits all events of p as one batch. Without an engine the
// pattern's fallback impacts are played instead. Only an invalid pattern
// is reported.
func (h *Haptics) Play(p Pattern) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := h.ensureReady(); err != nil {
		h.playFallback(p, err)
		return nil
	}

	events := make([]Event, len(p.Events))
	for i, e := range p.Events {
		e.Intensity = clamp01(e.Intensity)
		e.Sharpness = clamp01(e.Sharpness)
		events[i] = e
	}
	if err := h.engine.SubmitPattern(events); err != nil {
		h.logger.Warn("pattern submission failed", "pattern", p.Name, "error", err)
		h.playFallback(p, err)
		return nil
	}
	if p.hasContinuous() {
		h.continuousActive = true
	}
	return nil
}

func (h *Haptics) playFallback(p Pattern, cause error) {
	if !h.basicAvailable() {
		return
	}
	h.logger.Debug("playing pattern fallback", "pattern", p.Name, "cause", cause)
	for _, step := range p.Fallback {
		style := step.Style
		if step.At <= 0 {
			h.playImpact(style, styleIntensity[style])
			continue
		}
		h.afterFunc(step.At, func() {
			h.playImpact(style, styleIntensity[style])
		})
	}
}
