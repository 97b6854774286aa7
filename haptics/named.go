package haptics

import (
	"fmt"
	"slices"
	"time"
)

// Fixed parameters used when feedback is requested by name
const (
	namedTransientIntensity  = 0.8
	namedTransientSharpness  = 0.6
	namedContinuousIntensity = 0.6
	namedContinuousSharpness = 0.4
	namedContinuousDuration  = 400 * time.Millisecond
)

var discreteNames = []string{
	"light", "medium", "heavy", "soft", "rigid",
	"success", "warning", "error", "selection",
	"transient", "continuous", "stop",
}

// FeedbackNames lists every name PlayNamed accepts
func FeedbackNames() []string {
	return append(slices.Clone(discreteNames), PatternNames()...)
}

// IsFeedbackName reports whether PlayNamed accepts name
func IsFeedbackName(name string) bool {
	return slices.Contains(FeedbackNames(), name)
}

// PlayNamed plays feedback by name, for hosts that bind methods by string.
// It returns how long the feedback lasts, or 0 when the backend cannot
// tell.
func (h *Haptics) PlayNamed(name string) (time.Duration, error) {
	impact := func(style ImpactStyle) time.Duration {
		return h.cueDuration(func(t Timed) time.Duration { return t.ImpactDuration(style) })
	}
	notify := func(kind NotificationKind) time.Duration {
		return h.cueDuration(func(t Timed) time.Duration { return t.NotifyDuration(kind) })
	}

	switch name {
	case "light":
		h.Light()
		return impact(ImpactLight), nil
	case "medium":
		h.Medium()
		return impact(ImpactMedium), nil
	case "heavy":
		h.Heavy()
		return impact(ImpactHeavy), nil
	case "soft":
		h.Soft()
		return impact(ImpactSoft), nil
	case "rigid":
		h.Rigid()
		return impact(ImpactRigid), nil
	case "success":
		h.Success()
		return notify(NotifySuccess), nil
	case "warning":
		h.Warning()
		return notify(NotifyWarning), nil
	case "error":
		h.Error()
		return notify(NotifyError), nil
	case "selection":
		h.Selection()
		return h.cueDuration(Timed.SelectDuration), nil
	case "transient":
		h.Transient(namedTransientIntensity, namedTransientSharpness)
		return impact(ImpactCustom), nil
	case "continuous":
		err := h.Continuous(namedContinuousIntensity, namedContinuousSharpness, namedContinuousDuration)
		return namedContinuousDuration, err
	case "stop":
		h.Stop()
		return 0, nil
	}

	p, ok := PatternByName(name)
	if !ok {
		return 0, fmt.Errorf("unknown feedback %q", name)
	}
	return p.Duration(), h.Play(p)
}

// cueDuration asks the lightweight generator how long a cue plays.
func (h *Haptics) cueDuration(f func(Timed) time.Duration) time.Duration {
	if !h.basicAvailable() {
		return 0
	}
	t, ok := h.generator.(Timed)
	if !ok {
		return 0
	}
	return f(t)
}
