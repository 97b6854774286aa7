package haptics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatternHeartbeat_Engine(t *testing.T) {
	p := newFakePlatform(true, true)
	h := newTestHaptics(p)

	h.PatternHeartbeat()

	require.Len(t, p.engines, 1)
	eng := p.last()
	require.Len(t, eng.patterns, 1)
	assert.Equal(t, heartbeat.Events, eng.patterns[0])
	assert.Empty(t, eng.events, "one batch, no per-event submits")
	assert.False(t, h.continuousActive)
}

func TestPatterns_OneEnginePerPattern(t *testing.T) {
	p := newFakePlatform(true, true)
	h := newTestHaptics(p)

	h.PatternHeartbeat()
	h.PatternDoubleTap()
	h.PatternRampUp()

	assert.Len(t, p.engines, 1)
	assert.Len(t, p.last().patterns, 3)
	assert.True(t, h.continuousActive, "ramp up sustains output")
}

func TestPatternHeartbeat_FallbackWithoutCore(t *testing.T) {
	p := newFakePlatform(true, false)
	h := newTestHaptics(p)

	h.PatternHeartbeat()

	assert.Empty(t, p.engines, "engine construction never attempted")
	assert.Equal(t, []string{"impact:medium:0.70", "impact:medium:0.70"}, p.gen.Calls())
}

func TestPatternFallback_SchedulesLaterSteps(t *testing.T) {
	p := newFakePlatform(true, false)
	var delays []time.Duration
	var pending []func()
	h := New(p, WithLogger(newTestHaptics(p).logger), WithAfterFunc(func(d time.Duration, f func()) {
		delays = append(delays, d)
		pending = append(pending, f)
	}))

	h.PatternRampUp()

	assert.Equal(t, []string{"impact:light:0.40"}, p.gen.Calls(), "first step plays inline")
	assert.Equal(t, []time.Duration{100 * ms, 200 * ms, 300 * ms}, delays)

	for _, f := range pending {
		f()
	}
	assert.Equal(t, []string{
		"impact:light:0.40",
		"impact:soft:0.50",
		"impact:medium:0.70",
		"impact:heavy:1.00",
	}, p.gen.Calls())
}

func TestPatternFallback_SkippedAfterShutdown(t *testing.T) {
	p := newFakePlatform(true, false)
	var pending []func()
	h := New(p, WithLogger(newTestHaptics(p).logger), WithAfterFunc(func(_ time.Duration, f func()) {
		pending = append(pending, f)
	}))

	h.PatternDoubleTap()
	h.Shutdown()
	for _, f := range pending {
		f()
	}
	assert.Equal(t, []string{"impact:rigid:0.90"}, p.gen.Calls())
}

func TestPatternFallback_OnSubmitFailure(t *testing.T) {
	p := newFakePlatform(true, true)
	h := newTestHaptics(p)
	h.Prepare()
	p.last().submitErr = errBoom

	h.PatternDoubleTap()

	assert.Equal(t, []string{"impact:rigid:0.90", "impact:rigid:0.90"}, p.gen.Calls())
	assert.False(t, h.continuousActive)
}

func TestPlay_ClampsAndValidates(t *testing.T) {
	p := newFakePlatform(true, true)
	h := newTestHaptics(p)

	err := h.Play(Pattern{Name: "bad", Events: []Event{{Kind: Continuous}}})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, p.engines)

	err = h.Play(Pattern{Name: "early", Events: []Event{{Kind: Transient, Time: -ms}}})
	assert.ErrorIs(t, err, ErrValidation)

	require.NoError(t, h.Play(Pattern{Name: "loud", Events: []Event{{Kind: Transient, Intensity: 3, Sharpness: -1}}}))
	assert.Equal(t, []Event{{Kind: Transient, Intensity: 1}}, p.last().patterns[0])
}

func TestPatternByName(t *testing.T) {
	assert.Equal(t, []string{"heartbeat", "double_tap", "ramp_up"}, PatternNames())

	got, ok := PatternByName("ramp_up")
	require.True(t, ok)
	assert.Equal(t, 500*ms, got.Duration())

	got.Events[0].Intensity = 0
	assert.Equal(t, 0.3, rampUp.Events[0].Intensity, "built-ins are never mutated")

	_, ok = PatternByName("nope")
	assert.False(t, ok)
}

func TestBuiltinPatternsValid(t *testing.T) {
	for _, p := range builtinPatterns {
		assert.NoError(t, p.Validate(), p.Name)
		assert.NotEmpty(t, p.Fallback, p.Name)
		assert.Equal(t, time.Duration(0), p.Fallback[0].At, p.Name)
	}
}
