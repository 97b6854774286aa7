package ebitenhaptics

import (
	"testing"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procon2-haptics/haptics"
)

const ms = time.Millisecond

func TestGamepadOptions(t *testing.T) {
	tests := []struct {
		name   string
		event  haptics.Event
		strong float64
		weak   float64
		length time.Duration
	}{
		{"dull transient", haptics.Event{Kind: haptics.Transient, Intensity: 1, Sharpness: 0}, 1, 0, TransientLength},
		{"sharp transient", haptics.Event{Kind: haptics.Transient, Intensity: 0.8, Sharpness: 1}, 0, 0.8, TransientLength},
		{"continuous", haptics.Event{Kind: haptics.Continuous, Intensity: 0.5, Sharpness: 0.5, Duration: 300 * ms}, 0.25, 0.25, 300 * ms},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := GamepadOptions(tt.event)
			assert.InDelta(t, tt.strong, opts.StrongMagnitude, 1e-9)
			assert.InDelta(t, tt.weak, opts.WeakMagnitude, 1e-9)
			assert.Equal(t, tt.length, opts.Duration)
		})
	}
}

func TestSegments_StrongestWins(t *testing.T) {
	events := []haptics.Event{
		{Kind: haptics.Continuous, Time: 0, Intensity: 0.3, Sharpness: 0.2, Duration: 200 * ms},
		{Kind: haptics.Transient, Time: 0, Intensity: 0.2, Sharpness: 0.2},
		{Kind: haptics.Transient, Time: 100 * ms, Intensity: 1, Sharpness: 0.6},
	}

	segs := segments(events)
	require.Len(t, segs, 3)

	assert.Equal(t, time.Duration(0), segs[0].at)
	assert.Equal(t, 100*ms, segs[0].opts.Duration, "weaker transient stays under the continuous event")
	assert.Equal(t, 0, segs[0].event)

	assert.Equal(t, 100*ms, segs[1].at)
	assert.Equal(t, TransientLength, segs[1].opts.Duration)
	assert.InDelta(t, 0.6, segs[1].opts.WeakMagnitude, 1e-9)

	assert.Equal(t, 100*ms+TransientLength, segs[2].at)
	assert.Equal(t, 100*ms-TransientLength, segs[2].opts.Duration, "continuous event resumes after the transient")
	assert.Equal(t, 0, segs[2].event)
}

func TestSegments_RampUpKeepsSustain(t *testing.T) {
	p, ok := haptics.PatternByName("ramp_up")
	require.True(t, ok)

	segs := segments(p.Events)
	require.Len(t, segs, 9)

	var total time.Duration
	for i, s := range segs {
		if i > 0 {
			prev := segs[i-1]
			assert.Equal(t, prev.at+prev.opts.Duration, s.at, "segments are contiguous")
		}
		total += s.opts.Duration
	}
	assert.Equal(t, p.Duration(), total)
}

func TestSegments_GapsAndSilence(t *testing.T) {
	events := []haptics.Event{
		{Kind: haptics.Transient, Time: 0, Intensity: 1},
		{Kind: haptics.Transient, Time: 20 * ms, Intensity: 0},
		{Kind: haptics.Transient, Time: 200 * ms, Intensity: 0.5},
	}

	segs := segments(events)
	require.Len(t, segs, 2)
	assert.Equal(t, time.Duration(0), segs[0].at)
	assert.Equal(t, 200*ms, segs[1].at)

	assert.Empty(t, segments(nil))
}

func TestImpactCue(t *testing.T) {
	assert.Equal(t, cue{1.0, 45 * ms}, impactCue(haptics.ImpactHeavy, 0.1), "preset styles ignore intensity")
	assert.Equal(t, cue{0.35, 20 * ms}, impactCue(haptics.ImpactLight, 1))
	assert.Equal(t, cue{0.6, 30 * ms}, impactCue(haptics.ImpactCustom, 0.6))
}

func TestNotifyCue(t *testing.T) {
	assert.Equal(t, successPulse, notifyCue(haptics.NotifySuccess))
	assert.Equal(t, warningPulse, notifyCue(haptics.NotifyWarning))
	assert.Equal(t, errorPulse, notifyCue(haptics.NotifyError))
	assert.Greater(t, errorPulse.magnitude, warningPulse.magnitude)
	assert.Greater(t, warningPulse.magnitude, successPulse.magnitude)
}

type recordedPulse struct {
	magnitude float64
	length    time.Duration
}

func newTestGenerator(out *[]recordedPulse) *generator {
	return &generator{out: func(m float64, d time.Duration) error {
		*out = append(*out, recordedPulse{m, d})
		return nil
	}}
}

func TestGenerator_Routing(t *testing.T) {
	var out []recordedPulse
	g := newTestGenerator(&out)

	require.NoError(t, g.Impact(haptics.ImpactRigid, 0))
	require.NoError(t, g.Notify(haptics.NotifyWarning))
	require.NoError(t, g.Select())

	assert.Equal(t, []recordedPulse{
		{0.85, 15 * ms},
		{0.75, 80 * ms},
		{0.2, 10 * ms},
	}, out)

	assert.Equal(t, 120*ms, g.NotifyDuration(haptics.NotifyError))
	assert.Equal(t, 15*ms, g.ImpactDuration(haptics.ImpactRigid))
	assert.Equal(t, 10*ms, g.SelectDuration())
}

func TestGenerator_MobilePulseWithoutMagnitude(t *testing.T) {
	g := &generator{platform: &Platform{mobile: true}}
	assert.NoError(t, g.pulse(0, 10*ms))
}

type fakeTimer struct {
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type vibration struct {
	id   ebiten.GamepadID
	opts ebiten.VibrateGamepadOptions
}

func newTestEngine(calls *[]vibration, timers *[]*fakeTimer, delays *[]time.Duration) *gamepadEngine {
	return &gamepadEngine{
		platform: New(nil),
		onReset:  func() {},
		vibrate: func(id ebiten.GamepadID, o *ebiten.VibrateGamepadOptions) {
			*calls = append(*calls, vibration{id, *o})
		},
		after: func(d time.Duration, f func()) stopper {
			*delays = append(*delays, d)
			ft := &fakeTimer{f: f}
			*timers = append(*timers, ft)
			return ft
		},
		id:      3,
		started: true,
	}
}

func TestEngine_SubmitPatternSchedulesSegments(t *testing.T) {
	var calls []vibration
	var timers []*fakeTimer
	var delays []time.Duration
	e := newTestEngine(&calls, &timers, &delays)

	events := []haptics.Event{
		{Kind: haptics.Continuous, Time: 0, Intensity: 0.3, Duration: 200 * ms},
		{Kind: haptics.Transient, Time: 100 * ms, Intensity: 1},
	}
	require.NoError(t, e.SubmitPattern(events))

	require.Len(t, calls, 1, "first segment plays immediately")
	assert.Equal(t, ebiten.GamepadID(3), calls[0].id)
	assert.Equal(t, 100*ms, calls[0].opts.Duration)
	assert.Equal(t, []time.Duration{100 * ms, 100*ms + TransientLength}, delays)

	for _, ft := range timers {
		ft.f()
	}
	require.Len(t, calls, 3)
	assert.InDelta(t, 1.0, calls[1].opts.StrongMagnitude, 1e-9)
	assert.InDelta(t, 0.3, calls[2].opts.StrongMagnitude, 1e-9)
}

func TestEngine_NewPatternCancelsScheduled(t *testing.T) {
	var calls []vibration
	var timers []*fakeTimer
	var delays []time.Duration
	e := newTestEngine(&calls, &timers, &delays)

	require.NoError(t, e.SubmitPattern([]haptics.Event{
		{Kind: haptics.Transient, Time: 50 * ms, Intensity: 1},
		{Kind: haptics.Transient, Time: 150 * ms, Intensity: 1},
	}))
	require.Len(t, timers, 2)

	require.NoError(t, e.SubmitPattern([]haptics.Event{{Kind: haptics.Transient, Intensity: 0.5}}))
	assert.True(t, timers[0].stopped)
	assert.True(t, timers[1].stopped)
	assert.Empty(t, e.timers)
}

func TestEngine_HaltCancelsAndSilences(t *testing.T) {
	var calls []vibration
	var timers []*fakeTimer
	var delays []time.Duration
	e := newTestEngine(&calls, &timers, &delays)

	require.NoError(t, e.SubmitPattern([]haptics.Event{{Kind: haptics.Transient, Time: 80 * ms, Intensity: 1}}))
	require.NoError(t, e.Halt())

	require.Len(t, timers, 1)
	assert.True(t, timers[0].stopped)
	require.Len(t, calls, 1)
	assert.Zero(t, calls[0].opts.StrongMagnitude)
	assert.Zero(t, calls[0].opts.WeakMagnitude)
}

func TestEngine_NotStarted(t *testing.T) {
	var calls []vibration
	var timers []*fakeTimer
	var delays []time.Duration
	e := newTestEngine(&calls, &timers, &delays)
	e.started = false

	assert.ErrorIs(t, e.SubmitEvent(haptics.Event{Intensity: 1}), haptics.ErrInvalidated)
	assert.ErrorIs(t, e.SubmitPattern([]haptics.Event{{Intensity: 1}}), haptics.ErrInvalidated)
	assert.NoError(t, e.Halt())
	assert.Empty(t, calls)
}
