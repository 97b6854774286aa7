package haptics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedbackNames(t *testing.T) {
	names := FeedbackNames()
	assert.Contains(t, names, "selection")
	assert.Contains(t, names, "ramp_up")
	assert.True(t, IsFeedbackName("double_tap"))
	assert.False(t, IsFeedbackName("buzz"))
}

func TestPlayNamed_AllNames(t *testing.T) {
	for _, name := range FeedbackNames() {
		p := newFakePlatform(true, true)
		h := newTestHaptics(p)
		_, err := h.PlayNamed(name)
		assert.NoError(t, err, name)
	}
}

func TestPlayNamed_Degrades(t *testing.T) {
	p := newFakePlatform(true, false)
	h := newTestHaptics(p)

	d, err := h.PlayNamed("heartbeat")
	require.NoError(t, err)
	assert.Equal(t, 150*time.Millisecond, d)

	_, err = h.PlayNamed("error")
	require.NoError(t, err)
	_, err = h.PlayNamed("transient")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"impact:medium:0.70",
		"impact:medium:0.70",
		"notify:error",
		"impact:custom:0.80",
	}, p.gen.Calls())
}

func TestPlayNamed_Continuous(t *testing.T) {
	p := newFakePlatform(true, true)
	h := newTestHaptics(p)

	d, err := h.PlayNamed("continuous")
	require.NoError(t, err)
	assert.Equal(t, 400*time.Millisecond, d)
	require.Len(t, p.last().events, 1)

	_, err = h.PlayNamed("stop")
	require.NoError(t, err)
	assert.Equal(t, 1, p.last().halts)
}

func TestPlayNamed_Unknown(t *testing.T) {
	h := newTestHaptics(newFakePlatform(true, true))
	_, err := h.PlayNamed("buzz")
	assert.Error(t, err)
}

func TestPlayNamed_DiscreteDurationFromGenerator(t *testing.T) {
	p := newFakePlatform(true, false)
	p.gen.spans = map[string]time.Duration{
		"notify:error":  220 * time.Millisecond,
		"impact:heavy":  45 * time.Millisecond,
		"impact:custom": 30 * time.Millisecond,
		"select":        10 * time.Millisecond,
	}
	h := newTestHaptics(p)

	tests := []struct {
		name string
		want time.Duration
	}{
		{"error", 220 * time.Millisecond},
		{"heavy", 45 * time.Millisecond},
		{"selection", 10 * time.Millisecond},
		{"transient", 30 * time.Millisecond},
	}
	for _, tt := range tests {
		d, err := h.PlayNamed(tt.name)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, d, tt.name)
	}
}

func TestPlayNamed_UntimedGenerator(t *testing.T) {
	p := newFakePlatform(true, false)
	p.untimed = true
	p.gen.spans = map[string]time.Duration{"notify:error": time.Second}
	h := newTestHaptics(p)

	d, err := h.PlayNamed("error")
	require.NoError(t, err)
	assert.Zero(t, d)
	assert.Equal(t, []string{"notify:error"}, p.gen.Calls())
}

func TestPlayNamed_NoDurationWhenUnsupported(t *testing.T) {
	p := newFakePlatform(false, false)
	p.gen.spans = map[string]time.Duration{"notify:error": time.Second}
	h := newTestHaptics(p)

	d, err := h.PlayNamed("error")
	require.NoError(t, err)
	assert.Zero(t, d)
	assert.Empty(t, p.gen.Calls())
}
