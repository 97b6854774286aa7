package procon

import (
	"math"
	"time"

	"procon2-haptics/haptics"
)

// Band is one actuator's HD rumble word: high band frequency and amplitude
// in bytes 0-1, low band in bytes 2-3.
type Band [4]byte

// Frame is one hidraw haptic frame: a Band followed by a reserved byte.
type Frame [5]byte

var (
	neutralBand = Band{0x00, 0x01, 0x40, 0x40}
	silentFrame = Frame{0x00, 0x01, 0x40, 0x40, 0x00}
)

// Frequency ranges the two bands can encode
const (
	highMinHz = 82.0
	highMaxHz = 1253.0
	lowMinHz  = 41.0
	lowMaxHz  = 626.0
)

func encodeFreq(hz, lo, hi float64) int {
	hz = math.Min(math.Max(hz, lo), hi)
	return int(math.Round(math.Log2(hz/10) * 32))
}

func encodeAmp(amp float64) int {
	switch {
	case amp <= 0:
		return 0
	case amp > 0.23:
		return int(math.Round(math.Log2(math.Min(amp, 1)*8.7) * 32))
	case amp > 0.12:
		return int(math.Round(math.Log2(amp*17) * 16))
	default:
		return int(math.Round(amp / 0.12 * 16))
	}
}

// EncodeBand packs a high/low band frequency pair at amplitude amp in [0,1].
func EncodeBand(highHz, lowHz, amp float64) Band {
	hf := uint16((encodeFreq(highHz, highMinHz, highMaxHz) - 0x60) * 4)
	lf := byte(encodeFreq(lowHz, lowMinHz, lowMaxHz) - 0x40)
	a := encodeAmp(amp)
	hfAmp := byte(a * 2)
	lfAmp := uint16(a/2 + 0x40)

	return Band{
		byte(hf & 0xFF),
		hfAmp + byte(hf>>8),
		lf + byte(lfAmp>>8),
		byte(lfAmp & 0xFF),
	}
}

// sharpnessFreqs maps sharpness in [0,1] to a high/low band pair, two
// octaves wide, centred on the 320/160 Hz resonance.
func sharpnessFreqs(sharpness float64) (float64, float64) {
	scale := math.Pow(2, 2*sharpness-1)
	return 320 * scale, 160 * scale
}

// EncodeFrame converts one intensity/sharpness sample into a frame.
func EncodeFrame(intensity, sharpness float64) Frame {
	if intensity <= 0 {
		return silentFrame
	}
	hi, lo := sharpnessFreqs(sharpness)
	b := EncodeBand(hi, lo, intensity)
	return Frame{b[0], b[1], b[2], b[3], 0x00}
}

// Render samples events every interval into frames. Transients decay
// linearly over transientLen; continuous events hold their intensity for
// their duration. Where events overlap the strongest one wins. Output
// stops at limit.
func Render(events []haptics.Event, interval, transientLen, limit time.Duration) []Frame {
	if interval <= 0 || len(events) == 0 {
		return nil
	}

	var end time.Duration
	for _, e := range events {
		end = max(end, e.End(), e.Time+transientLen)
	}
	if limit > 0 {
		end = min(end, limit)
	}

	n := int((end + interval - 1) / interval)
	frames := make([]Frame, n)
	for i := range frames {
		t := time.Duration(i) * interval
		level, sharp := 0.0, 0.0
		for _, e := range events {
			l := sampleAt(e, t, transientLen)
			if l > level {
				level, sharp = l, e.Sharpness
			}
		}
		frames[i] = EncodeFrame(level, sharp)
	}
	return frames
}

func sampleAt(e haptics.Event, t, transientLen time.Duration) float64 {
	if t < e.Time {
		return 0
	}
	dt := t - e.Time
	switch e.Kind {
	case haptics.Continuous:
		if dt < e.Duration {
			return e.Intensity
		}
	case haptics.Transient:
		if transientLen > 0 && dt < transientLen {
			return e.Intensity * (1 - float64(dt)/float64(transientLen))
		}
	}
	return 0
}
