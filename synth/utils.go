package synth

import (
	"math"

	"github.com/cwbudde/algo-approx"
)

// midiNoteToFreq converts MIDI note number to frequency in Hz.
func midiNoteToFreq(note int) float32 {
	const a4Freq = 440.0
	const a4Note = 69
	exponent := float32(note-a4Note) / 12.0
	return a4Freq * pow2Approx(exponent)
}

func pow2Approx(x float32) float32 {
	const ln2 = 0.69314718055994530942
	return approx.FastExp(x * ln2)
}

// velocityGain maps MIDI velocity to a linear gain. sensitivity 0 ignores
// velocity, 1 scales linearly with it.
func velocityGain(velocity int, sensitivity float32) float32 {
	v := clampf(float32(velocity)/127.0, 0, 1)
	return (1 - sensitivity) + sensitivity*v
}

func isFinite(x float32) bool {
	return !math.IsNaN(float64(x)) && !math.IsInf(float64(x), 0)
}

func clampf(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func log2f(x float32) float32 {
	return float32(math.Log2(float64(x)))
}
