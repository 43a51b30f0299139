package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sine(sr int, freq, amp, durationSec float64) []float64 {
	out := make([]float64, int(float64(sr)*durationSec))
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/float64(sr))
	}
	return out
}

func decaying(sr int, freq, durationSec, decaySec float64) []float64 {
	out := sine(sr, freq, 1, durationSec)
	for i := range out {
		out[i] *= math.Exp(-float64(i) / float64(sr) / decaySec)
	}
	return out
}

func TestPeakAndRMS(t *testing.T) {
	x := sine(48000, 1000, 0.5, 1)
	assert.InDelta(t, 0.5, Peak(x), 1e-3)
	assert.InDelta(t, 0.5/math.Sqrt2, RMS(x), 1e-3)
	assert.Zero(t, RMS(nil))
	assert.Equal(t, 2.0, Peak([]float64{1, math.NaN(), -2}))
}

func TestDominantFrequency(t *testing.T) {
	for _, f := range []float64{261.63, 440, 987.77} {
		x := sine(44100, f, 0.3, 1)
		assert.InDelta(t, f, DominantFrequency(x, 44100), 2.0, "f=%v", f)
	}
	assert.Zero(t, DominantFrequency(make([]float64, 16), 44100))
}

func TestZeroCrossingFrequency(t *testing.T) {
	x := sine(48000, 440, 1, 0.5)
	assert.InDelta(t, 440, ZeroCrossingFrequency(x, 48000), 1)
	assert.Zero(t, ZeroCrossingFrequency([]float64{1, 1, 1}, 48000))
}

func TestSummarizeDecay(t *testing.T) {
	sr := 48000
	x := decaying(sr, 440, 2, 0.5)
	s := Summarize(x, sr)

	assert.Equal(t, len(x), s.Frames)
	assert.Zero(t, s.NonFinite)
	assert.Zero(t, s.ClippedSamples)
	assert.Less(t, s.AttackSec, 0.02)
	// exp(-t/0.5) falls 8.69/0.5 = 17.4 dB per second.
	require.False(t, math.IsNaN(s.DecayDBPerS))
	assert.InDelta(t, -17.4, s.DecayDBPerS, 1.0)
	assert.InDelta(t, 440, s.DominantHz, 2)
}

func TestSummarizeCountsBadSamples(t *testing.T) {
	s := Summarize([]float64{0, 1.5, math.Inf(1), math.NaN(), -1}, 48000)
	assert.Equal(t, 2, s.NonFinite)
	assert.Equal(t, 2, s.ClippedSamples)
	assert.Equal(t, 1.5, s.Peak)
}

func TestEnvelope(t *testing.T) {
	assert.Nil(t, Envelope(make([]float64, 10), 256, 128))
	env := Envelope(sine(48000, 1000, 1, 0.1), 480, 240)
	require.Len(t, env, 1+(4800-480)/240)
	for _, v := range env {
		assert.InDelta(t, 1/math.Sqrt2, v, 1e-3)
	}
}

func TestCompareIdenticalSignals(t *testing.T) {
	x := decaying(48000, 440, 0.5, 0.3)
	d := Compare(x, x, 100)
	assert.Zero(t, d.LagSamples)
	assert.InDelta(t, 0, d.TimeRMSE, 1e-12)
	assert.InDelta(t, 0, d.Score, 1e-9)
}

func TestCompareFindsLag(t *testing.T) {
	x := decaying(48000, 300, 0.5, 0.3)
	shifted := append(make([]float64, 37), x...)
	d := Compare(shifted, x, 100)
	assert.Equal(t, 37, d.LagSamples)
	assert.Less(t, d.TimeRMSE, 1e-9)
}

func TestCompareDifferentSignals(t *testing.T) {
	a := decaying(48000, 261.63, 1, 0.8)
	b := decaying(48000, 330, 1, 0.1)
	d := Compare(a, b, 0)
	assert.Greater(t, d.Score, 0.25)
	assert.Equal(t, 1.0, Compare(nil, a, 10).Score)
}
