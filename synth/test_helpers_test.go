package synth

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestParams returns a 48 kHz / 1 kHz control / 480-sample block setup in
// which one control period is exactly 48 samples.
func newTestParams() *Params {
	p := NewDefaultParams()
	p.SampleRate = 48000
	p.ControlRateHz = 1000
	p.BlockSize = 480
	p.Polyphony = 4
	p.Waveform = WaveSine
	p.Filter.Topology = FilterNone
	return p
}

func newTestEngine(t *testing.T, p *Params) *Engine {
	t.Helper()
	e, err := NewEngine(p)
	require.NoError(t, err)
	return e
}

func rms(x []float32) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum / float64(len(x)))
}

func maxAbs(x []float32) float32 {
	var m float32
	for _, v := range x {
		if v < 0 {
			v = -v
		}
		if v > m {
			m = v
		}
	}
	return m
}

// risingZeroCrossings counts sign changes from negative to non-negative.
func risingZeroCrossings(x []float32) int {
	n := 0
	for i := 1; i < len(x); i++ {
		if x[i-1] < 0 && x[i] >= 0 {
			n++
		}
	}
	return n
}

// advanceUntil steps env by dt until cond holds, returning the step count or
// -1 after limit steps.
func advanceUntil(env *Envelope, dt float32, limit int, cond func(*Envelope) bool) int {
	for i := 1; i <= limit; i++ {
		env.Advance(dt)
		if cond(env) {
			return i
		}
	}
	return -1
}
