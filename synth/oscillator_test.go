package synth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMIDINoteToFreq(t *testing.T) {
	assert.InEpsilon(t, 440.0, midiNoteToFreq(69), 0.005)
	assert.InEpsilon(t, 261.63, midiNoteToFreq(60), 0.005)
	assert.InEpsilon(t, 880.0, midiNoteToFreq(81), 0.005)
}

func TestVelocityGain(t *testing.T) {
	assert.InDelta(t, 1.0, velocityGain(127, 0.8), 1e-6)
	assert.InDelta(t, 0.2, velocityGain(0, 0.8), 1e-6)
	assert.InDelta(t, 1.0, velocityGain(10, 0), 1e-6)
}

func TestOscillatorFrequency(t *testing.T) {
	const sr = 48000
	for _, wave := range []Waveform{WaveSaw, WaveSquare, WaveTriangle, WaveSine} {
		t.Run(wave.String(), func(t *testing.T) {
			osc := NewOscillator(wave)
			osc.SetFrequency(1000, sr)
			assert.InDelta(t, 1000, osc.Frequency(sr), 0.01)

			out := make([]float32, sr)
			for off := 0; off < len(out); off += 480 {
				osc.Render(out[off : off+480])
			}
			crossings := risingZeroCrossings(out)
			assert.InDelta(t, 1000, crossings, 2)
			assert.LessOrEqual(t, maxAbs(out), float32(1.1))
			assert.Greater(t, rms(out), 0.5)
		})
	}
}

func TestOscillatorClampsBelowNyquist(t *testing.T) {
	osc := NewOscillator(WaveSine)
	osc.SetFrequency(30000, 48000)
	assert.Less(t, osc.Frequency(48000), float32(24000))
}

func TestOscillatorReset(t *testing.T) {
	osc := NewOscillator(WaveSaw)
	osc.SetFrequency(440, 48000)
	first := make([]float32, 64)
	osc.Render(first)
	osc.Reset()
	again := make([]float32, 64)
	osc.Render(again)
	assert.Equal(t, first, again)
}

func TestFilterChainLowpassAttenuatesHighNotes(t *testing.T) {
	params := FilterParams{Topology: FilterLowpass, CutoffHz: 500, Q: 0.7071}
	const sr = 48000
	render := func(topology FilterTopology, note int) float64 {
		params.Topology = topology
		chain := NewFilterChain(&params)
		osc := NewOscillator(WaveSine)
		f := midiNoteToFreq(note)
		osc.SetFrequency(f, sr)
		chain.Configure(f, sr)
		buf := make([]float32, 4800)
		osc.Render(buf)
		chain.Process(buf)
		return rms(buf[2400:])
	}
	dry := render(FilterNone, 96)
	wet := render(FilterLowpass, 96)
	assert.Less(t, wet, dry*0.2, "C7 far above a 500 Hz cutoff")

	low := render(FilterLowpass, 48)
	assert.Greater(t, low, 0.6, "C3 passes")
}

func TestFilterChainKeyTrackingRaisesCutoff(t *testing.T) {
	const sr = 48000
	measure := func(kt float32) float64 {
		params := FilterParams{Topology: FilterLowpass, CutoffHz: 1000, Q: 0.7071, KeyTracking: kt}
		chain := NewFilterChain(&params)
		osc := NewOscillator(WaveSine)
		f := midiNoteToFreq(96)
		osc.SetFrequency(f, sr)
		chain.Configure(f, sr)
		buf := make([]float32, 4800)
		osc.Render(buf)
		chain.Process(buf)
		return rms(buf[2400:])
	}
	assert.Greater(t, measure(1), measure(0))
}
