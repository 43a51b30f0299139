package synth

import "math"

// Oscillator is a phase-accumulator oscillator with a fixed waveform.
// Phase is normalized to [0,1).
type Oscillator struct {
	wave  Waveform
	phase float32
	inc   float32
}

// NewOscillator creates an oscillator of the given waveform at 0 Hz.
func NewOscillator(wave Waveform) Oscillator {
	return Oscillator{wave: wave}
}

// SetFrequency sets the oscillator frequency. Frequencies at or above Nyquist
// are clamped just below it.
func (o *Oscillator) SetFrequency(freq float32, sampleRate int) {
	inc := freq / float32(sampleRate)
	o.inc = clampf(inc, 0, 0.499)
}

// Frequency returns the current frequency for the given sample rate.
func (o *Oscillator) Frequency(sampleRate int) float32 {
	return o.inc * float32(sampleRate)
}

// Reset restarts the waveform at phase 0.
func (o *Oscillator) Reset() {
	o.phase = 0
}

// Render writes len(out) samples in [-1,1]. The waveform switch runs once per
// block; each case is a tight loop.
func (o *Oscillator) Render(out []float32) {
	phase, inc := o.phase, o.inc
	switch o.wave {
	case WaveSaw:
		for i := range out {
			out[i] = 2*phase - 1 - polyBLEP(phase, inc)
			phase = wrapPhase(phase + inc)
		}
	case WaveSquare:
		for i := range out {
			s := float32(1)
			if phase >= 0.5 {
				s = -1
			}
			s += polyBLEP(phase, inc)
			s -= polyBLEP(wrapPhase(phase+0.5), inc)
			out[i] = s
			phase = wrapPhase(phase + inc)
		}
	case WaveTriangle:
		for i := range out {
			d := phase - 0.5
			if d < 0 {
				d = -d
			}
			out[i] = 1 - 4*d
			phase = wrapPhase(phase + inc)
		}
	default:
		for i := range out {
			out[i] = float32(math.Sin(2 * math.Pi * float64(phase)))
			phase = wrapPhase(phase + inc)
		}
	}
	o.phase = phase
}

func wrapPhase(p float32) float32 {
	if p >= 1 {
		p -= 1
	}
	return p
}

// polyBLEP is the two-sample polynomial band-limited step correction around a
// discontinuity at phase 0.
func polyBLEP(t, dt float32) float32 {
	if dt <= 0 {
		return 0
	}
	if t < dt {
		t /= dt
		return t + t - t*t - 1
	}
	if t > 1-dt {
		t = (t - 1) / dt
		return t*t + t + t + 1
	}
	return 0
}
