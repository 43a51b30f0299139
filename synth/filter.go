package synth

import "github.com/cwbudde/algo-keysynth/dsp"

const keyTrackRefHz = 261.63 // C4

// FilterChain is the fixed post-oscillator filter: an optional lowpass and an
// optional resonant peak stage. Both stages are stored by value and the
// topology is resolved once per block.
type FilterChain struct {
	params   *FilterParams
	topology FilterTopology
	lowpass  dsp.Biquad
	peak     dsp.Biquad
}

// NewFilterChain creates a chain for the given parameters.
func NewFilterChain(params *FilterParams) FilterChain {
	return FilterChain{params: params, topology: params.Topology}
}

// Configure computes coefficients for a note of frequency noteHz and clears
// the filter state. It runs once per voice activation.
func (c *FilterChain) Configure(noteHz float32, sampleRate int) {
	p := c.params
	sr := float32(sampleRate)
	if c.topology == FilterLowpass || c.topology == FilterLowpassPeak {
		cutoff := p.CutoffHz
		if p.KeyTracking > 0 && noteHz > 0 {
			// 2^(kt*log2(f/ref)) via the fast exponential.
			cutoff *= pow2Approx(p.KeyTracking * log2f(noteHz/keyTrackRefHz))
		}
		c.lowpass.SetLowpass(cutoff, sr, p.Q)
	}
	if c.topology == FilterPeak || c.topology == FilterLowpassPeak {
		c.peak.SetPeaking(p.PeakHz, sr, p.PeakQ, p.PeakGainDB)
	}
	c.Reset()
}

// Reset clears both stages.
func (c *FilterChain) Reset() {
	c.lowpass.Reset()
	c.peak.Reset()
}

// Process filters buf in place.
func (c *FilterChain) Process(buf []float32) {
	switch c.topology {
	case FilterLowpass:
		c.lowpass.ProcessBlock(buf)
	case FilterPeak:
		c.peak.ProcessBlock(buf)
	case FilterLowpassPeak:
		c.lowpass.ProcessBlock(buf)
		c.peak.ProcessBlock(buf)
	}
}
