package dsp

import (
	"math"

	dspcore "github.com/cwbudde/algo-dsp/dsp/core"
)

// Biquad implements a second-order IIR filter (no heap allocations in Process).
// The zero value is a silent filter; set coefficients with SetLowpass/SetPeaking.
type Biquad struct {
	b0, b1, b2 float32
	a1, a2     float32

	x1, x2 float32
	y1, y2 float32
}

// NewLowpass creates an RBJ lowpass biquad filter.
func NewLowpass(cutoff, sampleRate, q float32) *Biquad {
	b := &Biquad{}
	b.SetLowpass(cutoff, sampleRate, q)
	return b
}

// NewPeaking creates an RBJ peaking EQ biquad filter.
func NewPeaking(center, sampleRate, q, gainDB float32) *Biquad {
	b := &Biquad{}
	b.SetPeaking(center, sampleRate, q, gainDB)
	return b
}

// SetLowpass recomputes lowpass coefficients in place. State is kept.
func (b *Biquad) SetLowpass(cutoff, sampleRate, q float32) {
	w0, alpha := prewarp(cutoff, sampleRate, q)
	cosw0 := math.Cos(w0)

	b0 := (1.0 - cosw0) / 2.0
	b1 := 1.0 - cosw0
	b2 := (1.0 - cosw0) / 2.0
	a0 := 1.0 + alpha
	a1 := -2.0 * cosw0
	a2 := 1.0 - alpha
	b.setNormalized(b0, b1, b2, a0, a1, a2)
}

// SetPeaking recomputes peaking EQ coefficients in place. State is kept.
func (b *Biquad) SetPeaking(center, sampleRate, q, gainDB float32) {
	w0, alpha := prewarp(center, sampleRate, q)
	cosw0 := math.Cos(w0)
	amp := math.Pow(10.0, float64(gainDB)/40.0)

	b0 := 1.0 + alpha*amp
	b1 := -2.0 * cosw0
	b2 := 1.0 - alpha*amp
	a0 := 1.0 + alpha/amp
	a1 := -2.0 * cosw0
	a2 := 1.0 - alpha/amp
	b.setNormalized(b0, b1, b2, a0, a1, a2)
}

func prewarp(freq, sampleRate, q float32) (w0 float64, alpha float64) {
	if q <= 0 {
		q = 0.7071
	}
	nyquist := 0.5 * float64(sampleRate)
	f := float64(freq)
	if f < 10 {
		f = 10
	}
	if f > nyquist*0.95 {
		f = nyquist * 0.95
	}
	w0 = 2.0 * math.Pi * f / float64(sampleRate)
	alpha = math.Sin(w0) / (2.0 * float64(q))
	return w0, alpha
}

func (b *Biquad) setNormalized(b0, b1, b2, a0, a1, a2 float64) {
	b.b0 = float32(b0 / a0)
	b.b1 = float32(b1 / a0)
	b.b2 = float32(b2 / a0)
	b.a1 = float32(a1 / a0)
	b.a2 = float32(a2 / a0)
}

// Process processes one sample through the biquad filter.
func (b *Biquad) Process(input float32) float32 {
	// Direct Form I
	output := b.b0*input + b.b1*b.x1 + b.b2*b.x2 - b.a1*b.y1 - b.a2*b.y2

	b.x2 = b.x1
	b.x1 = input
	b.y2 = b.y1
	b.y1 = output

	return output
}

// ProcessBlock filters buf in place. State lives in locals for the duration of
// the block and denormals are flushed once at the end.
func (b *Biquad) ProcessBlock(buf []float32) {
	b0, b1, b2, a1, a2 := b.b0, b.b1, b.b2, b.a1, b.a2
	x1, x2, y1, y2 := b.x1, b.x2, b.y1, b.y2
	for i, x := range buf {
		y := b0*x + b1*x1 + b2*x2 - a1*y1 - a2*y2
		x2 = x1
		x1 = x
		y2 = y1
		y1 = y
		buf[i] = y
	}
	b.x1 = float32(dspcore.FlushDenormals(float64(x1)))
	b.x2 = float32(dspcore.FlushDenormals(float64(x2)))
	b.y1 = float32(dspcore.FlushDenormals(float64(y1)))
	b.y2 = float32(dspcore.FlushDenormals(float64(y2)))
}

// Reset clears the filter state.
func (b *Biquad) Reset() {
	b.x1, b.x2 = 0, 0
	b.y1, b.y2 = 0, 0
}
