// Package analysis measures rendered audio offline: level, pitch and
// envelope shape of a single render, and a distance between two renders.
package analysis

import (
	"math"
	"math/cmplx"

	algofft "github.com/cwbudde/algo-fft"
)

const (
	envFrame = 256
	envHop   = 128
)

// Summary describes one mono signal.
type Summary struct {
	SampleRate int     `json:"sample_rate"`
	Frames     int     `json:"frames"`
	Peak       float64 `json:"peak"`
	RMS        float64 `json:"rms"`
	PeakDB     float64 `json:"peak_db"`
	RMSDB      float64 `json:"rms_db"`

	DominantHz     float64 `json:"dominant_hz"`
	ZeroCrossingHz float64 `json:"zero_crossing_hz"`

	AttackSec      float64 `json:"attack_sec"`
	DecayDBPerS    float64 `json:"decay_db_per_s"`
	NonFinite      int     `json:"non_finite"`
	ClippedSamples int     `json:"clipped_samples"`
}

// Summarize measures x. DecayDBPerS is NaN when the signal has no usable
// decay after its peak.
func Summarize(x []float64, sampleRate int) Summary {
	s := Summary{SampleRate: sampleRate, Frames: len(x)}
	for _, v := range x {
		if !isFinite(v) {
			s.NonFinite++
			continue
		}
		if math.Abs(v) >= 1 {
			s.ClippedSamples++
		}
	}
	s.Peak = Peak(x)
	s.RMS = RMS(x)
	s.PeakDB = linToDB(s.Peak)
	s.RMSDB = linToDB(s.RMS)
	if sampleRate <= 0 || len(x) == 0 {
		s.DecayDBPerS = math.NaN()
		return s
	}
	s.DominantHz = DominantFrequency(x, sampleRate)
	s.ZeroCrossingHz = ZeroCrossingFrequency(x, sampleRate)

	env := Envelope(x, envFrame, envHop)
	hopSec := float64(envHop) / float64(sampleRate)
	s.AttackSec = attackTime(env, hopSec)
	s.DecayDBPerS = decaySlope(env, hopSec)
	return s
}

// Peak returns the largest absolute finite sample.
func Peak(x []float64) float64 {
	var p float64
	for _, v := range x {
		if a := math.Abs(v); isFinite(v) && a > p {
			p = a
		}
	}
	return p
}

// RMS returns the root mean square of x.
func RMS(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

// Envelope returns frame RMS values taken every hop samples.
func Envelope(x []float64, frame, hop int) []float64 {
	if frame <= 0 || hop <= 0 || len(x) < frame {
		return nil
	}
	out := make([]float64, 1+(len(x)-frame)/hop)
	for i := range out {
		out[i] = RMS(x[i*hop : i*hop+frame])
	}
	return out
}

// ZeroCrossingFrequency estimates the fundamental from the rate of rising
// zero crossings.
func ZeroCrossingFrequency(x []float64, sampleRate int) float64 {
	first, last, n := -1, -1, 0
	for i := 1; i < len(x); i++ {
		if x[i-1] < 0 && x[i] >= 0 {
			if first < 0 {
				first = i
			}
			last = i
			n++
		}
	}
	if n < 2 {
		return 0
	}
	return float64(n-1) * float64(sampleRate) / float64(last-first)
}

// DominantFrequency returns the frequency of the strongest spectral peak,
// refined by parabolic interpolation over Hann-windowed FFT magnitudes. The
// analysis window is the largest power of two up to 65536 that fits in x.
func DominantFrequency(x []float64, sampleRate int) float64 {
	n := 1
	for n*2 <= len(x) && n < 1<<16 {
		n *= 2
	}
	if n < 64 {
		return 0
	}
	mag, err := magnitudeSpectrum(x[:n])
	if err != nil {
		return 0
	}
	best := 1
	for k := 2; k < len(mag)-1; k++ {
		if mag[k] > mag[best] {
			best = k
		}
	}
	if mag[best] <= 0 {
		return 0
	}
	offset := 0.0
	if best > 0 && best < len(mag)-1 {
		a, b, c := linToDB(mag[best-1]), linToDB(mag[best]), linToDB(mag[best+1])
		if den := a - 2*b + c; den != 0 {
			offset = 0.5 * (a - c) / den
		}
	}
	return (float64(best) + offset) * float64(sampleRate) / float64(n)
}

// magnitudeSpectrum returns |X[k]| for k in [0, n/2] of the Hann-windowed x.
func magnitudeSpectrum(x []float64) ([]float64, error) {
	n := len(x)
	plan, err := algofft.NewPlanReal64(n)
	if err != nil {
		return nil, err
	}
	buf := make([]float64, n)
	for i, v := range x {
		buf[i] = v * hann(i, n)
	}
	bins := make([]complex128, n/2+1)
	plan.Forward(bins, buf)
	mag := make([]float64, len(bins))
	for k, c := range bins {
		mag[k] = cmplx.Abs(c)
	}
	return mag, nil
}

func hann(i, n int) float64 {
	return 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
}

// attackTime is the time from the start until the envelope first reaches 90%
// of its maximum.
func attackTime(env []float64, hopSec float64) float64 {
	var peak float64
	for _, v := range env {
		peak = math.Max(peak, v)
	}
	if peak <= 0 {
		return 0
	}
	for i, v := range env {
		if v >= 0.9*peak {
			return float64(i) * hopSec
		}
	}
	return 0
}

// decaySlope fits a line to the dB envelope from its peak down to 60 dB below
// it and returns the slope in dB per second.
func decaySlope(env []float64, hopSec float64) float64 {
	if len(env) < 8 || hopSec <= 0 {
		return math.NaN()
	}
	peakIdx := 0
	for i, v := range env {
		if v > env[peakIdx] {
			peakIdx = i
		}
	}
	floor := linToDB(env[peakIdx]) - 60
	start, end := peakIdx+1, len(env)
	for i := start; i < len(env); i++ {
		if linToDB(env[i]) < floor {
			end = i
			break
		}
	}
	if end-start < 6 {
		return math.NaN()
	}

	var sx, sy, sxx, sxy float64
	n := float64(end - start)
	for i := start; i < end; i++ {
		t := float64(i-start) * hopSec
		y := linToDB(env[i])
		sx += t
		sy += y
		sxx += t * t
		sxy += t * y
	}
	den := n*sxx - sx*sx
	if math.Abs(den) < 1e-12 {
		return math.NaN()
	}
	return (n*sxy - sx*sy) / den
}

func linToDB(x float64) float64 {
	if x < 1e-12 {
		x = 1e-12
	}
	return 20 * math.Log10(x)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
