package analysis

import "math"

// Distance compares a candidate render against a reference.
type Distance struct {
	AlignedFrames  int     `json:"aligned_frames"`
	LagSamples     int     `json:"lag_samples"`
	TimeRMSE       float64 `json:"time_rmse"`
	EnvelopeRMSEDB float64 `json:"envelope_rmse_db"`
	SpectralRMSEDB float64 `json:"spectral_rmse_db"`
	Score          float64 `json:"score"`
}

// Compare aligns candidate to reference within maxLag samples and measures
// waveform, envelope and spectral error. Score is 0 for identical signals and
// grows towards 1. Both signals are compared as recorded, without level
// normalization, since render gain is part of what is being checked.
func Compare(reference, candidate []float64, maxLag int) Distance {
	var d Distance
	if len(reference) == 0 || len(candidate) == 0 {
		d.Score = 1
		return d
	}
	maxLag = min(maxLag, len(reference)-1, len(candidate)-1)
	if maxLag < 0 {
		maxLag = 0
	}
	d.LagSamples = bestLag(reference, candidate, maxLag)
	ref, cand := reference, candidate
	if d.LagSamples >= 0 {
		ref = ref[d.LagSamples:]
	} else {
		cand = cand[-d.LagSamples:]
	}
	n := min(len(ref), len(cand))
	ref, cand = ref[:n], cand[:n]
	d.AlignedFrames = n

	var sum float64
	for i := range ref {
		e := ref[i] - cand[i]
		sum += e * e
	}
	d.TimeRMSE = math.Sqrt(sum / float64(n))

	envR := Envelope(ref, envFrame, envHop)
	envC := Envelope(cand, envFrame, envHop)
	if m := min(len(envR), len(envC)); m > 0 {
		diff := make([]float64, m)
		for i := range diff {
			diff[i] = linToDB(envR[i]) - linToDB(envC[i])
		}
		d.EnvelopeRMSEDB = RMS(diff)
	}

	d.SpectralRMSEDB = spectralDistance(ref, cand)

	d.Score = clamp01(0.4*clamp01(d.TimeRMSE/0.25) +
		0.3*clamp01(d.EnvelopeRMSEDB/30) +
		0.3*clamp01(d.SpectralRMSEDB/30))
	return d
}

func bestLag(a, b []float64, maxLag int) int {
	best, bestDot := 0, math.Inf(-1)
	for lag := -maxLag; lag <= maxLag; lag++ {
		ai, bi := 0, 0
		if lag >= 0 {
			ai = lag
		} else {
			bi = -lag
		}
		n := min(len(a)-ai, len(b)-bi)
		var dot float64
		for i := 0; i < n; i++ {
			dot += a[ai+i] * b[bi+i]
		}
		if dot > bestDot {
			best, bestDot = lag, dot
		}
	}
	return best
}

// spectralDistance is the RMS dB difference of the magnitude spectra of the
// leading power-of-two window, up to 4096 samples.
func spectralDistance(a, b []float64) float64 {
	n := 1
	for n*2 <= len(a) && n < 4096 {
		n *= 2
	}
	if n < 512 {
		return 0
	}
	ma, err := magnitudeSpectrum(a[:n])
	if err != nil {
		return 0
	}
	mb, err := magnitudeSpectrum(b[:n])
	if err != nil {
		return 0
	}
	var sum float64
	for k := 1; k < n/2; k++ {
		e := linToDB(ma[k]) - linToDB(mb[k])
		sum += e * e
	}
	return math.Sqrt(sum / float64(n/2-1))
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
