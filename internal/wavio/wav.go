// Package wavio reads and writes the 16-bit PCM WAV files produced by the
// offline renderer.
package wavio

import (
	"fmt"
	"os"
	"path/filepath"

	dspresample "github.com/cwbudde/algo-dsp/dsp/resample"
	"github.com/cwbudde/algo-keysynth/transport"
	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"
)

// BitDepth of every file written by this package.
const BitDepth = 16

// WriteMono writes samples in [-1,1] as a mono 16-bit WAV file, creating the
// parent directory if needed.
func WriteMono(path string, data []float32, sampleRate int) error {
	return write(path, data, sampleRate, 1)
}

// WriteDualMono writes the mono signal to both channels of a stereo file,
// the same layout the I2S output sends to the codec.
func WriteDualMono(path string, data []float32, sampleRate int) error {
	st := make([]float32, 2*len(data))
	transport.InterleaveStereo(st, data)
	return write(path, st, sampleRate, 2)
}

func write(path string, interleaved []float32, sampleRate, channels int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, BitDepth, channels, 1)
	buf := &audio.Float32Buffer{
		Format: &audio.Format{
			SampleRate:  sampleRate,
			NumChannels: channels,
		},
		Data:           interleaved,
		SourceBitDepth: BitDepth,
	}
	if err := enc.Write(buf); err != nil {
		enc.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// ReadMono reads a PCM WAV file, downmixes it to mono and scales it to
// [-1,1]. It returns the samples and the file's sample rate.
func ReadMono(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("invalid wav file: %s", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("read %s: %w", path, err)
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, 0, fmt.Errorf("invalid wav buffer: %s", path)
	}

	depth := buf.SourceBitDepth
	if depth <= 0 {
		depth = int(dec.BitDepth)
	}
	if depth <= 0 {
		depth = BitDepth
	}
	scale := 1 / float64(int64(1)<<(depth-1))

	ch := buf.Format.NumChannels
	frames := len(buf.Data) / ch
	out := make([]float64, frames)
	for i := range out {
		var sum float64
		for c := 0; c < ch; c++ {
			sum += float64(buf.Data[i*ch+c])
		}
		out[i] = sum / float64(ch) * scale
	}
	return out, buf.Format.SampleRate, nil
}

// Resample converts in from one sample rate to another. Equal rates return
// in unchanged.
func Resample(in []float64, fromRate, toRate int) ([]float64, error) {
	if fromRate == toRate {
		return in, nil
	}
	r, err := dspresample.NewForRates(
		float64(fromRate),
		float64(toRate),
		dspresample.WithQuality(dspresample.QualityBest),
	)
	if err != nil {
		return nil, fmt.Errorf("resample %d -> %d: %w", fromRate, toRate, err)
	}
	return r.Process(in), nil
}

// ToFloat64 widens rendered samples for analysis.
func ToFloat64(x []float32) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = float64(v)
	}
	return out
}

// ToFloat32 narrows samples for writing.
func ToFloat32(x []float64) []float32 {
	out := make([]float32, len(x))
	for i, v := range x {
		out[i] = float32(v)
	}
	return out
}
