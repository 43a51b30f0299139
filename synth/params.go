package synth

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-keysynth/event"
)

// Waveform selects the oscillator shape. The set is closed; the oscillator
// switches on it once per block.
type Waveform uint8

const (
	WaveSaw Waveform = iota
	WaveSquare
	WaveTriangle
	WaveSine
)

var waveformNames = [...]string{"saw", "square", "triangle", "sine"}

func (w Waveform) String() string {
	if int(w) < len(waveformNames) {
		return waveformNames[w]
	}
	return fmt.Sprintf("Waveform(%d)", uint8(w))
}

// ParseWaveform maps a name ("saw", "square", "triangle", "sine") to a Waveform.
func ParseWaveform(name string) (Waveform, error) {
	for i, n := range waveformNames {
		if n == name {
			return Waveform(i), nil
		}
	}
	return 0, fmt.Errorf("unknown waveform %q", name)
}

// FilterTopology selects the static filter chain behind each oscillator.
type FilterTopology uint8

const (
	FilterNone FilterTopology = iota
	FilterLowpass
	FilterPeak
	FilterLowpassPeak
)

var topologyNames = [...]string{"none", "lowpass", "peak", "lowpass+peak"}

func (t FilterTopology) String() string {
	if int(t) < len(topologyNames) {
		return topologyNames[t]
	}
	return fmt.Sprintf("FilterTopology(%d)", uint8(t))
}

// ParseFilterTopology maps a name ("none", "lowpass", "peak", "lowpass+peak").
func ParseFilterTopology(name string) (FilterTopology, error) {
	for i, n := range topologyNames {
		if n == name {
			return FilterTopology(i), nil
		}
	}
	return 0, fmt.Errorf("unknown filter topology %q", name)
}

// EnvelopeParams holds the shared ADSR defaults. Times are in seconds.
type EnvelopeParams struct {
	AttackSec    float32
	DecaySec     float32
	SustainLevel float32
	ReleaseSec   float32
}

// FilterParams configures the filter chain.
type FilterParams struct {
	Topology FilterTopology

	CutoffHz float32
	Q        float32

	// KeyTracking scales the lowpass cutoff with note pitch relative to middle C:
	// 0 keeps it fixed, 1 moves it one octave per octave.
	KeyTracking float32

	PeakHz     float32
	PeakQ      float32
	PeakGainDB float32
}

// Params holds the engine configuration. It is read once by NewEngine and must
// not be changed afterwards.
type Params struct {
	SampleRate    int
	BlockSize     int
	Polyphony     int
	ControlRateHz int

	Envelope EnvelopeParams
	Waveform Waveform
	Filter   FilterParams

	// VoiceGain scales every voice before mixing.
	VoiceGain float32
	// OutputGain is the fixed master attenuation applied after summing.
	OutputGain float32
	// VelocitySensitivity blends between a fixed level (0) and a fully
	// velocity-scaled level (1).
	VelocitySensitivity float32

	// EventQueueSize is the capacity of the note event ring (rounded up to a
	// power of two).
	EventQueueSize int
}

// Limits for Params.Validate.
const (
	MinPolyphony = 1
	MaxPolyphony = 64
	MaxBlockSize = 8192

	MaxEventQueueSize = event.MaxQueueSize
)

var errNilParams = errors.New("nil params")

// NewDefaultParams creates the default patch: a 7-voice sawtooth keyboard at
// 44.1 kHz, rendered in 480-sample blocks with a 1 kHz envelope clock.
func NewDefaultParams() *Params {
	return &Params{
		SampleRate:    44100,
		BlockSize:     480,
		Polyphony:     7,
		ControlRateHz: 1000,
		Envelope: EnvelopeParams{
			AttackSec:    0.005,
			DecaySec:     0.120,
			SustainLevel: 0.7,
			ReleaseSec:   0.250,
		},
		Waveform: WaveSaw,
		Filter: FilterParams{
			Topology:    FilterLowpass,
			CutoffHz:    4000,
			Q:           0.7071,
			KeyTracking: 0.5,
			PeakHz:      1200,
			PeakQ:       2.0,
			PeakGainDB:  6.0,
		},
		VoiceGain:           0.2,
		OutputGain:          1.0,
		VelocitySensitivity: 0.8,
		EventQueueSize:      64,
	}
}

// Validate reports the first configuration error.
func (p *Params) Validate() error {
	if p == nil {
		return errNilParams
	}
	if p.SampleRate < 8000 || p.SampleRate > 384000 {
		return fmt.Errorf("sample_rate must be in [8000,384000], got %d", p.SampleRate)
	}
	if p.BlockSize < 1 || p.BlockSize > MaxBlockSize {
		return fmt.Errorf("block_size must be in [1,%d], got %d", MaxBlockSize, p.BlockSize)
	}
	if p.Polyphony < MinPolyphony || p.Polyphony > MaxPolyphony {
		return fmt.Errorf("polyphony must be in [%d,%d], got %d", MinPolyphony, MaxPolyphony, p.Polyphony)
	}
	if p.ControlRateHz < 1 || p.ControlRateHz > p.SampleRate {
		return fmt.Errorf("control_rate_hz must be in [1,%d], got %d", p.SampleRate, p.ControlRateHz)
	}
	env := p.Envelope
	if env.AttackSec < 0 || env.DecaySec < 0 || env.ReleaseSec < 0 {
		return fmt.Errorf("envelope times must be >= 0")
	}
	if env.SustainLevel < 0 || env.SustainLevel > 1 {
		return fmt.Errorf("sustain level must be in [0,1], got %f", env.SustainLevel)
	}
	if p.Waveform > WaveSine {
		return fmt.Errorf("invalid waveform %d", p.Waveform)
	}
	f := p.Filter
	if f.Topology > FilterLowpassPeak {
		return fmt.Errorf("invalid filter topology %d", f.Topology)
	}
	if f.Topology == FilterLowpass || f.Topology == FilterLowpassPeak {
		if f.CutoffHz <= 0 || f.Q <= 0 {
			return fmt.Errorf("lowpass cutoff and q must be > 0")
		}
		if f.KeyTracking < 0 || f.KeyTracking > 1 {
			return fmt.Errorf("key_tracking must be in [0,1], got %f", f.KeyTracking)
		}
	}
	if f.Topology == FilterPeak || f.Topology == FilterLowpassPeak {
		if f.PeakHz <= 0 || f.PeakQ <= 0 {
			return fmt.Errorf("peak frequency and q must be > 0")
		}
	}
	if p.VoiceGain <= 0 {
		return fmt.Errorf("voice_gain must be > 0")
	}
	if p.OutputGain <= 0 {
		return fmt.Errorf("output_gain must be > 0")
	}
	if p.VelocitySensitivity < 0 || p.VelocitySensitivity > 1 {
		return fmt.Errorf("velocity_sensitivity must be in [0,1], got %f", p.VelocitySensitivity)
	}
	if p.EventQueueSize < 1 || p.EventQueueSize > MaxEventQueueSize {
		return fmt.Errorf("event_queue_size must be in [1,%d], got %d", MaxEventQueueSize, p.EventQueueSize)
	}
	return nil
}

// ControlPeriod returns the envelope tick period in samples (at least 1).
func (p *Params) ControlPeriod() int {
	n := (p.SampleRate + p.ControlRateHz/2) / p.ControlRateHz
	if n < 1 {
		n = 1
	}
	return n
}

// ControlDT returns the envelope tick period in seconds. It is derived from the
// rounded sample period so envelope time and audio time never drift apart.
func (p *Params) ControlDT() float32 {
	return float32(p.ControlPeriod()) / float32(p.SampleRate)
}
