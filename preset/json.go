package preset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/cwbudde/algo-keysynth/synth"
)

// File is the JSON schema for synth patches. Every field is optional; absent
// fields keep the defaults.
type File struct {
	SampleRate          *int           `json:"sample_rate"`
	BlockSize           *int           `json:"block_size"`
	Polyphony           *int           `json:"polyphony"`
	ControlRateHz       *int           `json:"control_rate_hz"`
	Waveform            *string        `json:"waveform"`
	Envelope            *EnvelopeFile  `json:"envelope"`
	Filter              *FilterFile    `json:"filter"`
	VoiceGain           *float32       `json:"voice_gain"`
	OutputGain          *float32       `json:"output_gain"`
	VelocitySensitivity *float32       `json:"velocity_sensitivity"`
	EventQueueSize      *int           `json:"event_queue_size"`
	KeyVelocity         *int           `json:"key_velocity"`
	KeyMap              map[string]int `json:"key_map"`
}

// EnvelopeFile holds ADSR overrides. Times are in milliseconds.
type EnvelopeFile struct {
	AttackMs  *float32 `json:"attack_ms"`
	DecayMs   *float32 `json:"decay_ms"`
	Sustain   *float32 `json:"sustain"`
	ReleaseMs *float32 `json:"release_ms"`
}

// FilterFile holds filter chain overrides.
type FilterFile struct {
	Topology    *string  `json:"topology"`
	CutoffHz    *float32 `json:"cutoff_hz"`
	Q           *float32 `json:"q"`
	KeyTracking *float32 `json:"key_tracking"`
	PeakHz      *float32 `json:"peak_hz"`
	PeakQ       *float32 `json:"peak_q"`
	PeakGainDB  *float32 `json:"peak_gain_db"`
}

// Preset is a loaded patch: engine parameters plus the computer-keyboard
// layout used by the live player.
type Preset struct {
	Params      *synth.Params
	KeyMap      map[rune]int
	KeyVelocity int
}

// DefaultKeyMap is the seven-key C4..B4 layout of the original keyboard on
// the home row, with the black keys on the row above.
func DefaultKeyMap() map[rune]int {
	return map[rune]int{
		'a': 60, 's': 62, 'd': 64, 'f': 65, 'g': 67, 'h': 69, 'j': 71,
		'w': 61, 'e': 63, 't': 66, 'y': 68, 'u': 70,
	}
}

// Default returns the default patch.
func Default() *Preset {
	return &Preset{
		Params:      synth.NewDefaultParams(),
		KeyMap:      DefaultKeyMap(),
		KeyVelocity: 100,
	}
}

// LoadJSON loads a preset JSON file and applies it on top of the defaults.
func LoadJSON(path string) (*Preset, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	p := Default()
	if err := ApplyFile(p, &f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// ApplyFile applies a parsed preset file onto an existing preset and
// validates the result.
func ApplyFile(dst *Preset, f *File) error {
	if dst == nil || dst.Params == nil {
		return fmt.Errorf("nil destination params")
	}
	if f == nil {
		return nil
	}
	p := dst.Params

	setInt(&p.SampleRate, f.SampleRate)
	setInt(&p.BlockSize, f.BlockSize)
	setInt(&p.Polyphony, f.Polyphony)
	setInt(&p.ControlRateHz, f.ControlRateHz)
	setInt(&p.EventQueueSize, f.EventQueueSize)
	setFloat(&p.VoiceGain, f.VoiceGain)
	setFloat(&p.OutputGain, f.OutputGain)
	setFloat(&p.VelocitySensitivity, f.VelocitySensitivity)

	if f.Waveform != nil {
		w, err := synth.ParseWaveform(strings.ToLower(strings.TrimSpace(*f.Waveform)))
		if err != nil {
			return err
		}
		p.Waveform = w
	}

	if env := f.Envelope; env != nil {
		for _, ms := range []*float32{env.AttackMs, env.DecayMs, env.ReleaseMs} {
			if ms != nil && *ms < 0 {
				return fmt.Errorf("envelope times must be >= 0 ms")
			}
		}
		setMillis(&p.Envelope.AttackSec, env.AttackMs)
		setMillis(&p.Envelope.DecaySec, env.DecayMs)
		setMillis(&p.Envelope.ReleaseSec, env.ReleaseMs)
		setFloat(&p.Envelope.SustainLevel, env.Sustain)
	}

	if flt := f.Filter; flt != nil {
		if flt.Topology != nil {
			t, err := synth.ParseFilterTopology(strings.ToLower(strings.TrimSpace(*flt.Topology)))
			if err != nil {
				return err
			}
			p.Filter.Topology = t
		}
		setFloat(&p.Filter.CutoffHz, flt.CutoffHz)
		setFloat(&p.Filter.Q, flt.Q)
		setFloat(&p.Filter.KeyTracking, flt.KeyTracking)
		setFloat(&p.Filter.PeakHz, flt.PeakHz)
		setFloat(&p.Filter.PeakQ, flt.PeakQ)
		setFloat(&p.Filter.PeakGainDB, flt.PeakGainDB)
	}

	if f.KeyVelocity != nil {
		if *f.KeyVelocity < 1 || *f.KeyVelocity > 127 {
			return fmt.Errorf("key_velocity must be in [1,127]")
		}
		dst.KeyVelocity = *f.KeyVelocity
	}

	if len(f.KeyMap) > 0 {
		keys := make([]string, 0, len(f.KeyMap))
		for k := range f.KeyMap {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		km := make(map[rune]int, len(keys))
		for _, k := range keys {
			r, size := utf8.DecodeRuneInString(k)
			if size == 0 || size != len(k) {
				return fmt.Errorf("invalid key_map key %q (expected a single character)", k)
			}
			note := f.KeyMap[k]
			if note < 0 || note > 127 {
				return fmt.Errorf("key_map[%q] must be in [0,127], got %d", k, note)
			}
			km[r] = note
		}
		dst.KeyMap = km
	}

	return p.Validate()
}

// File converts pr back into the JSON schema with every field set, so that
// applying it to any preset reproduces pr.
func (pr *Preset) File() *File {
	p := pr.Params
	ms := func(sec float32) *float32 { v := sec * 1000; return &v }
	keys := make(map[string]int, len(pr.KeyMap))
	for r, note := range pr.KeyMap {
		keys[string(r)] = note
	}
	return &File{
		SampleRate:    ptr(p.SampleRate),
		BlockSize:     ptr(p.BlockSize),
		Polyphony:     ptr(p.Polyphony),
		ControlRateHz: ptr(p.ControlRateHz),
		Waveform:      ptr(p.Waveform.String()),
		Envelope: &EnvelopeFile{
			AttackMs:  ms(p.Envelope.AttackSec),
			DecayMs:   ms(p.Envelope.DecaySec),
			Sustain:   ptr(p.Envelope.SustainLevel),
			ReleaseMs: ms(p.Envelope.ReleaseSec),
		},
		Filter: &FilterFile{
			Topology:    ptr(p.Filter.Topology.String()),
			CutoffHz:    ptr(p.Filter.CutoffHz),
			Q:           ptr(p.Filter.Q),
			KeyTracking: ptr(p.Filter.KeyTracking),
			PeakHz:      ptr(p.Filter.PeakHz),
			PeakQ:       ptr(p.Filter.PeakQ),
			PeakGainDB:  ptr(p.Filter.PeakGainDB),
		},
		VoiceGain:           ptr(p.VoiceGain),
		OutputGain:          ptr(p.OutputGain),
		VelocitySensitivity: ptr(p.VelocitySensitivity),
		EventQueueSize:      ptr(p.EventQueueSize),
		KeyVelocity:         ptr(pr.KeyVelocity),
		KeyMap:              keys,
	}
}

// SaveJSON writes pr as an indented preset file, creating the parent
// directory if needed.
func SaveJSON(path string, pr *Preset) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(pr.File(), "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return os.WriteFile(path, b, 0o644)
}

func ptr[T any](v T) *T { return &v }

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float32, v *float32) {
	if v != nil {
		*dst = *v
	}
}

func setMillis(dst *float32, ms *float32) {
	if ms != nil {
		*dst = *ms / 1000
	}
}
