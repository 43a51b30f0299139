package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/cwbudde/algo-keysynth/synth"
)

type knobDef struct {
	Name  string
	Min   float64
	Max   float64
	IsInt bool
}

type candidate struct {
	Vals []float64
}

// parseOptimizeGroups parses a comma-separated list of knob groups.
// Valid groups: envelope, filter, tone, level.
func parseOptimizeGroups(raw string) (map[string]bool, error) {
	valid := map[string]bool{"envelope": true, "filter": true, "tone": true, "level": true}
	groups := make(map[string]bool)
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if !valid[s] {
			return nil, fmt.Errorf("unknown optimize group %q (valid: envelope, filter, tone, level)", s)
		}
		groups[s] = true
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("no optimize groups specified")
	}
	return groups, nil
}

// initCandidate lists the knobs of the active groups and starts each one at
// the base patch's value.
func initCandidate(base *synth.Params, groups map[string]bool) ([]knobDef, candidate) {
	var defs []knobDef
	var vals []float64
	add := func(def knobDef, v float64) {
		defs = append(defs, def)
		vals = append(vals, clamp(v, def.Min, def.Max))
	}

	if groups["envelope"] {
		env := base.Envelope
		add(knobDef{Name: "attack_ms", Min: 0, Max: 500}, float64(env.AttackSec)*1000)
		add(knobDef{Name: "decay_ms", Min: 0, Max: 2000}, float64(env.DecaySec)*1000)
		add(knobDef{Name: "sustain", Min: 0, Max: 1}, float64(env.SustainLevel))
		add(knobDef{Name: "release_ms", Min: 0, Max: 3000}, float64(env.ReleaseSec)*1000)
	}
	if groups["filter"] {
		f := base.Filter
		add(knobDef{Name: "cutoff_hz", Min: 100, Max: 16000}, float64(f.CutoffHz))
		add(knobDef{Name: "q", Min: 0.3, Max: 8}, float64(f.Q))
		add(knobDef{Name: "key_tracking", Min: 0, Max: 1}, float64(f.KeyTracking))
	}
	if groups["tone"] {
		add(knobDef{Name: "waveform", Min: 0, Max: float64(synth.WaveSine), IsInt: true}, float64(base.Waveform))
	}
	if groups["level"] {
		add(knobDef{Name: "voice_gain", Min: 0.01, Max: 1}, float64(base.VoiceGain))
		add(knobDef{Name: "velocity_sensitivity", Min: 0, Max: 1}, float64(base.VelocitySensitivity))
	}
	return defs, candidate{Vals: vals}
}

// applyCandidate returns a copy of base with the candidate's knob values.
func applyCandidate(base *synth.Params, defs []knobDef, c candidate) *synth.Params {
	p := *base
	for i, d := range defs {
		v := clamp(c.Vals[i], d.Min, d.Max)
		switch d.Name {
		case "attack_ms":
			p.Envelope.AttackSec = float32(v / 1000)
		case "decay_ms":
			p.Envelope.DecaySec = float32(v / 1000)
		case "sustain":
			p.Envelope.SustainLevel = float32(v)
		case "release_ms":
			p.Envelope.ReleaseSec = float32(v / 1000)
		case "cutoff_hz":
			p.Filter.CutoffHz = float32(v)
		case "q":
			p.Filter.Q = float32(v)
		case "key_tracking":
			p.Filter.KeyTracking = float32(v)
		case "waveform":
			p.Waveform = synth.Waveform(math.Round(v))
		case "voice_gain":
			p.VoiceGain = float32(v)
		case "velocity_sensitivity":
			p.VelocitySensitivity = float32(v)
		}
	}
	return &p
}

func fromNormalized(pos []float64, defs []knobDef) candidate {
	vals := make([]float64, len(defs))
	for i := range defs {
		x := 0.0
		if i < len(pos) {
			x = clamp(pos[i], 0, 1)
		}
		v := defs[i].Min + x*(defs[i].Max-defs[i].Min)
		if defs[i].IsInt {
			v = math.Round(v)
		}
		vals[i] = v
	}
	return candidate{Vals: vals}
}

func knobMap(defs []knobDef, c candidate) map[string]float64 {
	m := make(map[string]float64, len(defs))
	for i, d := range defs {
		m[d.Name] = c.Vals[i]
	}
	return m
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}
