package main

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cwbudde/algo-keysynth/preset"
	"github.com/cwbudde/algo-keysynth/synth"
	"github.com/sirupsen/logrus"
)

func TestParseOptimizeGroups(t *testing.T) {
	groups, err := parseOptimizeGroups(" envelope, tone ,")
	if err != nil {
		t.Fatalf("parseOptimizeGroups: %v", err)
	}
	if len(groups) != 2 || !groups["envelope"] || !groups["tone"] {
		t.Fatalf("groups = %v", groups)
	}
	if _, err := parseOptimizeGroups("envelope,body-ir"); err == nil {
		t.Fatalf("expected error for unknown group")
	}
	if _, err := parseOptimizeGroups(" , "); err == nil {
		t.Fatalf("expected error for empty list")
	}
}

func TestParseWorkersFlag(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "1", want: 1},
		{in: "8", want: 8},
		{in: "auto", want: 0},
		{in: "AUTO", want: 0},
		{in: "0", wantErr: true},
		{in: "-2", wantErr: true},
		{in: "abc", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseWorkersFlag(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("parseWorkersFlag(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("parseWorkersFlag(%q) unexpected error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("parseWorkersFlag(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestNewMayflyConfig(t *testing.T) {
	for _, variant := range []string{"ma", "desma", "olce", "eobbma", "gsasma", "mpma", "aoblmoa"} {
		t.Run(variant, func(t *testing.T) {
			cfg, err := newMayflyConfig(variant, 10, 5, 20)
			if err != nil {
				t.Fatalf("newMayflyConfig(%q): %v", variant, err)
			}
			if cfg.ProblemSize != 5 || cfg.NPop != 10 || cfg.MaxIterations != 20 {
				t.Fatalf("config mismatch: size=%d pop=%d iters=%d", cfg.ProblemSize, cfg.NPop, cfg.MaxIterations)
			}
		})
	}
	if _, err := newMayflyConfig("bogus", 10, 5, 20); err == nil {
		t.Fatalf("expected error for unknown variant")
	}
}

func TestInitCandidateMatchesBase(t *testing.T) {
	base := synth.NewDefaultParams()
	groups := map[string]bool{"envelope": true, "filter": true, "tone": true, "level": true}
	defs, c := initCandidate(base, groups)
	if len(defs) != 10 || len(c.Vals) != len(defs) {
		t.Fatalf("got %d knobs / %d values", len(defs), len(c.Vals))
	}

	p := applyCandidate(base, defs, c)
	if math.Abs(float64(p.Envelope.AttackSec-base.Envelope.AttackSec)) > 1e-7 ||
		math.Abs(float64(p.Envelope.ReleaseSec-base.Envelope.ReleaseSec)) > 1e-7 {
		t.Fatalf("envelope drifted: %+v vs %+v", p.Envelope, base.Envelope)
	}
	if p.Waveform != base.Waveform || p.Filter.CutoffHz != base.Filter.CutoffHz || p.VoiceGain != base.VoiceGain {
		t.Fatalf("params drifted: %+v", p)
	}
	if p == base {
		t.Fatalf("applyCandidate must copy the base params")
	}
}

func TestFromNormalizedRespectsBounds(t *testing.T) {
	defs := []knobDef{
		{Name: "sustain", Min: 0, Max: 1},
		{Name: "cutoff_hz", Min: 100, Max: 16000},
		{Name: "waveform", Min: 0, Max: 3, IsInt: true},
	}
	c := fromNormalized([]float64{-0.5, 1.5, 0.55}, defs)
	if c.Vals[0] != 0 || c.Vals[1] != 16000 {
		t.Fatalf("values not clamped: %v", c.Vals)
	}
	if c.Vals[2] != 2 {
		t.Fatalf("integer knob = %f, want 2", c.Vals[2])
	}

	p := applyCandidate(synth.NewDefaultParams(), defs, c)
	if p.Waveform != synth.WaveTriangle || p.Envelope.SustainLevel != 0 {
		t.Fatalf("apply mismatch: %v %f", p.Waveform, p.Envelope.SustainLevel)
	}
}

func TestLoadCandidateFromReportBestKnobs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rep.json")
	content := `{"best_knobs": {"attack_ms": 42, "sustain": 7, "unknown": 1}}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write report: %v", err)
	}
	defs := []knobDef{
		{Name: "attack_ms", Min: 0, Max: 500},
		{Name: "sustain", Min: 0, Max: 1},
		{Name: "q", Min: 0.3, Max: 8},
	}
	fallback := candidate{Vals: []float64{5, 0.5, 0.7}}

	got, ok, err := loadCandidateFromReport(path, defs, fallback)
	if err != nil || !ok {
		t.Fatalf("loadCandidateFromReport: ok=%v err=%v", ok, err)
	}
	if got.Vals[0] != 42 || got.Vals[1] != 1 || got.Vals[2] != 0.7 {
		t.Fatalf("vals = %v", got.Vals)
	}
	if fallback.Vals[0] != 5 {
		t.Fatalf("fallback modified: %v", fallback.Vals)
	}

	_, ok, err = loadCandidateFromReport(filepath.Join(t.TempDir(), "missing.json"), defs, fallback)
	if err != nil || ok {
		t.Fatalf("missing report: ok=%v err=%v", ok, err)
	}
}

func TestRunOptimizationKeepsBestAndWritesPreset(t *testing.T) {
	logrus.SetLevel(logrus.WarnLevel)

	target := synth.NewDefaultParams()
	target.SampleRate = 16000
	target.BlockSize = 160
	target.Envelope.AttackSec = 0.030
	target.Envelope.ReleaseSec = 0.080
	target.Envelope.SustainLevel = 0.4
	notes := []int{57}
	hold := 150 * time.Millisecond
	frames := 16000 * 3 / 10
	reference, err := renderCandidate(target, notes, 100, hold, frames)
	if err != nil {
		t.Fatalf("render reference: %v", err)
	}

	base := preset.Default()
	base.Params.SampleRate = target.SampleRate
	base.Params.BlockSize = target.BlockSize
	defs, start := initCandidate(base.Params, map[string]bool{"envelope": true})

	cfg := &optimizationConfig{
		reference:        reference,
		baseParams:       base.Params,
		defs:             defs,
		initCandidate:    start,
		notes:            notes,
		velocity:         100,
		hold:             hold,
		frames:           frames,
		maxLag:           80,
		seed:             3,
		timeBudget:       30 * time.Second,
		maxEvals:         24,
		mayflyVariant:    "ma",
		mayflyPop:        4,
		mayflyRoundEvals: 16,
		workers:          1,
		topK:             3,
	}
	res, err := runOptimization(cfg)
	if err != nil {
		t.Fatalf("runOptimization: %v", err)
	}
	if res.evals < 1 || res.evals > cfg.maxEvals {
		t.Fatalf("evals = %d, want within [1,%d]", res.evals, cfg.maxEvals)
	}
	if res.bestEval.distance.Score > res.start.Score {
		t.Fatalf("best score %.4f worse than start %.4f", res.bestEval.distance.Score, res.start.Score)
	}
	if len(res.top) == 0 || len(res.top) > cfg.topK || res.top[0].Score != res.bestEval.distance.Score {
		t.Fatalf("top candidates inconsistent: %+v", res.top)
	}

	dir := t.TempDir()
	paths := outputPaths{reference: "ref.wav", preset: filepath.Join(dir, "fitted.json")}
	if err := writeOutputs(cfg, base, res, paths); err != nil {
		t.Fatalf("writeOutputs: %v", err)
	}
	fitted, err := preset.LoadJSON(paths.preset)
	if err != nil {
		t.Fatalf("load fitted preset: %v", err)
	}
	if fitted.Params.SampleRate != 16000 || fitted.Params.Waveform != base.Params.Waveform {
		t.Fatalf("fitted preset mismatch: %+v", fitted.Params)
	}
	if _, err := os.Stat(paths.reportPath()); err != nil {
		t.Fatalf("report missing: %v", err)
	}
	resumed, ok, err := loadCandidateFromReport(paths.reportPath(), defs, start)
	if err != nil || !ok {
		t.Fatalf("resume from written report: ok=%v err=%v", ok, err)
	}
	for i := range defs {
		if resumed.Vals[i] != res.best.Vals[i] {
			t.Fatalf("resumed %s = %f, want %f", defs[i].Name, resumed.Vals[i], res.best.Vals[i])
		}
	}
}
