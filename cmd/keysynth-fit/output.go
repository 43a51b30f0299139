package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/cwbudde/algo-keysynth/analysis"
	"github.com/cwbudde/algo-keysynth/preset"
)

type runReport struct {
	ReferencePath string             `json:"reference_path"`
	PresetPath    string             `json:"preset_path,omitempty"`
	OutputPreset  string             `json:"output_preset"`
	SampleRate    int                `json:"sample_rate"`
	Notes         []int              `json:"notes"`
	Velocity      int                `json:"velocity"`
	HoldSec       float64            `json:"hold_seconds"`
	DurationSec   float64            `json:"elapsed_seconds"`
	Evaluations   int                `json:"evaluations"`
	MayflyVariant string             `json:"mayfly_variant"`
	StartScore    float64            `json:"start_score"`
	BestScore     float64            `json:"best_score"`
	BestDistance  analysis.Distance  `json:"best_distance"`
	BestKnobs     map[string]float64 `json:"best_knobs"`
	TopCandidates []topCandidate     `json:"top_candidates,omitempty"`
}

// writeOutputs saves the fitted preset (base keyboard settings, fitted
// engine params) and the JSON report next to it.
func writeOutputs(cfg *optimizationConfig, base *preset.Preset, res *optimizationResult, paths outputPaths) error {
	fitted := &preset.Preset{
		Params:      res.bestEval.params,
		KeyMap:      base.KeyMap,
		KeyVelocity: base.KeyVelocity,
	}
	if err := preset.SaveJSON(paths.preset, fitted); err != nil {
		return err
	}

	rep := runReport{
		ReferencePath: paths.reference,
		PresetPath:    paths.basePreset,
		OutputPreset:  paths.preset,
		SampleRate:    cfg.baseParams.SampleRate,
		Notes:         cfg.notes,
		Velocity:      cfg.velocity,
		HoldSec:       cfg.hold.Seconds(),
		DurationSec:   res.elapsed.Seconds(),
		Evaluations:   res.evals,
		MayflyVariant: cfg.mayflyVariant,
		StartScore:    res.start.Score,
		BestScore:     res.bestEval.distance.Score,
		BestDistance:  res.bestEval.distance,
		BestKnobs:     knobMap(cfg.defs, res.best),
		TopCandidates: res.top,
	}
	return writeJSON(paths.reportPath(), rep)
}

type outputPaths struct {
	reference  string
	basePreset string
	preset     string
	report     string
}

func (p outputPaths) reportPath() string {
	if p.report != "" {
		return p.report
	}
	return p.preset + ".report.json"
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return os.WriteFile(path, b, 0o644)
}

// loadCandidateFromReport restores best_knobs from an earlier report. Knobs
// missing from the report keep their fallback values.
func loadCandidateFromReport(path string, defs []knobDef, fallback candidate) (candidate, bool, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fallback, false, nil
		}
		return fallback, false, err
	}
	var rep struct {
		BestKnobs map[string]float64 `json:"best_knobs"`
	}
	if err := json.Unmarshal(b, &rep); err != nil {
		return fallback, false, err
	}

	vals := append([]float64(nil), fallback.Vals...)
	updated := false
	for i, d := range defs {
		if v, ok := rep.BestKnobs[d.Name]; ok {
			vals[i] = clamp(v, d.Min, d.Max)
			updated = true
		}
	}
	if !updated {
		return fallback, false, nil
	}
	return candidate{Vals: vals}, true, nil
}
