package preset

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cwbudde/algo-keysynth/synth"
)

func writePreset(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "preset.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write preset: %v", err)
	}
	return path
}

func TestLoadJSONAppliesOverrides(t *testing.T) {
	path := writePreset(t, `{
  "polyphony": 4,
  "block_size": 256,
  "waveform": "Square",
  "envelope": {"attack_ms": 10, "release_ms": 500, "sustain": 0.5},
  "filter": {"topology": "lowpass+peak", "cutoff_hz": 2500, "peak_gain_db": -3},
  "output_gain": 0.9,
  "key_velocity": 90,
  "key_map": {"z": 48, "x": 50}
}`)

	pr, err := LoadJSON(path)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	p := pr.Params
	if p.Polyphony != 4 || p.BlockSize != 256 {
		t.Fatalf("size fields mismatch: %+v", p)
	}
	if p.Waveform != synth.WaveSquare {
		t.Fatalf("waveform mismatch: %v", p.Waveform)
	}
	if p.Envelope.AttackSec != 0.01 || p.Envelope.ReleaseSec != 0.5 || p.Envelope.SustainLevel != 0.5 {
		t.Fatalf("envelope mismatch: %+v", p.Envelope)
	}
	if p.Envelope.DecaySec != synth.NewDefaultParams().Envelope.DecaySec {
		t.Fatalf("decay should keep its default, got %f", p.Envelope.DecaySec)
	}
	if p.Filter.Topology != synth.FilterLowpassPeak || p.Filter.CutoffHz != 2500 || p.Filter.PeakGainDB != -3 {
		t.Fatalf("filter mismatch: %+v", p.Filter)
	}
	if p.OutputGain != 0.9 {
		t.Fatalf("output_gain mismatch: %f", p.OutputGain)
	}
	if pr.KeyVelocity != 90 {
		t.Fatalf("key_velocity mismatch: %d", pr.KeyVelocity)
	}
	if len(pr.KeyMap) != 2 || pr.KeyMap['z'] != 48 || pr.KeyMap['x'] != 50 {
		t.Fatalf("key_map mismatch: %v", pr.KeyMap)
	}
}

func TestLoadJSONEmptyKeepsDefaults(t *testing.T) {
	pr, err := LoadJSON(writePreset(t, `{}`))
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	def := Default()
	if *pr.Params != *def.Params {
		t.Fatalf("params changed: %+v", pr.Params)
	}
	if len(pr.KeyMap) != len(def.KeyMap) || pr.KeyMap['a'] != 60 || pr.KeyMap['j'] != 71 {
		t.Fatalf("default key map mismatch: %v", pr.KeyMap)
	}
}

func TestLoadJSONRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"syntax", `{"polyphony": }`, "parse"},
		{"waveform", `{"waveform": "noise"}`, "unknown waveform"},
		{"topology", `{"filter": {"topology": "comb"}}`, "unknown filter topology"},
		{"negative time", `{"envelope": {"decay_ms": -1}}`, "envelope times"},
		{"sustain range", `{"envelope": {"sustain": 1.5}}`, "sustain"},
		{"polyphony range", `{"polyphony": 0}`, "polyphony"},
		{"key map key", `{"key_map": {"ab": 60}}`, "single character"},
		{"key map note", `{"key_map": {"a": 128}}`, "key_map"},
		{"key velocity", `{"key_velocity": 0}`, "key_velocity"},
		{"queue size", `{"event_queue_size": 9223372036854775807}`, "event_queue_size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadJSON(writePreset(t, tt.content))
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadJSONMissingFile(t *testing.T) {
	if _, err := LoadJSON(filepath.Join(t.TempDir(), "missing.json")); !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestSaveJSONRoundTrip(t *testing.T) {
	pr := Default()
	pr.Params.Polyphony = 12
	pr.Params.Waveform = synth.WaveTriangle
	pr.Params.Envelope.AttackSec = 0.013
	pr.Params.Envelope.ReleaseSec = 0.4
	pr.Params.Filter.Topology = synth.FilterLowpassPeak
	pr.Params.Filter.CutoffHz = 1800
	pr.KeyVelocity = 77
	pr.KeyMap = map[rune]int{'q': 36}

	path := filepath.Join(t.TempDir(), "out", "fitted.json")
	if err := SaveJSON(path, pr); err != nil {
		t.Fatalf("SaveJSON: %v", err)
	}
	got, err := LoadJSON(path)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}

	near := func(a, b float32) bool { return math.Abs(float64(a-b)) < 1e-6 }
	g, w := got.Params, pr.Params
	if !near(g.Envelope.AttackSec, w.Envelope.AttackSec) || !near(g.Envelope.ReleaseSec, w.Envelope.ReleaseSec) {
		t.Fatalf("envelope mismatch: got %+v want %+v", g.Envelope, w.Envelope)
	}
	g.Envelope = w.Envelope
	if *g != *w {
		t.Fatalf("params mismatch:\n got %+v\nwant %+v", g, w)
	}
	if got.KeyVelocity != 77 || len(got.KeyMap) != 1 || got.KeyMap['q'] != 36 {
		t.Fatalf("keyboard mismatch: %d %v", got.KeyVelocity, got.KeyMap)
	}
}
