package main

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/cwbudde/algo-keysynth/analysis"
	"github.com/cwbudde/algo-keysynth/internal/wavio"
	"github.com/cwbudde/algo-keysynth/preset"
	"github.com/cwbudde/algo-keysynth/synth"
	"github.com/cwbudde/algo-keysynth/transport"
	"github.com/sirupsen/logrus"
)

type options struct {
	presetPath string
	sequence   string
	chord      string
	velocity   int
	hold       time.Duration
	tail       time.Duration
	duration   time.Duration
	outRate    int
	stereo     bool
	output     string
	i2sRaw     string
	reference  string
	jsonOut    bool
}

func main() {
	var o options
	flag.StringVar(&o.presetPath, "preset", "", "Preset JSON file path (defaults when empty)")
	flag.StringVar(&o.sequence, "sequence", "", `Note sequence, e.g. "0ms on 60 100; 500ms off 60"`)
	flag.StringVar(&o.chord, "chord", "60,64,67", "Comma-separated notes pressed together when -sequence is empty")
	flag.IntVar(&o.velocity, "velocity", 100, "Chord velocity (1-127)")
	flag.DurationVar(&o.hold, "hold", 500*time.Millisecond, "Chord hold time before release")
	flag.DurationVar(&o.tail, "tail", 500*time.Millisecond, "Extra render time after the last event")
	flag.DurationVar(&o.duration, "duration", 0, "Total render time; overrides -tail when > 0")
	flag.IntVar(&o.outRate, "out-rate", 0, "Resample the output WAV to this rate (0 keeps the engine rate)")
	flag.BoolVar(&o.stereo, "stereo", false, "Write the mono signal to both channels")
	flag.StringVar(&o.output, "output", "keysynth.wav", "Output WAV file path")
	flag.StringVar(&o.i2sRaw, "i2s-raw", "", "Also write the render as raw little-endian 32-bit I2S stereo words (optional)")
	flag.StringVar(&o.reference, "compare", "", "Reference WAV to compare the render against (optional)")
	flag.BoolVar(&o.jsonOut, "json", false, "Print the analysis as JSON")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	logrus.SetLevel(level)

	if err := run(o); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(o options) error {
	pr := preset.Default()
	if o.presetPath != "" {
		var err error
		if pr, err = preset.LoadJSON(o.presetPath); err != nil {
			return fmt.Errorf("load preset %q: %w", o.presetPath, err)
		}
	}

	events, err := buildSequence(o)
	if err != nil {
		return err
	}

	engine, err := synth.NewEngine(pr.Params)
	if err != nil {
		return err
	}

	total := o.duration
	if total <= 0 {
		total = o.tail
		if n := len(events); n > 0 {
			total += events[n-1].At
		}
	}
	sr := pr.Params.SampleRate
	frames := int(total.Seconds() * float64(sr))
	if frames < 1 {
		return errors.New("render length must be positive")
	}

	logrus.WithFields(logrus.Fields{
		"function": "run",
		"events":   len(events),
		"frames":   frames,
		"output":   o.output,
	}).Info("Rendering")

	start := time.Now()
	samples := render(engine, events, frames)
	elapsed := time.Since(start)

	st := engine.Stats()
	logrus.WithFields(logrus.Fields{
		"function":   "run",
		"blocks":     st.Blocks,
		"overruns":   st.Overruns,
		"max_render": st.MaxRender.String(),
		"steals":     st.Steals,
		"dropped":    st.DroppedEvents,
		"realtime_x": fmt.Sprintf("%.1f", total.Seconds()/elapsed.Seconds()),
	}).Info("Render finished")

	if err := writeOutput(o, samples, sr); err != nil {
		return err
	}
	if o.i2sRaw != "" {
		if err := writeI2S(o.i2sRaw, samples); err != nil {
			return fmt.Errorf("write %q: %w", o.i2sRaw, err)
		}
	}

	return report(o, samples, sr)
}

func buildSequence(o options) ([]timedEvent, error) {
	if o.sequence != "" {
		return parseSequence(o.sequence)
	}
	notes, err := parseNotes(o.chord)
	if err != nil {
		return nil, err
	}
	return chordSequence(notes, o.velocity, o.hold)
}

// render splits rendering at event times so every event reaches the engine
// at the first block boundary at or after its timestamp.
func render(engine *synth.Engine, events []timedEvent, frames int) []float32 {
	sr := engine.Params().SampleRate
	out := make([]float32, frames)
	pos := 0
	for _, te := range events {
		at := min(int(te.At.Seconds()*float64(sr)), frames)
		if at > pos {
			engine.Process(out[pos:at])
			pos = at
		}
		if err := engine.Submit(te.Event); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "render",
				"event":    te.Event.String(),
				"error":    err.Error(),
			}).Warn("Event dropped")
		}
	}
	if pos < frames {
		engine.Process(out[pos:])
	}
	return out
}

func writeOutput(o options, samples []float32, sr int) error {
	data, rate := samples, sr
	if o.outRate > 0 && o.outRate != sr {
		res, err := wavio.Resample(wavio.ToFloat64(samples), sr, o.outRate)
		if err != nil {
			return err
		}
		data, rate = wavio.ToFloat32(res), o.outRate
	}
	write := wavio.WriteMono
	if o.stereo {
		write = wavio.WriteDualMono
	}
	if err := write(o.output, data, rate); err != nil {
		return fmt.Errorf("write %q: %w", o.output, err)
	}
	logrus.WithFields(logrus.Fields{
		"function":    "writeOutput",
		"path":        o.output,
		"frames":      len(data),
		"sample_rate": rate,
		"stereo":      o.stereo,
	}).Info("WAV written")
	return nil
}

// writeI2S dumps samples in the DMA buffer layout of the original board: one
// 32-bit word per frame, the 16-bit sample in both halves.
func writeI2S(path string, samples []float32) error {
	pcm := make([]int16, len(samples))
	transport.FloatToInt16(pcm, samples)
	words := make([]uint32, len(pcm))
	transport.PackStereoWords(words, pcm)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := binary.Write(w, binary.LittleEndian, words); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

type reportData struct {
	Summary  analysis.Summary   `json:"summary"`
	Distance *analysis.Distance `json:"distance,omitempty"`
}

func report(o options, samples []float32, sr int) error {
	x := wavio.ToFloat64(samples)
	r := reportData{Summary: analysis.Summarize(x, sr)}
	if math.IsNaN(r.Summary.DecayDBPerS) {
		r.Summary.DecayDBPerS = 0
	}

	if o.reference != "" {
		ref, refRate, err := wavio.ReadMono(o.reference)
		if err != nil {
			return fmt.Errorf("read reference: %w", err)
		}
		if ref, err = wavio.Resample(ref, refRate, sr); err != nil {
			return err
		}
		d := analysis.Compare(ref, x, sr/100)
		r.Distance = &d
	}

	if o.jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	s := r.Summary
	fmt.Printf("frames:        %d (%.3fs @ %d Hz)\n", s.Frames, float64(s.Frames)/float64(sr), sr)
	fmt.Printf("peak / rms:    %.1f / %.1f dBFS\n", s.PeakDB, s.RMSDB)
	fmt.Printf("dominant:      %.2f Hz (zero-crossing %.2f Hz)\n", s.DominantHz, s.ZeroCrossingHz)
	fmt.Printf("attack:        %.1f ms\n", s.AttackSec*1000)
	fmt.Printf("decay:         %.1f dB/s\n", s.DecayDBPerS)
	fmt.Printf("clipped:       %d, non-finite: %d\n", s.ClippedSamples, s.NonFinite)
	if d := r.Distance; d != nil {
		fmt.Printf("vs reference:  score %.3f (time %.4f, env %.2f dB, spectral %.2f dB, lag %d)\n",
			d.Score, d.TimeRMSE, d.EnvelopeRMSEDB, d.SpectralRMSEDB, d.LagSamples)
	}
	return nil
}
