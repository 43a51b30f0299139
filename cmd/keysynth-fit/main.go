package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cwbudde/algo-keysynth/internal/wavio"
	"github.com/cwbudde/algo-keysynth/preset"
	"github.com/sirupsen/logrus"
)

func main() {
	referencePath := flag.String("reference", "", "Reference WAV to match (required)")
	presetPath := flag.String("preset", "", "Base preset JSON path (defaults when empty)")
	outputPreset := flag.String("output-preset", "out/fitted.json", "Path to write the fitted preset JSON")
	reportPath := flag.String("report", "", "Report JSON path (default: <output-preset>.report.json)")
	optimize := flag.String("optimize", "envelope,filter", "Comma-separated knob groups: envelope, filter, tone, level")
	notes := flag.String("notes", "60", "Comma-separated notes pressed together in each evaluation render")
	velocity := flag.Int("velocity", 100, "Velocity for evaluation renders (1-127)")
	hold := flag.Duration("hold", 500*time.Millisecond, "Key hold time before release")
	duration := flag.Duration("duration", 0, "Evaluation render length (0 uses the reference length)")
	maxLag := flag.Duration("max-lag", 10*time.Millisecond, "Largest alignment shift tried by the comparison")
	seed := flag.Int64("seed", 1, "Random seed")
	timeBudget := flag.Duration("time-budget", 60*time.Second, "Optimization time budget")
	maxEvals := flag.Int("max-evals", 2000, "Maximum objective evaluations")
	reportEvery := flag.Int("report-every", 50, "Print progress every N evaluations")
	topK := flag.Int("top-k", 5, "How many top candidates to keep in the report")
	resume := flag.Bool("resume", true, "Resume from the best_knobs of an existing report")
	workers := flag.String("workers", "1", "Parallel workers running independent Mayfly rounds (number or 'auto')")
	mayflyVariant := flag.String("mayfly-variant", "desma", "Mayfly variant: ma|desma|olce|eobbma|gsasma|mpma|aoblmoa")
	mayflyPop := flag.Int("mayfly-pop", 10, "Male and female population size per Mayfly run")
	mayflyRoundEvals := flag.Int("mayfly-round-evals", 240, "Target eval budget per Mayfly round")
	logLevel := flag.String("log-level", "warn", "Log level (debug, info, warn, error)")
	flag.Parse()

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		die("invalid --log-level: %v", err)
	}
	logrus.SetLevel(level)

	if *referencePath == "" {
		die("--reference is required")
	}
	groups, err := parseOptimizeGroups(*optimize)
	if err != nil {
		die("invalid --optimize: %v", err)
	}
	noteList, err := parseNotes(*notes)
	if err != nil {
		die("invalid --notes: %v", err)
	}
	if *velocity < 1 || *velocity > 127 {
		die("velocity must be in [1,127]")
	}
	if *maxEvals < 1 {
		die("max-evals must be >= 1")
	}
	if *timeBudget <= 0 {
		die("time-budget must be > 0")
	}
	*mayflyPop = max(*mayflyPop, 2)
	*mayflyRoundEvals = max(*mayflyRoundEvals, 2*(*mayflyPop))
	*topK = max(*topK, 1)
	parsedWorkers, err := parseWorkersFlag(*workers)
	if err != nil {
		die("invalid --workers: %v", err)
	}

	base := preset.Default()
	if *presetPath != "" {
		if base, err = preset.LoadJSON(*presetPath); err != nil {
			die("failed to load preset: %v", err)
		}
	}
	sr := base.Params.SampleRate

	refRaw, refSR, err := wavio.ReadMono(*referencePath)
	if err != nil {
		die("failed to read reference: %v", err)
	}
	reference, err := wavio.Resample(refRaw, refSR, sr)
	if err != nil {
		die("failed to resample reference: %v", err)
	}
	frames := len(reference)
	if *duration > 0 {
		frames = int(duration.Seconds() * float64(sr))
	}

	defs, initCand := initCandidate(base.Params, groups)
	paths := outputPaths{
		reference:  *referencePath,
		basePreset: *presetPath,
		preset:     *outputPreset,
		report:     *reportPath,
	}
	if *resume {
		if resumed, ok, err := loadCandidateFromReport(paths.reportPath(), defs, initCand); err != nil {
			fmt.Fprintf(os.Stderr, "resume skipped (%s): %v\n", paths.reportPath(), err)
		} else if ok {
			initCand = resumed
			fmt.Printf("Resumed candidate from %s\n", paths.reportPath())
		}
	}

	cfg := &optimizationConfig{
		reference:        reference,
		baseParams:       base.Params,
		defs:             defs,
		initCandidate:    initCand,
		notes:            noteList,
		velocity:         *velocity,
		hold:             *hold,
		frames:           frames,
		maxLag:           int(maxLag.Seconds() * float64(sr)),
		seed:             *seed,
		timeBudget:       *timeBudget,
		maxEvals:         *maxEvals,
		reportEvery:      max(*reportEvery, 1),
		mayflyVariant:    strings.ToLower(*mayflyVariant),
		mayflyPop:        *mayflyPop,
		mayflyRoundEvals: *mayflyRoundEvals,
		workers:          parsedWorkers,
		topK:             *topK,
	}

	result, err := runOptimization(cfg)
	if err != nil {
		die("optimization failed: %v", err)
	}
	if err := writeOutputs(cfg, base, result, paths); err != nil {
		die("failed to write outputs: %v", err)
	}

	fmt.Printf("Done evals=%d elapsed=%.1fs start_score=%.4f best_score=%.4f variant=%s\n",
		result.evals, result.elapsed.Seconds(), result.start.Score, result.bestEval.distance.Score, cfg.mayflyVariant)
}

// parseWorkersFlag accepts a positive count or "auto" (returned as 0, one
// worker per GOMAXPROCS).
func parseWorkersFlag(raw string) (int, error) {
	s := strings.TrimSpace(strings.ToLower(raw))
	if s == "auto" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("expected a number or 'auto', got %q", raw)
	}
	if n < 1 {
		return 0, fmt.Errorf("workers must be >= 1, got %d", n)
	}
	return n, nil
}

func parseNotes(raw string) ([]int, error) {
	var notes []int
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("invalid note %q", s)
		}
		if n < 0 || n > 127 {
			return nil, fmt.Errorf("note %d out of range [0,127]", n)
		}
		notes = append(notes, n)
	}
	if len(notes) == 0 {
		return nil, fmt.Errorf("no notes given")
	}
	return notes, nil
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
