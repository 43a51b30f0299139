package main

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cwbudde/algo-keysynth/analysis"
	"github.com/cwbudde/algo-keysynth/synth"
	"github.com/cwbudde/mayfly"
	"github.com/sirupsen/logrus"
)

type topCandidate struct {
	Eval  int                `json:"eval"`
	Score float64            `json:"score"`
	Knobs map[string]float64 `json:"knobs"`
}

type optimizationConfig struct {
	reference        []float64
	baseParams       *synth.Params
	defs             []knobDef
	initCandidate    candidate
	notes            []int
	velocity         int
	hold             time.Duration
	frames           int
	maxLag           int
	seed             int64
	timeBudget       time.Duration
	maxEvals         int
	reportEvery      int
	mayflyVariant    string
	mayflyPop        int
	mayflyRoundEvals int
	workers          int
	topK             int
}

type optimizationEval struct {
	distance analysis.Distance
	params   *synth.Params
}

type optimizationResult struct {
	best     candidate
	bestEval optimizationEval
	start    analysis.Distance
	top      []topCandidate
	evals    int
	elapsed  time.Duration
}

type optimizationState struct {
	mu       sync.Mutex
	best     candidate
	bestEval optimizationEval
	top      []topCandidate
}

// runOptimization searches the knob space with independent Mayfly rounds on
// each worker until the eval budget or the time budget runs out.
func runOptimization(cfg *optimizationConfig) (*optimizationResult, error) {
	start := time.Now()
	deadline := start.Add(cfg.timeBudget)
	variant := strings.ToLower(cfg.mayflyVariant)
	if _, err := newMayflyConfig(variant, cfg.mayflyPop, len(cfg.defs), 1); err != nil {
		return nil, err
	}

	initial, err := evaluateCandidate(cfg, cfg.initCandidate)
	if err != nil {
		return nil, fmt.Errorf("initial evaluation failed: %w", err)
	}
	fmt.Printf("Start score=%.4f\n", initial.distance.Score)

	state := &optimizationState{
		best:     cloneCandidate(cfg.initCandidate),
		bestEval: initial,
		top:      updateTopCandidates(nil, cfg.topK, 1, initial.distance, cfg.defs, cfg.initCandidate),
	}

	var evals int64 = 1
	var rounds int64
	var improves int64

	workers := cfg.workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = max(workers, 1)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if time.Now().After(deadline) {
					return
				}
				remaining := cfg.maxEvals - int(atomic.LoadInt64(&evals))
				if remaining <= 0 {
					return
				}
				round := atomic.AddInt64(&rounds, 1)
				budget := min(cfg.mayflyRoundEvals, remaining)
				iters := max(1, budget/(2*cfg.mayflyPop))

				mcfg, err := newMayflyConfig(variant, cfg.mayflyPop, len(cfg.defs), iters)
				if err != nil {
					return
				}
				mcfg.Rand = rand.New(rand.NewSource(cfg.seed + round*7919))
				mcfg.ObjectiveFunc = func(pos []float64) float64 {
					if time.Now().After(deadline) {
						return currentBestScore(state) + 1.0
					}
					evalNum, ok := reserveEval(&evals, cfg.maxEvals)
					if !ok {
						return currentBestScore(state) + 1.0
					}

					cand := fromNormalized(pos, cfg.defs)
					res, err := evaluateCandidate(cfg, cand)
					if err != nil {
						// Out-of-range combinations score worse than anything valid.
						return currentBestScore(state) + 0.8
					}

					state.mu.Lock()
					state.top = updateTopCandidates(state.top, cfg.topK, int(evalNum), res.distance, cfg.defs, cand)
					improved := res.distance.Score < state.bestEval.distance.Score
					if improved {
						state.best = cloneCandidate(cand)
						state.bestEval = res
					}
					bestScore := state.bestEval.distance.Score
					state.mu.Unlock()

					if improved {
						n := atomic.AddInt64(&improves, 1)
						fmt.Printf("Improved #%d eval=%d score=%.4f\n", n, evalNum, res.distance.Score)
					}
					if cfg.reportEvery > 0 && evalNum%int64(cfg.reportEvery) == 0 {
						fmt.Printf("Progress eval=%d/%d elapsed=%.1fs best=%.4f\n",
							evalNum, cfg.maxEvals, time.Since(start).Seconds(), bestScore)
					}
					return res.distance.Score
				}

				if _, err := runMayfly(mcfg); err != nil {
					logrus.WithFields(logrus.Fields{
						"function": "runOptimization",
						"round":    round,
						"error":    err.Error(),
					}).Warn("Mayfly round failed")
				}
			}
		}()
	}
	wg.Wait()

	state.mu.Lock()
	defer state.mu.Unlock()
	return &optimizationResult{
		best:     cloneCandidate(state.best),
		bestEval: state.bestEval,
		start:    initial.distance,
		top:      cloneTopCandidates(state.top),
		evals:    int(atomic.LoadInt64(&evals)),
		elapsed:  time.Since(start),
	}, nil
}

func evaluateCandidate(cfg *optimizationConfig, c candidate) (optimizationEval, error) {
	params := applyCandidate(cfg.baseParams, cfg.defs, c)
	out, err := renderCandidate(params, cfg.notes, cfg.velocity, cfg.hold, cfg.frames)
	if err != nil {
		return optimizationEval{}, err
	}
	return optimizationEval{
		distance: analysis.Compare(cfg.reference, out, cfg.maxLag),
		params:   params,
	}, nil
}

// renderCandidate presses notes together, releases them after hold and
// renders frames samples in total.
func renderCandidate(params *synth.Params, notes []int, velocity int, hold time.Duration, frames int) ([]float64, error) {
	if frames < 1 {
		return nil, errors.New("render length must be positive")
	}
	engine, err := synth.NewEngine(params)
	if err != nil {
		return nil, err
	}
	for _, n := range notes {
		if err := engine.NoteOn(n, velocity); err != nil {
			return nil, err
		}
	}

	buf := make([]float32, frames)
	releaseAt := min(int(hold.Seconds()*float64(params.SampleRate)), frames)
	engine.Process(buf[:releaseAt])
	for _, n := range notes {
		if err := engine.NoteOff(n); err != nil {
			return nil, err
		}
	}
	engine.Process(buf[releaseAt:])

	out := make([]float64, frames)
	for i, v := range buf {
		out[i] = float64(v)
	}
	return out, nil
}

func newMayflyConfig(variant string, pop int, dims int, iters int) (*mayfly.Config, error) {
	var cfg *mayfly.Config
	switch variant {
	case "ma":
		cfg = mayfly.NewDefaultConfig()
	case "desma":
		cfg = mayfly.NewDESMAConfig()
	case "olce":
		cfg = mayfly.NewOLCEConfig()
	case "eobbma":
		cfg = mayfly.NewEOBBMAConfig()
	case "gsasma":
		cfg = mayfly.NewGSASMAConfig()
	case "mpma":
		cfg = mayfly.NewMPMAConfig()
	case "aoblmoa":
		cfg = mayfly.NewAOBLMOAConfig()
	default:
		return nil, fmt.Errorf("unsupported variant %q", variant)
	}
	cfg.ProblemSize = dims
	cfg.LowerBound = 0.0
	cfg.UpperBound = 1.0
	cfg.MaxIterations = iters
	cfg.NPop = pop
	cfg.NPopF = pop
	cfg.NC = 2 * pop
	cfg.NM = max(1, int(math.Round(0.05*float64(pop))))
	return cfg, nil
}

func runMayfly(cfg *mayfly.Config) (_ *mayfly.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mayfly panic: %v", r)
		}
	}()
	return mayfly.Optimize(cfg)
}

func reserveEval(evals *int64, maxEvals int) (int64, bool) {
	for {
		cur := atomic.LoadInt64(evals)
		if cur >= int64(maxEvals) {
			return 0, false
		}
		if atomic.CompareAndSwapInt64(evals, cur, cur+1) {
			return cur + 1, true
		}
	}
}

func currentBestScore(state *optimizationState) float64 {
	state.mu.Lock()
	defer state.mu.Unlock()
	return state.bestEval.distance.Score
}

func updateTopCandidates(top []topCandidate, topK int, eval int, d analysis.Distance, defs []knobDef, c candidate) []topCandidate {
	top = append(top, topCandidate{
		Eval:  eval,
		Score: d.Score,
		Knobs: knobMap(defs, c),
	})
	sort.Slice(top, func(i, j int) bool {
		if top[i].Score == top[j].Score {
			return top[i].Eval < top[j].Eval
		}
		return top[i].Score < top[j].Score
	})
	if len(top) > topK {
		top = top[:topK]
	}
	return top
}

func cloneCandidate(c candidate) candidate {
	return candidate{Vals: append([]float64(nil), c.Vals...)}
}

func cloneTopCandidates(in []topCandidate) []topCandidate {
	out := make([]topCandidate, len(in))
	for i, e := range in {
		out[i] = topCandidate{Eval: e.Eval, Score: e.Score, Knobs: make(map[string]float64, len(e.Knobs))}
		for k, v := range e.Knobs {
			out[i].Knobs[k] = v
		}
	}
	return out
}
