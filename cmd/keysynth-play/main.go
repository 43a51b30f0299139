package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwbudde/algo-keysynth/event"
	"github.com/cwbudde/algo-keysynth/preset"
	"github.com/cwbudde/algo-keysynth/synth"
	"github.com/cwbudde/algo-keysynth/transport/otosink"
	"github.com/sirupsen/logrus"
)

func main() {
	presetPath := flag.String("preset", "", "Preset JSON file path (defaults when empty)")
	gate := flag.Duration("gate", 300*time.Millisecond, "How long a key press holds its note")
	scanRate := flag.Duration("scan", time.Millisecond, "Key scan period")
	latency := flag.Duration("latency", 20*time.Millisecond, "Audio device buffer")
	statsEvery := flag.Duration("stats", 5*time.Second, "Engine statistics log interval (0 disables)")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	logrus.SetLevel(level)

	if err := run(*presetPath, *gate, *scanRate, *latency, *statsEvery); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(presetPath string, gate, scanRate, latency, statsEvery time.Duration) error {
	pr := preset.Default()
	if presetPath != "" {
		var err error
		if pr, err = preset.LoadJSON(presetPath); err != nil {
			return fmt.Errorf("load preset %q: %w", presetPath, err)
		}
	}

	engine, err := synth.NewEngine(pr.Params)
	if err != nil {
		return err
	}
	scanner, err := newGateScanner(pr.KeyMap, pr.KeyVelocity, gate)
	if err != nil {
		return err
	}

	sink, err := otosink.New(pr.Params.SampleRate, latency)
	if err != nil {
		return err
	}
	defer sink.Close()
	sink.SetSource(engine)
	sink.Start()

	keys := newTerminalKeys()
	if err := keys.Start(); err != nil {
		return err
	}
	defer keys.Stop()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)

	fmt.Print("keys: a s d f g h j (w e t y u sharps), -/= octave, q quits\r\n")

	submit := func(ev event.Event) {
		if err := engine.Submit(ev); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "run",
				"event":    ev.String(),
				"error":    err.Error(),
			}).Warn("Event dropped")
		}
	}

	scan := time.NewTicker(scanRate)
	defer scan.Stop()
	var statsC <-chan time.Time
	if statsEvery > 0 {
		st := time.NewTicker(statsEvery)
		defer st.Stop()
		statsC = st.C
	}

	for {
		select {
		case <-sigs:
			scanner.ReleaseAll(submit)
			return nil
		case k := <-keys.Keys():
			if k == 'q' || k == 0x03 {
				scanner.ReleaseAll(submit)
				return nil
			}
			scanner.Press(rune(k), time.Now())
		case now := <-scan.C:
			scanner.Scan(now, submit)
		case <-statsC:
			s := engine.Stats()
			logrus.WithFields(logrus.Fields{
				"function":   "run",
				"blocks":     s.Blocks,
				"overruns":   s.Overruns,
				"max_render": s.MaxRender.String(),
				"budget":     engine.BlockPeriod().String(),
				"active":     s.ActiveVoices,
				"steals":     s.Steals,
				"dropped":    s.DroppedEvents,
			}).Info("Engine stats")
		}
	}
}
