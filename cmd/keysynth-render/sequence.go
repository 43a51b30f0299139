package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cwbudde/algo-keysynth/event"
)

// timedEvent is a note event at an offset from the start of the render.
type timedEvent struct {
	At    time.Duration
	Event event.Event
}

// parseSequence parses a ';'-separated list of "<time> on <note> <velocity>"
// and "<time> off <note>" entries, for example
//
//	0ms on 60 100; 250ms on 64 90; 1s off 60; 1s off 64
//
// Times use time.ParseDuration syntax. The result is ordered by time; entries
// at the same time keep their written order.
func parseSequence(s string) ([]timedEvent, error) {
	var out []timedEvent
	for i, item := range strings.Split(s, ";") {
		fields := strings.Fields(item)
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 3 {
			return nil, fmt.Errorf("entry %d %q: expected \"<time> on|off <note> [velocity]\"", i+1, strings.TrimSpace(item))
		}
		at, err := time.ParseDuration(fields[0])
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i+1, err)
		}
		if at < 0 {
			return nil, fmt.Errorf("entry %d: negative time %s", i+1, at)
		}
		note, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, fmt.Errorf("entry %d: note: %w", i+1, err)
		}

		var ev event.Event
		switch strings.ToLower(fields[1]) {
		case "on":
			if len(fields) != 4 {
				return nil, fmt.Errorf("entry %d: note on needs a velocity", i+1)
			}
			vel, err := strconv.Atoi(fields[3])
			if err != nil {
				return nil, fmt.Errorf("entry %d: velocity: %w", i+1, err)
			}
			ev, err = event.NoteOn(note, vel)
			if err != nil {
				return nil, fmt.Errorf("entry %d: %w", i+1, err)
			}
		case "off":
			if len(fields) != 3 {
				return nil, fmt.Errorf("entry %d: note off takes no velocity", i+1)
			}
			ev, err = event.NoteOff(note)
			if err != nil {
				return nil, fmt.Errorf("entry %d: %w", i+1, err)
			}
		default:
			return nil, fmt.Errorf("entry %d: unknown kind %q", i+1, fields[1])
		}
		out = append(out, timedEvent{At: at, Event: ev})
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].At < out[b].At })
	return out, nil
}

// chordSequence presses notes together at 0 and releases them after hold.
func chordSequence(notes []int, velocity int, hold time.Duration) ([]timedEvent, error) {
	var out []timedEvent
	for _, n := range notes {
		on, err := event.NoteOn(n, velocity)
		if err != nil {
			return nil, err
		}
		out = append(out, timedEvent{At: 0, Event: on})
	}
	for _, n := range notes {
		off, err := event.NoteOff(n)
		if err != nil {
			return nil, err
		}
		out = append(out, timedEvent{At: hold, Event: off})
	}
	return out, nil
}

func parseNotes(s string) ([]int, error) {
	var notes []int
	for _, f := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' }) {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("note %q: %w", f, err)
		}
		notes = append(notes, n)
	}
	return notes, nil
}
