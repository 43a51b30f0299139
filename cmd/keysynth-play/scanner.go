package main

import (
	"time"

	"github.com/cwbudde/algo-keysynth/event"
)

// Matrix geometry used for terminal play: C1 up to B8.
const (
	matrixBase    = 24
	matrixOctaves = 8
)

// gateScanner turns terminal key presses into a key-matrix scan. A terminal
// only reports presses, so each press holds its key for gate; repeats while
// held extend it.
type gateScanner struct {
	keyMap    map[rune]int
	transpose int
	gate      time.Duration

	matrix *event.KeyMatrix
	until  map[int]time.Time
	rows   []uint16
}

func newGateScanner(keyMap map[rune]int, velocity int, gate time.Duration) (*gateScanner, error) {
	m, err := event.NewKeyMatrix(matrixBase, matrixOctaves, uint8(velocity))
	if err != nil {
		return nil, err
	}
	return &gateScanner{
		keyMap: keyMap,
		gate:   gate,
		matrix: m,
		until:  make(map[int]time.Time),
		rows:   make([]uint16, matrixOctaves),
	}, nil
}

// Press handles one terminal key at time now. It reports whether the key
// was mapped.
func (s *gateScanner) Press(key rune, now time.Time) bool {
	switch key {
	case '-':
		s.shift(-12)
		return true
	case '=', '+':
		s.shift(12)
		return true
	}
	note, ok := s.keyMap[key]
	if !ok {
		return false
	}
	note += s.transpose
	if note < matrixBase || note >= matrixBase+matrixOctaves*event.KeysPerOctave {
		return false
	}
	s.until[note] = now.Add(s.gate)
	return true
}

func (s *gateScanner) shift(semitones int) {
	lo, hi := 127, 0
	for _, n := range s.keyMap {
		lo, hi = min(lo, n), max(hi, n)
	}
	t := s.transpose + semitones
	if lo+t < matrixBase || hi+t >= matrixBase+matrixOctaves*event.KeysPerOctave {
		return
	}
	s.transpose = t
}

// Scan builds the current matrix rows from the held keys and emits the
// resulting note events.
func (s *gateScanner) Scan(now time.Time, emit func(event.Event)) int {
	clear(s.rows)
	for note, until := range s.until {
		if !now.Before(until) {
			delete(s.until, note)
			continue
		}
		off := note - matrixBase
		s.rows[off/event.KeysPerOctave] |= 1 << (off % event.KeysPerOctave)
	}
	return s.matrix.Scan(s.rows, emit)
}

// ReleaseAll drops every held key.
func (s *gateScanner) ReleaseAll(emit func(event.Event)) {
	clear(s.until)
	s.matrix.ReleaseAll(emit)
}
