package event

import "fmt"

// KeysPerOctave is the number of columns in one matrix row.
const KeysPerOctave = 12

// KeyMatrix turns raw key-matrix scans into note events. Each octave row is
// kept as a bitmask, so repeated scans of an unchanged key produce nothing.
//
// The matrix has no velocity sensing; every NoteOn carries DefaultVelocity.
type KeyMatrix struct {
	BaseNote        int
	DefaultVelocity uint8

	rows []uint16
}

// NewKeyMatrix creates a matrix of octaves rows whose first key is baseNote.
func NewKeyMatrix(baseNote, octaves int, velocity uint8) (*KeyMatrix, error) {
	if octaves < 1 {
		return nil, fmt.Errorf("key matrix needs at least one octave, got %d", octaves)
	}
	if err := checkNote(baseNote); err != nil {
		return nil, err
	}
	if err := checkNote(baseNote + octaves*KeysPerOctave - 1); err != nil {
		return nil, fmt.Errorf("top key: %w", err)
	}
	if velocity == 0 || velocity > MaxVelocity {
		return nil, fmt.Errorf("%w: %d", ErrVelocityRange, velocity)
	}
	return &KeyMatrix{
		BaseNote:        baseNote,
		DefaultVelocity: velocity,
		rows:            make([]uint16, octaves),
	}, nil
}

// Octaves returns the number of rows.
func (m *KeyMatrix) Octaves() int { return len(m.rows) }

// Note returns the MIDI note of a matrix position.
func (m *KeyMatrix) Note(key, octave int) int {
	return m.BaseNote + octave*KeysPerOctave + key
}

// Update records the state of one key. It returns an event only when the
// state changed.
func (m *KeyMatrix) Update(key, octave int, pressed bool) (Event, bool) {
	if key < 0 || key >= KeysPerOctave || octave < 0 || octave >= len(m.rows) {
		return Event{}, false
	}
	bit := uint16(1) << key
	was := m.rows[octave]&bit != 0
	if was == pressed {
		return Event{}, false
	}
	note := uint8(m.Note(key, octave))
	if pressed {
		m.rows[octave] |= bit
		return Event{Kind: KindNoteOn, Note: note, Velocity: m.DefaultVelocity}, true
	}
	m.rows[octave] &^= bit
	return Event{Kind: KindNoteOff, Note: note}, true
}

// Scan diffs a full scan, one bitmask per octave, and calls emit for every
// change in key order. It returns the number of events emitted.
func (m *KeyMatrix) Scan(rows []uint16, emit func(Event)) int {
	n := 0
	for oct := 0; oct < len(m.rows) && oct < len(rows); oct++ {
		changed := (m.rows[oct] ^ rows[oct]) & (1<<KeysPerOctave - 1)
		for key := 0; changed != 0; key++ {
			if changed&1 != 0 {
				if e, ok := m.Update(key, oct, rows[oct]&(1<<key) != 0); ok {
					emit(e)
					n++
				}
			}
			changed >>= 1
		}
	}
	return n
}

// Pressed reports whether a key is currently down.
func (m *KeyMatrix) Pressed(key, octave int) bool {
	if key < 0 || key >= KeysPerOctave || octave < 0 || octave >= len(m.rows) {
		return false
	}
	return m.rows[octave]&(1<<key) != 0
}

// ReleaseAll clears every pressed key, emitting a NoteOff for each.
func (m *KeyMatrix) ReleaseAll(emit func(Event)) {
	for oct := range m.rows {
		for key := 0; key < KeysPerOctave; key++ {
			if e, ok := m.Update(key, oct, false); ok {
				emit(e)
			}
		}
	}
}
