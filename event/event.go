// Package event is the inbound side of the synth: note events, their boundary
// validation, the lock-free queue that carries them into the audio domain and
// adapters from MIDI messages and key-matrix scans.
package event

import (
	"errors"
	"fmt"
)

// Kind tags a note event.
type Kind uint8

const (
	KindNoteOn Kind = iota + 1
	KindNoteOff
)

func (k Kind) String() string {
	switch k {
	case KindNoteOn:
		return "note_on"
	case KindNoteOff:
		return "note_off"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

const (
	MaxNote     = 127
	MaxVelocity = 127
)

var (
	ErrNoteRange     = errors.New("note out of range")
	ErrVelocityRange = errors.New("velocity out of range")
	ErrKind          = errors.New("unknown event kind")
)

// Event is a NoteOn or NoteOff. Velocity is ignored for NoteOff.
type Event struct {
	Kind     Kind
	Note     uint8
	Velocity uint8
}

// NoteOn builds a NoteOn event from integer inputs. A velocity of 0 is a
// NoteOff, as in MIDI running status.
func NoteOn(note, velocity int) (Event, error) {
	if err := checkNote(note); err != nil {
		return Event{}, err
	}
	if velocity < 0 || velocity > MaxVelocity {
		return Event{}, fmt.Errorf("%w: %d", ErrVelocityRange, velocity)
	}
	if velocity == 0 {
		return Event{Kind: KindNoteOff, Note: uint8(note)}, nil
	}
	return Event{Kind: KindNoteOn, Note: uint8(note), Velocity: uint8(velocity)}, nil
}

// NoteOff builds a NoteOff event.
func NoteOff(note int) (Event, error) {
	if err := checkNote(note); err != nil {
		return Event{}, err
	}
	return Event{Kind: KindNoteOff, Note: uint8(note)}, nil
}

// Validate checks an event assembled by hand.
func (e Event) Validate() error {
	switch e.Kind {
	case KindNoteOn, KindNoteOff:
	default:
		return fmt.Errorf("%w: %d", ErrKind, uint8(e.Kind))
	}
	if e.Note > MaxNote {
		return fmt.Errorf("%w: %d", ErrNoteRange, e.Note)
	}
	if e.Kind == KindNoteOn && e.Velocity > MaxVelocity {
		return fmt.Errorf("%w: %d", ErrVelocityRange, e.Velocity)
	}
	return nil
}

func (e Event) String() string {
	if e.Kind == KindNoteOn {
		return fmt.Sprintf("%s note=%d vel=%d", e.Kind, e.Note, e.Velocity)
	}
	return fmt.Sprintf("%s note=%d", e.Kind, e.Note)
}

func checkNote(note int) error {
	if note < 0 || note > MaxNote {
		return fmt.Errorf("%w: %d", ErrNoteRange, note)
	}
	return nil
}
