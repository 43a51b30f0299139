package event

import "gitlab.com/gomidi/midi/v2"

// Omni accepts messages on every MIDI channel.
const Omni = -1

// FromMIDI translates a channel voice message into a note event. A note-on
// with velocity 0 becomes a NoteOff. Other messages, and messages on a
// channel other than channel (unless Omni), are reported as not handled.
func FromMIDI(msg midi.Message, channel int) (Event, bool) {
	var ch, key, vel uint8
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		if !onChannel(ch, channel) {
			return Event{}, false
		}
		return Event{Kind: KindNoteOn, Note: key, Velocity: vel}, true
	case msg.GetNoteEnd(&ch, &key):
		if !onChannel(ch, channel) {
			return Event{}, false
		}
		return Event{Kind: KindNoteOff, Note: key}, true
	}
	return Event{}, false
}

// ToMIDI is the inverse of FromMIDI on the given channel.
func ToMIDI(e Event, channel uint8) midi.Message {
	if e.Kind == KindNoteOn {
		return midi.NoteOn(channel, e.Note, e.Velocity)
	}
	return midi.NoteOff(channel, e.Note)
}

func onChannel(ch uint8, want int) bool {
	return want == Omni || int(ch) == want
}
