package synth

// Voice is one oscillator -> filter chain with its envelope: the unit of
// polyphony. Voices live in a VoicePool and are never created after it.
type Voice struct {
	slot       int
	generation uint64
	note       int
	velocity   int
	velGain    float32
	freq       float32

	osc    Oscillator
	filter FilterChain
	env    Envelope

	// prevGain is the control sample at the start of the current segment;
	// env.gain is the sample at its end.
	prevGain float32
}

func newVoice(slot int, params *Params) Voice {
	return Voice{
		slot:   slot,
		note:   -1,
		osc:    NewOscillator(params.Waveform),
		filter: NewFilterChain(&params.Filter),
		env:    NewEnvelope(&params.Envelope),
	}
}

// Slot returns the voice's fixed index in the pool.
func (v *Voice) Slot() int { return v.slot }

// Generation returns the activation counter of the voice's current note.
func (v *Voice) Generation() uint64 { return v.generation }

func (v *Voice) Note() int            { return v.note }
func (v *Voice) Velocity() int        { return v.velocity }
func (v *Voice) Frequency() float32   { return v.freq }
func (v *Voice) Phase() EnvelopePhase { return v.env.phase }
func (v *Voice) Gain() float32        { return v.env.gain }

// IsFree reports whether the voice can be allocated without stealing.
func (v *Voice) IsFree() bool { return v.env.phase == PhaseIdle }

// IsReleasing reports whether the note is in Release or waiting for its
// attack peak to enter it.
func (v *Voice) IsReleasing() bool {
	return v.env.phase == PhaseRelease || v.env.pending
}

func (v *Voice) boundTo(note int) bool { return !v.IsFree() && v.note == note }

// audible is true while either end of the current gain segment is non-zero,
// which includes the final ramp of a voice that has just gone Idle.
func (v *Voice) audible() bool { return v.prevGain > 0 || v.env.gain > 0 }

func (v *Voice) handle() VoiceHandle {
	return VoiceHandle{Slot: v.slot, Generation: v.generation}
}

// activate binds the voice to a new note. Oscillator and filter restart from
// clean state; the envelope restarts its attack from the current gain.
func (v *Voice) activate(note, velocity int, gen uint64, params *Params) {
	v.note = note
	v.velocity = velocity
	v.velGain = velocityGain(velocity, params.VelocitySensitivity)
	v.generation = gen
	v.freq = midiNoteToFreq(note)

	v.osc.SetFrequency(v.freq, params.SampleRate)
	v.osc.Reset()
	v.filter.Configure(v.freq, params.SampleRate)
	v.env.Trigger()
}

// retrigger restarts the attack of a voice already bound to the same note.
// Pitch and filter state are kept so the restart is click-free.
func (v *Voice) retrigger(velocity int, gen uint64, params *Params) {
	v.velocity = velocity
	v.velGain = velocityGain(velocity, params.VelocitySensitivity)
	v.generation = gen
	v.env.Trigger()
}

// RenderBlock fills out with the voice's oscillator -> filter output, before
// any envelope or velocity gain.
func (v *Voice) RenderBlock(out []float32) {
	v.osc.Render(out)
	v.filter.Process(out)
}
