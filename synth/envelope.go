package synth

// EnvelopePhase is the ADSR stage of a voice.
type EnvelopePhase uint8

const (
	PhaseIdle EnvelopePhase = iota
	PhaseAttack
	PhaseDecay
	PhaseSustain
	PhaseRelease
)

func (p EnvelopePhase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAttack:
		return "attack"
	case PhaseDecay:
		return "decay"
	case PhaseSustain:
		return "sustain"
	case PhaseRelease:
		return "release"
	}
	return "unknown"
}

// Envelope is a linear ADSR state machine advanced at control rate.
//
// Each segment's slope is fixed when the segment starts, from the distance to
// its target and the configured duration. A release requested during Attack is
// held back until the attack peak has been reached.
//
// With a SustainLevel of 0 there is no Sustain phase: the end of Decay drops
// the envelope to Idle even while the key is still held, and a later Release
// does nothing.
type Envelope struct {
	params  *EnvelopeParams
	phase   EnvelopePhase
	gain    float32
	rate    float32 // gain units per second for the current segment
	pending bool    // release requested before the attack peak
}

// NewEnvelope creates an idle envelope sharing the given defaults.
func NewEnvelope(params *EnvelopeParams) Envelope {
	return Envelope{params: params}
}

func (e *Envelope) Phase() EnvelopePhase { return e.phase }
func (e *Envelope) Gain() float32        { return e.gain }

// ReleasePending reports whether a release is waiting for the attack peak.
func (e *Envelope) ReleasePending() bool { return e.pending }

// Trigger (re)starts the Attack segment from the current gain.
func (e *Envelope) Trigger() {
	e.phase = PhaseAttack
	e.pending = false
	e.rate = segmentRate(1-e.gain, e.params.AttackSec)
}

// Release starts the Release segment. During Attack it is deferred until the
// peak; in Idle or Release it does nothing.
func (e *Envelope) Release() {
	switch e.phase {
	case PhaseAttack:
		e.pending = true
	case PhaseDecay, PhaseSustain:
		e.startRelease()
	}
}

// Kill drops the envelope to Idle immediately.
func (e *Envelope) Kill() {
	e.phase = PhaseIdle
	e.gain = 0
	e.rate = 0
	e.pending = false
}

func (e *Envelope) startRelease() {
	e.phase = PhaseRelease
	e.pending = false
	e.rate = segmentRate(e.gain, e.params.ReleaseSec)
}

func (e *Envelope) startDecay() {
	e.phase = PhaseDecay
	e.rate = segmentRate(1-e.params.SustainLevel, e.params.DecaySec)
}

// segmentRate returns the slope covering distance in dur seconds; zero-length
// segments get a rate of 0 and are completed by Advance without stepping.
func segmentRate(distance, dur float32) float32 {
	if dur <= 0 || distance <= 0 {
		return 0
	}
	return distance / dur
}

// Advance moves the envelope forward by dt seconds.
//
// Segments with zero duration reach their target inside the same call. A
// segment that completes after stepping stops the advance there, so its end
// value is observed as a control sample before the next segment moves.
func (e *Envelope) Advance(dt float32) {
	stepped := false
	for {
		switch e.phase {
		case PhaseIdle, PhaseSustain:
			return

		case PhaseAttack:
			if e.params.AttackSec > 0 && e.gain < 1 {
				if stepped {
					return
				}
				e.gain += e.rate * dt
				stepped = true
				if e.gain < 1 {
					return
				}
			}
			e.gain = 1
			if e.pending {
				// The peak must be held for one control sample.
				e.startRelease()
				return
			}
			e.startDecay()

		case PhaseDecay:
			sustain := e.params.SustainLevel
			if e.params.DecaySec > 0 && e.gain > sustain {
				if stepped {
					return
				}
				e.gain -= e.rate * dt
				stepped = true
				if e.gain > sustain {
					return
				}
			}
			e.gain = sustain
			if sustain <= 0 {
				e.Kill()
				return
			}
			e.phase = PhaseSustain
			e.rate = 0

		case PhaseRelease:
			if e.params.ReleaseSec > 0 && e.gain > 0 {
				if stepped {
					return
				}
				e.gain -= e.rate * dt
				stepped = true
				if e.gain > 0 {
					return
				}
			}
			e.Kill()
			return
		}
	}
}
