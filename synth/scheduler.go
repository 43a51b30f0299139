package synth

// EnvelopeScheduler is the control-rate clock. Every tick it snapshots each
// voice's gain as the start of the next interpolation segment, then advances
// the envelope to the value at the segment's end.
type EnvelopeScheduler struct {
	pool   *VoicePool
	period int
	dt     float32
	ticks  uint64
}

// NewEnvelopeScheduler creates a scheduler ticking every period samples.
func NewEnvelopeScheduler(pool *VoicePool, period int, dt float32) *EnvelopeScheduler {
	if period < 1 {
		period = 1
	}
	return &EnvelopeScheduler{
		pool:   pool,
		period: period,
		dt:     dt,
	}
}

// Period returns the control period in samples.
func (s *EnvelopeScheduler) Period() int { return s.period }

// DT returns the control period in seconds.
func (s *EnvelopeScheduler) DT() float32 { return s.dt }

// Ticks returns the number of ticks run so far.
func (s *EnvelopeScheduler) Ticks() uint64 { return s.ticks }

// Tick advances every voice's envelope by dt. Voices whose envelope reaches
// Idle are free from here on; their last segment still ramps to 0.
func (s *EnvelopeScheduler) Tick(dt float32) {
	voices := s.pool.voices
	for i := range voices {
		v := &voices[i]
		v.prevGain = v.env.gain
		v.env.Advance(dt)
	}
	s.ticks++
}

// Step runs one tick of the configured period.
func (s *EnvelopeScheduler) Step() {
	s.Tick(s.dt)
}
