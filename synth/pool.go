package synth

// VoiceHandle refers to one activation of a pool slot. A handle goes stale
// as soon as the slot is stolen, retriggered or returns to Idle.
type VoiceHandle struct {
	Slot       int
	Generation uint64
}

// VoicePool is the fixed set of voices and the allocator over it. All voices
// are created by NewVoicePool; afterwards only their state changes.
//
// The pool is owned by the audio domain and is not safe for concurrent use.
type VoicePool struct {
	params  *Params
	voices  []Voice
	nextGen uint64
	steals  uint64
}

// NewVoicePool creates params.Polyphony idle voices.
func NewVoicePool(params *Params) *VoicePool {
	p := &VoicePool{
		params: params,
		voices: make([]Voice, params.Polyphony),
	}
	for i := range p.voices {
		p.voices[i] = newVoice(i, params)
	}
	return p
}

// Capacity returns the number of voices.
func (p *VoicePool) Capacity() int { return len(p.voices) }

// Steals returns how many allocations had to reclaim an active voice.
func (p *VoicePool) Steals() uint64 { return p.steals }

// Voice returns the voice in slot i.
func (p *VoicePool) Voice(i int) *Voice { return &p.voices[i] }

// Allocate binds note to a voice and starts its attack. It never fails:
//
//   - a voice already bound to note is retriggered in place,
//   - otherwise the lowest free slot is used, preferring one whose tail has
//     fully settled,
//   - otherwise a voice is stolen: the oldest releasing voice if any, else
//     the oldest voice overall.
//
// Every call starts a new generation on the chosen slot.
func (p *VoicePool) Allocate(note, velocity int) VoiceHandle {
	p.nextGen++
	gen := p.nextGen

	if v := p.find(note); v != nil {
		v.retrigger(velocity, gen, p.params)
		return v.handle()
	}

	v := p.freeVoice()
	if v == nil {
		v = p.victim()
		p.steals++
	}
	v.activate(note, velocity, gen, p.params)
	return v.handle()
}

// Release starts the release of the voice bound to note. It reports whether
// such a voice existed; a NoteOff without one is ignored.
func (p *VoicePool) Release(note int) bool {
	v := p.find(note)
	if v == nil {
		return false
	}
	v.env.Release()
	return true
}

// ReleaseAll releases every active voice.
func (p *VoicePool) ReleaseAll() {
	for i := range p.voices {
		p.voices[i].env.Release()
	}
}

// Lookup resolves h. It fails once the slot has moved on to another
// activation or gone Idle.
func (p *VoicePool) Lookup(h VoiceHandle) (*Voice, bool) {
	if h.Slot < 0 || h.Slot >= len(p.voices) {
		return nil, false
	}
	v := &p.voices[h.Slot]
	if v.generation != h.Generation || v.IsFree() {
		return nil, false
	}
	return v, true
}

// ActiveVoices appends every non-Idle voice to dst in slot order and returns
// the extended slice. Passing dst[:0] of a preallocated slice keeps the call
// allocation-free.
func (p *VoicePool) ActiveVoices(dst []*Voice) []*Voice {
	for i := range p.voices {
		if !p.voices[i].IsFree() {
			dst = append(dst, &p.voices[i])
		}
	}
	return dst
}

// ActiveCount returns the number of non-Idle voices.
func (p *VoicePool) ActiveCount() int {
	n := 0
	for i := range p.voices {
		if !p.voices[i].IsFree() {
			n++
		}
	}
	return n
}

// Reset silences every voice immediately. Generations keep counting.
func (p *VoicePool) Reset() {
	for i := range p.voices {
		v := &p.voices[i]
		v.env.Kill()
		v.prevGain = 0
		v.note = -1
		v.filter.Reset()
		v.osc.Reset()
	}
}

// find returns the active voice bound to note. Retriggering keeps at most
// one such voice, but the newest generation wins if there were several.
func (p *VoicePool) find(note int) *Voice {
	var best *Voice
	for i := range p.voices {
		v := &p.voices[i]
		if v.boundTo(note) && (best == nil || v.generation > best.generation) {
			best = v
		}
	}
	return best
}

func (p *VoicePool) freeVoice() *Voice {
	var tail *Voice
	for i := range p.voices {
		v := &p.voices[i]
		if !v.IsFree() {
			continue
		}
		if !v.audible() {
			return v
		}
		if tail == nil {
			tail = v
		}
	}
	return tail
}

// victim picks the voice to steal when none is free.
func (p *VoicePool) victim() *Voice {
	var released, oldest *Voice
	for i := range p.voices {
		v := &p.voices[i]
		if v.IsReleasing() && (released == nil || v.generation < released.generation) {
			released = v
		}
		if oldest == nil || v.generation < oldest.generation {
			oldest = v
		}
	}
	if released != nil {
		return released
	}
	return oldest
}
