package synth

// Renderer mixes the voice pool into fixed-size blocks.
//
// The envelope scheduler is driven from here so that control ticks land on
// exact sample positions regardless of how block boundaries fall. Between two
// ticks each voice's gain is interpolated linearly from its previous control
// sample to its current one.
//
// Each block mixes the pool's active voices plus the tail voices: voices that
// went Idle at the last tick but whose gain is still ramping down to 0 in the
// current control segment.
type Renderer struct {
	params *Params
	pool   *VoicePool
	sched  *EnvelopeScheduler

	// untilTick counts samples left in the current control segment; pos is
	// the offset into it.
	untilTick int
	pos       int

	curves  [][]float32
	live    []bool
	scratch []float32
	n       int

	active []*Voice
	tail   []*Voice
	mixed  []int
}

// NewRenderer preallocates every buffer needed to render params.BlockSize
// samples for each voice of pool.
func NewRenderer(params *Params, pool *VoicePool, sched *EnvelopeScheduler) *Renderer {
	r := &Renderer{
		params:  params,
		pool:    pool,
		sched:   sched,
		curves:  make([][]float32, pool.Capacity()),
		live:    make([]bool, pool.Capacity()),
		scratch: make([]float32, params.BlockSize),
		active:  make([]*Voice, 0, pool.Capacity()),
		tail:    make([]*Voice, 0, pool.Capacity()),
		mixed:   make([]int, 0, pool.Capacity()),
	}
	for i := range r.curves {
		r.curves[i] = make([]float32, params.BlockSize)
	}
	return r
}

// Render fills out with the mix. Requests longer than the configured block
// size are split into blocks.
func (r *Renderer) Render(out []float32) {
	for len(out) > 0 {
		n := min(len(out), r.params.BlockSize)
		r.renderBlock(out[:n])
		out = out[n:]
	}
}

// GainCurve returns the per-sample envelope gain applied to slot during the
// last rendered block.
func (r *Renderer) GainCurve(slot int) []float32 {
	return r.curves[slot][:r.n]
}

// Mixed returns how many voices contributed to the last block.
func (r *Renderer) Mixed() int { return len(r.mixed) }

// MixedSlots returns the slots that contributed to the last block: active
// voices in slot order, then tail voices. The slice is reused by the next
// block.
func (r *Renderer) MixedSlots() []int { return r.mixed }

func (r *Renderer) renderBlock(out []float32) {
	n := len(out)
	r.n = n
	clear(out)
	clear(r.live)

	r.collect()
	r.buildCurves(n)

	r.mixed = r.mixed[:0]
	for _, v := range r.active {
		r.mixVoice(out, v)
	}
	for _, v := range r.tail {
		r.mixVoice(out, v)
	}

	att := r.params.OutputGain
	for i, x := range out {
		x *= att
		if !isFinite(x) {
			x = 0
		}
		out[i] = clampf(x, -1, 1)
	}
}

// collect snapshots the voices to mix before the block's ticks run. Notes
// only reach the pool between blocks, so no voice joins either list later.
func (r *Renderer) collect() {
	r.active = r.pool.ActiveVoices(r.active[:0])
	r.tail = r.tail[:0]
	voices := r.pool.voices
	for i := range voices {
		v := &voices[i]
		if v.IsFree() && v.audible() {
			r.tail = append(r.tail, v)
		}
	}
}

func (r *Renderer) mixVoice(out []float32, v *Voice) {
	if !r.live[v.slot] {
		return
	}
	buf := r.scratch[:len(out)]
	v.RenderBlock(buf)
	g := v.velGain * r.params.VoiceGain
	curve := r.curves[v.slot][:len(out)]
	for i, x := range buf {
		out[i] += x * curve[i] * g
	}
	r.mixed = append(r.mixed, v.slot)
}

// buildCurves writes n samples of gain for every slot, ticking the scheduler
// at each control boundary inside the block.
func (r *Renderer) buildCurves(n int) {
	voices := r.pool.voices
	period := r.sched.Period()
	inv := 1 / float32(period)

	for i := 0; i < n; {
		if r.untilTick == 0 {
			r.sched.Step()
			r.untilTick = period
			r.pos = 0
		}
		seg := min(r.untilTick, n-i)
		for s := range voices {
			v := &voices[s]
			prev, cur := v.prevGain, v.env.gain
			curve := r.curves[s][i : i+seg]
			if prev == cur {
				for j := range curve {
					curve[j] = cur
				}
			} else {
				step := (cur - prev) * inv
				for j := range curve {
					curve[j] = prev + step*float32(r.pos+j)
				}
			}
			if prev > 0 || cur > 0 {
				r.live[s] = true
			}
		}
		i += seg
		r.pos += seg
		r.untilTick -= seg
	}
}

// Reset restarts the control clock so the next block begins with a tick.
func (r *Renderer) Reset() {
	r.untilTick = 0
	r.pos = 0
	r.n = 0
	r.mixed = r.mixed[:0]
}
