package synth

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cwbudde/algo-keysynth/event"
	"github.com/cwbudde/algo-keysynth/transport"
	"github.com/sirupsen/logrus"
)

// ErrQueueFull is returned when the event queue has no free slot. The event
// is dropped.
var ErrQueueFull = errors.New("event queue full")

// Engine connects the control domain, which submits note events, with the
// audio domain, which pulls rendered blocks.
//
// NoteOn, NoteOff and Submit must be called from a single goroutine. Process,
// ProcessInt16 and Read must be called from a single (other) goroutine. Stats
// is safe from anywhere.
type Engine struct {
	params   *Params
	pool     *VoicePool
	sched    *EnvelopeScheduler
	renderer *Renderer
	queue    *event.Queue

	mix      []float32
	pcm      []int16
	carry    byte
	hasCarry bool

	now func() time.Time

	blocks    atomic.Uint64
	overruns  atomic.Uint64
	maxRender atomic.Int64
	received  atomic.Uint64
	dropped   atomic.Uint64
	steals    atomic.Uint64
	active    atomic.Int32
}

// Stats is a snapshot of the engine counters.
type Stats struct {
	Blocks        uint64
	Overruns      uint64
	MaxRender     time.Duration
	Events        uint64
	DroppedEvents uint64
	Steals        uint64
	ActiveVoices  int
}

// NewEngine validates params and preallocates everything the audio path
// needs. params must not be modified afterwards.
func NewEngine(params *Params) (*Engine, error) {
	if err := params.Validate(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "NewEngine",
			"error":    err.Error(),
		}).Error("Invalid engine parameters")
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	pool := NewVoicePool(params)
	sched := NewEnvelopeScheduler(pool, params.ControlPeriod(), params.ControlDT())
	e := &Engine{
		params:   params,
		pool:     pool,
		sched:    sched,
		renderer: NewRenderer(params, pool, sched),
		queue:    event.NewQueue(params.EventQueueSize),
		mix:      make([]float32, params.BlockSize),
		pcm:      make([]int16, params.BlockSize),
		now:      time.Now,
	}

	logrus.WithFields(logrus.Fields{
		"function":       "NewEngine",
		"sample_rate":    params.SampleRate,
		"block_size":     params.BlockSize,
		"polyphony":      params.Polyphony,
		"control_period": sched.Period(),
		"waveform":       params.Waveform.String(),
		"filter":         params.Filter.Topology.String(),
		"queue_size":     e.queue.Cap(),
		"block_period":   e.BlockPeriod().String(),
	}).Info("Synth engine created")

	return e, nil
}

// Params returns the engine configuration.
func (e *Engine) Params() *Params { return e.params }

// Pool returns the voice pool. It belongs to the audio domain.
func (e *Engine) Pool() *VoicePool { return e.pool }

// Renderer returns the renderer. It belongs to the audio domain.
func (e *Engine) Renderer() *Renderer { return e.renderer }

// BlockPeriod is the real-time budget for rendering one full block.
func (e *Engine) BlockPeriod() time.Duration {
	return time.Duration(e.params.BlockSize) * time.Second / time.Duration(e.params.SampleRate)
}

// NoteOn queues a note-on. Velocity 0 is treated as note-off.
func (e *Engine) NoteOn(note, velocity int) error {
	ev, err := event.NoteOn(note, velocity)
	if err != nil {
		return err
	}
	return e.push(ev)
}

// NoteOff queues a note-off.
func (e *Engine) NoteOff(note int) error {
	ev, err := event.NoteOff(note)
	if err != nil {
		return err
	}
	return e.push(ev)
}

// Submit validates and queues ev.
func (e *Engine) Submit(ev event.Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	if ev.Kind == event.KindNoteOn && ev.Velocity == 0 {
		ev = event.Event{Kind: event.KindNoteOff, Note: ev.Note}
	}
	return e.push(ev)
}

func (e *Engine) push(ev event.Event) error {
	if !e.queue.Push(ev) {
		e.dropped.Add(1)
		return ErrQueueFull
	}
	e.received.Add(1)
	return nil
}

// Process renders len(out) samples in [-1,1].
func (e *Engine) Process(out []float32) {
	for len(out) > 0 {
		n := min(len(out), e.params.BlockSize)
		e.processBlock(out[:n])
		out = out[n:]
	}
}

// ProcessInt16 renders len(out) 16-bit samples.
func (e *Engine) ProcessInt16(out []int16) {
	for len(out) > 0 {
		n := min(len(out), e.params.BlockSize)
		buf := e.mix[:n]
		e.processBlock(buf)
		transport.FloatToInt16(out[:n], buf)
		out = out[n:]
	}
}

// Read renders 16-bit little-endian mono PCM into p. It never fails and
// always fills p, so an Engine can be handed directly to an audio player.
func (e *Engine) Read(p []byte) (int, error) {
	written := 0
	if e.hasCarry && len(p) > 0 {
		p[0] = e.carry
		e.hasCarry = false
		p = p[1:]
		written++
	}
	for len(p) >= transport.BytesPerSample {
		n := min(len(p)/transport.BytesPerSample, e.params.BlockSize)
		pcm := e.pcm[:n]
		e.ProcessInt16(pcm)
		w := transport.PutInt16LE(p, pcm)
		p = p[w:]
		written += w
	}
	if len(p) == 1 {
		var tmp [transport.BytesPerSample]byte
		e.ProcessInt16(e.pcm[:1])
		transport.PutInt16LE(tmp[:], e.pcm[:1])
		p[0] = tmp[0]
		e.carry = tmp[1]
		e.hasCarry = true
		written++
	}
	return written, nil
}

func (e *Engine) processBlock(out []float32) {
	start := e.now()

	e.drain()
	e.renderer.Render(out)

	elapsed := e.now().Sub(start)
	budget := time.Duration(len(out)) * time.Second / time.Duration(e.params.SampleRate)
	if elapsed > budget {
		e.overruns.Add(1)
	}
	if ns := int64(elapsed); ns > e.maxRender.Load() {
		e.maxRender.Store(ns)
	}
	e.blocks.Add(1)
	e.steals.Store(e.pool.Steals())
	e.active.Store(int32(e.pool.ActiveCount()))
}

// drain applies every queued event. Events only reach the pool at block
// boundaries.
func (e *Engine) drain() {
	for {
		ev, ok := e.queue.Pop()
		if !ok {
			return
		}
		switch ev.Kind {
		case event.KindNoteOn:
			e.pool.Allocate(int(ev.Note), int(ev.Velocity))
		case event.KindNoteOff:
			e.pool.Release(int(ev.Note))
		}
	}
}

// Stats returns a snapshot of the engine counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Blocks:        e.blocks.Load(),
		Overruns:      e.overruns.Load(),
		MaxRender:     time.Duration(e.maxRender.Load()),
		Events:        e.received.Load(),
		DroppedEvents: e.dropped.Load(),
		Steals:        e.steals.Load(),
		ActiveVoices:  int(e.active.Load()),
	}
}
