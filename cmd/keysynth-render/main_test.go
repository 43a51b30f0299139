package main

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cwbudde/algo-keysynth/event"
	"github.com/cwbudde/algo-keysynth/internal/wavio"
	"github.com/cwbudde/algo-keysynth/synth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSequence(t *testing.T) {
	got, err := parseSequence("500ms off 60; 0ms on 60 100;; 250ms on 64 0")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, timedEvent{At: 0, Event: event.Event{Kind: event.KindNoteOn, Note: 60, Velocity: 100}}, got[0])
	assert.Equal(t, timedEvent{At: 250 * time.Millisecond, Event: event.Event{Kind: event.KindNoteOff, Note: 64}}, got[1])
	assert.Equal(t, timedEvent{At: 500 * time.Millisecond, Event: event.Event{Kind: event.KindNoteOff, Note: 60}}, got[2])
}

func TestParseSequenceErrors(t *testing.T) {
	for _, s := range []string{
		"0ms on",
		"soon on 60 100",
		"-5ms on 60 100",
		"0ms on 60",
		"0ms off 60 100",
		"0ms hold 60 100",
		"0ms on 128 100",
		"0ms on sixty 100",
	} {
		_, err := parseSequence(s)
		assert.Error(t, err, s)
	}
}

func TestChordSequence(t *testing.T) {
	notes, err := parseNotes("60, 64,67")
	require.NoError(t, err)
	seq, err := chordSequence(notes, 90, time.Second)
	require.NoError(t, err)
	require.Len(t, seq, 6)
	assert.Equal(t, event.KindNoteOn, seq[2].Event.Kind)
	assert.Equal(t, time.Second, seq[5].At)

	_, err = parseNotes("60,x")
	assert.Error(t, err)
}

func TestRenderPlacesEvents(t *testing.T) {
	p := synth.NewDefaultParams()
	engine, err := synth.NewEngine(p)
	require.NoError(t, err)
	seq, err := parseSequence("100ms on 69 100; 200ms off 69")
	require.NoError(t, err)

	out := render(engine, seq, p.SampleRate/2)
	require.Len(t, out, p.SampleRate/2)

	silentUntil := p.SampleRate / 10
	for i := 0; i < silentUntil; i++ {
		require.Zero(t, out[i], "sample %d before the note", i)
	}
	var peak float32
	for _, v := range out[silentUntil:] {
		peak = max(peak, v)
	}
	assert.Greater(t, peak, float32(0.05))
}

func TestRunWritesWAV(t *testing.T) {
	dir := t.TempDir()
	o := options{
		chord:    "60,64",
		velocity: 100,
		hold:     100 * time.Millisecond,
		tail:     100 * time.Millisecond,
		output:   filepath.Join(dir, "out.wav"),
		outRate:  22050,
	}
	require.NoError(t, run(o))

	data, sr, err := wavio.ReadMono(o.output)
	require.NoError(t, err)
	assert.Equal(t, 22050, sr)
	assert.InDelta(t, 4410, len(data), 64)
}

func TestRunWritesI2SWords(t *testing.T) {
	dir := t.TempDir()
	o := options{
		chord:    "69",
		velocity: 127,
		hold:     100 * time.Millisecond,
		tail:     50 * time.Millisecond,
		output:   filepath.Join(dir, "out.wav"),
		i2sRaw:   filepath.Join(dir, "out.i2s"),
	}
	require.NoError(t, run(o))

	raw, err := os.ReadFile(o.i2sRaw)
	require.NoError(t, err)
	data, _, err := wavio.ReadMono(o.output)
	require.NoError(t, err)
	require.Len(t, raw, 4*len(data))

	nonZero := 0
	for i := 0; i < len(data); i++ {
		word := binary.LittleEndian.Uint32(raw[4*i:])
		left, right := int16(word>>16), int16(word)
		require.Equal(t, left, right, "frame %d", i)
		require.InDelta(t, data[i], float64(left)/32768, 4.0/32768, "frame %d", i)
		if left != 0 {
			nonZero++
		}
	}
	assert.Greater(t, nonZero, len(data)/2)
}
