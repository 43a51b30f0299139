package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKeyMatrixBounds(t *testing.T) {
	_, err := NewKeyMatrix(48, 0, 100)
	require.Error(t, err)

	_, err = NewKeyMatrix(120, 2, 100)
	require.ErrorIs(t, err, ErrNoteRange)

	_, err = NewKeyMatrix(48, 4, 0)
	require.ErrorIs(t, err, ErrVelocityRange)

	m, err := NewKeyMatrix(48, 4, 100)
	require.NoError(t, err)
	assert.Equal(t, 4, m.Octaves())
	assert.Equal(t, 95, m.Note(11, 3))
}

func TestKeyMatrixUpdateEmitsOnChange(t *testing.T) {
	m, err := NewKeyMatrix(48, 4, 100)
	require.NoError(t, err)

	e, ok := m.Update(0, 1, true)
	require.True(t, ok)
	assert.Equal(t, Event{Kind: KindNoteOn, Note: 60, Velocity: 100}, e)
	assert.True(t, m.Pressed(0, 1))

	_, ok = m.Update(0, 1, true)
	assert.False(t, ok, "held key repeats nothing")

	e, ok = m.Update(0, 1, false)
	require.True(t, ok)
	assert.Equal(t, Event{Kind: KindNoteOff, Note: 60}, e)

	_, ok = m.Update(12, 0, true)
	assert.False(t, ok, "key out of range")
	_, ok = m.Update(0, 4, true)
	assert.False(t, ok, "octave out of range")
}

func TestKeyMatrixScan(t *testing.T) {
	m, err := NewKeyMatrix(60, 2, 90)
	require.NoError(t, err)

	var got []Event
	emit := func(e Event) { got = append(got, e) }

	n := m.Scan([]uint16{1<<0 | 1<<4, 1 << 7}, emit)
	assert.Equal(t, 3, n)
	assert.Equal(t, []Event{
		{Kind: KindNoteOn, Note: 60, Velocity: 90},
		{Kind: KindNoteOn, Note: 64, Velocity: 90},
		{Kind: KindNoteOn, Note: 79, Velocity: 90},
	}, got)

	got = nil
	n = m.Scan([]uint16{1 << 4, 1 << 7}, emit)
	assert.Equal(t, 1, n)
	assert.Equal(t, []Event{{Kind: KindNoteOff, Note: 60}}, got)

	got = nil
	m.ReleaseAll(emit)
	assert.Equal(t, []Event{
		{Kind: KindNoteOff, Note: 64},
		{Kind: KindNoteOff, Note: 79},
	}, got)
}
