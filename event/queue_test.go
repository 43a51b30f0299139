package event

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRoundsUpToPowerOfTwo(t *testing.T) {
	assert.Equal(t, 1, NewQueue(0).Cap())
	assert.Equal(t, 8, NewQueue(5).Cap())
	assert.Equal(t, 64, NewQueue(64).Cap())
}

func TestQueueCapacityIsBounded(t *testing.T) {
	assert.Equal(t, MaxQueueSize, NewQueue(MaxQueueSize).Cap())
	assert.Equal(t, MaxQueueSize, NewQueue(math.MaxInt).Cap())
}

func TestQueueFIFOAndFull(t *testing.T) {
	q := NewQueue(4)
	for i := 0; i < 4; i++ {
		require.True(t, q.Push(Event{Kind: KindNoteOn, Note: uint8(60 + i), Velocity: 1}))
	}
	assert.False(t, q.Push(Event{Kind: KindNoteOff, Note: 1}), "push into full queue")
	assert.Equal(t, 4, q.Len())

	for i := 0; i < 4; i++ {
		e, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(t, uint8(60+i), e.Note)
	}
	_, ok := q.Pop()
	assert.False(t, ok)
	assert.Equal(t, 0, q.Len())
}

func TestQueueWrapsAround(t *testing.T) {
	q := NewQueue(2)
	for i := 0; i < 100; i++ {
		require.True(t, q.Push(Event{Kind: KindNoteOff, Note: uint8(i)}))
		e, ok := q.Pop()
		require.True(t, ok)
		require.Equal(t, uint8(i), e.Note)
	}
}

func TestQueueConcurrentProducerConsumer(t *testing.T) {
	const total = 10000
	q := NewQueue(16)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; {
			if q.Push(Event{Kind: KindNoteOn, Note: uint8(i % 128), Velocity: 1}) {
				i++
			}
		}
	}()

	got := 0
	for got < total {
		e, ok := q.Pop()
		if !ok {
			continue
		}
		require.Equal(t, uint8(got%128), e.Note, "event %d out of order", got)
		got++
	}
	wg.Wait()
	assert.Equal(t, 0, q.Len())
}
