package event

import "sync/atomic"

// Queue is a bounded single-producer single-consumer ring of events.
//
// Push may only be called from one goroutine and Pop from one other goroutine;
// neither blocks. Head and tail are free-running counters, so all slots are
// usable.
type Queue struct {
	buf  []Event
	mask uint64
	head atomic.Uint64 // next slot to write, owned by the producer
	_    [56]byte
	tail atomic.Uint64 // next slot to read, owned by the consumer
	_    [56]byte
}

// MaxQueueSize is the largest capacity NewQueue will allocate.
const MaxQueueSize = 1 << 16

// NewQueue creates a queue holding at least size events. The capacity is
// rounded up to a power of two and limited to MaxQueueSize.
func NewQueue(size int) *Queue {
	size = min(size, MaxQueueSize)
	n := 1
	for n < size {
		n <<= 1
	}
	return &Queue{
		buf:  make([]Event, n),
		mask: uint64(n - 1),
	}
}

// Cap returns the number of slots.
func (q *Queue) Cap() int { return len(q.buf) }

// Push appends e. It returns false when the queue is full.
func (q *Queue) Push(e Event) bool {
	head := q.head.Load()
	if head-q.tail.Load() >= uint64(len(q.buf)) {
		return false
	}
	q.buf[head&q.mask] = e
	q.head.Store(head + 1)
	return true
}

// Pop removes the oldest event.
func (q *Queue) Pop() (Event, bool) {
	tail := q.tail.Load()
	if tail == q.head.Load() {
		return Event{}, false
	}
	e := q.buf[tail&q.mask]
	q.tail.Store(tail + 1)
	return e, true
}

// Len returns the number of queued events. It is exact only when called from
// the producer or consumer while the other side is idle.
func (q *Queue) Len() int {
	return int(q.head.Load() - q.tail.Load())
}
