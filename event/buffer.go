package event

import (
	"sync/atomic"

	"github.com/hedzr/go-ringbuf/v2/mpmc"
)

// Buffer is a Sink that keeps the most recent events in a ring,
// overwriting the oldest when full. It lets a binding poll events on
// its own schedule instead of being called back.
//
// All methods are safe for concurrent use.
type Buffer struct {
	ring        mpmc.RichOverlappedRingBuffer[Event]
	overwritten int64
}

// NewBuffer creates a Buffer holding at least size events.
func NewBuffer(size uint32) *Buffer {
	if size == 0 {
		size = 1
	}
	return &Buffer{ring: mpmc.NewOverlappedRingBuffer[Event](size)}
}

// Emit stores e, dropping the oldest event if the ring is full.
func (b *Buffer) Emit(e Event) {
	overwrites, err := b.ring.EnqueueM(e)
	if err != nil {
		return
	}
	if overwrites > 0 {
		atomic.AddInt64(&b.overwritten, int64(overwrites))
	}
}

// Drain removes and returns every buffered event, oldest first.
func (b *Buffer) Drain() []Event {
	var ee []Event
	for !b.ring.IsEmpty() {
		e, err := b.ring.Dequeue()
		if err != nil {
			break
		}
		ee = append(ee, e)
	}
	return ee
}

// Overwritten returns how many events were lost to overflow.
func (b *Buffer) Overwritten() int64 {
	return atomic.LoadInt64(&b.overwritten)
}
