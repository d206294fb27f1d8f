package peripheral

import (
	"github.com/hashicorp/golang-lru/simplelru"
	"github.com/sirupsen/logrus"
)

// DefaultPrepareQueueCapacity bounds the number of concurrently open
// prepared-write transactions.
const DefaultPrepareQueueCapacity = 16

type pendingKey struct {
	device string
	id     int
}

// pendingWrite stages the fragments of one queued write.
type pendingWrite struct {
	device string
	id     int
	target Target
	key    string // identity of the attribute fixed by the first fragment
	buf    []byte
	closed bool // set when removed on purpose, so eviction logging skips it
}

// prepareQueue holds prepared writes keyed by (device, request id).
// When full, the oldest inserted transaction is evicted; staging more
// fragments into an existing transaction does not refresh its age.
// Evicted buffers are dropped, never applied.
type prepareQueue struct {
	lru *simplelru.LRU
	log *logrus.Logger
}

func newPrepareQueue(capacity int, log *logrus.Logger) *prepareQueue {
	if capacity <= 0 {
		capacity = DefaultPrepareQueueCapacity
	}
	q := &prepareQueue{log: log}
	l, err := simplelru.NewLRU(capacity, q.evicted)
	if err != nil {
		panic(err) // only fails for capacity <= 0
	}
	q.lru = l
	return q
}

func (q *prepareQueue) evicted(_ interface{}, v interface{}) {
	p := v.(*pendingWrite)
	if p.closed {
		return
	}
	q.log.WithFields(logrus.Fields{
		"device":     p.device,
		"request_id": p.id,
		"bytes":      len(p.buf),
	}).Warn("Prepared write evicted before execute")
}

// stage appends b to the transaction (device, id). The first fragment
// fixes the target attribute; every fragment must start exactly at
// the current buffer length. On violation ErrInvalidOffset is returned
// and the buffer is left untouched.
func (q *prepareQueue) stage(device string, id int, t Target, key string, offset int, b []byte) error {
	k := pendingKey{device: device, id: id}
	if v, ok := q.lru.Peek(k); ok {
		p := v.(*pendingWrite)
		if p.key != key || offset != len(p.buf) {
			return ErrInvalidOffset
		}
		p.buf = append(p.buf, b...)
		return nil
	}
	if offset != 0 {
		return ErrInvalidOffset
	}
	q.lru.Add(k, &pendingWrite{
		device: device,
		id:     id,
		target: t,
		key:    key,
		buf:    append([]byte{}, b...),
	})
	return nil
}

// take removes and returns transaction (device, id).
func (q *prepareQueue) take(device string, id int) (*pendingWrite, bool) {
	k := pendingKey{device: device, id: id}
	v, ok := q.lru.Peek(k)
	if !ok {
		return nil, false
	}
	p := v.(*pendingWrite)
	p.closed = true
	q.lru.Remove(k)
	return p, true
}

// peek returns a copy of the staged bytes of (device, id).
func (q *prepareQueue) peek(device string, id int) ([]byte, bool) {
	v, ok := q.lru.Peek(pendingKey{device: device, id: id})
	if !ok {
		return nil, false
	}
	return clone(v.(*pendingWrite).buf), true
}

// discard drops every transaction opened by device.
func (q *prepareQueue) discard(device string) int {
	n := 0
	for _, k := range q.lru.Keys() {
		if k.(pendingKey).device != device {
			continue
		}
		if _, ok := q.take(device, k.(pendingKey).id); ok {
			n++
		}
	}
	return n
}

// purge drops every transaction.
func (q *prepareQueue) purge() {
	for _, k := range q.lru.Keys() {
		pk := k.(pendingKey)
		q.take(pk.device, pk.id)
	}
}

func (q *prepareQueue) len() int { return q.lru.Len() }
