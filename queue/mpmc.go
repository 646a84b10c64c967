// Package queue implements the bounded ring buffers spec §4.5 uses for
// every span cache: a Vyukov-style multi-producer multi-consumer queue
// for the global caches and each arena's own 1-span cache, and a
// multi-producer single-consumer variant for the per-large-class
// caches, whose sole consumer is the arena that owns them.
//
// Both are lock-free, fixed-capacity, and never block: TryWrite fails
// on a full queue instead of growing it, and TryRead fails on an empty
// one instead of waiting. Capacity must be a power of two so index
// wrapping is a mask instead of a modulo.
package queue

import (
	"sync/atomic"
	"unsafe"
)

type cell struct {
	sequence uint64
	data     unsafe.Pointer
}

// MPMC is a bounded lock-free multi-producer multi-consumer queue,
// following Dmitry Vyukov's ring-buffer design: every slot carries its
// own sequence counter so producers and consumers never contend on a
// single head/tail pair beyond the CAS needed to claim a slot.
type MPMC struct {
	mask    uint64
	buffer  []cell
	enqueue uint64
	dequeue uint64
}

// NewMPMC allocates a queue of the given capacity, which must be a
// power of two of at least 2.
func NewMPMC(capacity int) *MPMC {
	if capacity < 2 || capacity&(capacity-1) != 0 {
		panic("queue: capacity must be a power of two >= 2")
	}
	q := &MPMC{
		mask:   uint64(capacity - 1),
		buffer: make([]cell, capacity),
	}
	for i := range q.buffer {
		q.buffer[i].sequence = uint64(i)
	}
	return q
}

// Cap returns the queue's fixed capacity.
func (q *MPMC) Cap() int { return int(q.mask) + 1 }

// TryWrite enqueues data, returning false if the queue is full.
func (q *MPMC) TryWrite(data unsafe.Pointer) bool {
	pos := atomic.LoadUint64(&q.enqueue)
	for {
		c := &q.buffer[pos&q.mask]
		seq := atomic.LoadUint64(&c.sequence)
		diff := int64(seq) - int64(pos)
		switch {
		case diff == 0:
			if atomic.CompareAndSwapUint64(&q.enqueue, pos, pos+1) {
				c.data = data
				atomic.StoreUint64(&c.sequence, pos+1)
				return true
			}
			pos = atomic.LoadUint64(&q.enqueue)
		case diff < 0:
			return false
		default:
			pos = atomic.LoadUint64(&q.enqueue)
		}
	}
}

// TryRead dequeues the oldest entry, returning false if the queue is
// empty.
func (q *MPMC) TryRead() (unsafe.Pointer, bool) {
	pos := atomic.LoadUint64(&q.dequeue)
	for {
		c := &q.buffer[pos&q.mask]
		seq := atomic.LoadUint64(&c.sequence)
		diff := int64(seq) - int64(pos+1)
		switch {
		case diff == 0:
			if atomic.CompareAndSwapUint64(&q.dequeue, pos, pos+1) {
				data := c.data
				c.data = nil
				atomic.StoreUint64(&c.sequence, pos+q.mask+1)
				return data, true
			}
			pos = atomic.LoadUint64(&q.dequeue)
		case diff < 0:
			return nil, false
		default:
			pos = atomic.LoadUint64(&q.dequeue)
		}
	}
}

// Len is an approximate count, racy under concurrent writers/readers;
// useful only for reporting, spec §4.5.
func (q *MPMC) Len() int {
	enq := atomic.LoadUint64(&q.enqueue)
	deq := atomic.LoadUint64(&q.dequeue)
	if enq < deq {
		return 0
	}
	return int(enq - deq)
}
