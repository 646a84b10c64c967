package queue

import (
	"sync/atomic"
	"unsafe"
)

// MPSC is a bounded multi-producer single-consumer queue built on the
// same slotted ring buffer as MPMC. Producers still CAS their way onto
// a slot, since any arena's cross-thread frees can land here
// concurrently, but the consumer side is special-cased: when
// threadSafe is false (config.KeyThreadSafe), TryRead advances its own
// dequeue cursor as a plain field instead of through a CAS, because
// there is provably only ever one reader: the arena that owns the
// large-span cache being drained. This is the non-atomic dequeue path
// spec §4.5 calls out.
type MPSC struct {
	mpmc       *MPMC
	threadSafe bool
	dequeue    uint64 // owner-goroutine-only when !threadSafe
}

// NewMPSC allocates an MPSC queue. threadSafe forces the slower CAS
// dequeue path, for callers that can't guarantee a single consumer
// (e.g. tests exercising the queue directly from many goroutines).
func NewMPSC(capacity int, threadSafe bool) *MPSC {
	return &MPSC{mpmc: NewMPMC(capacity), threadSafe: threadSafe}
}

func (q *MPSC) Cap() int { return q.mpmc.Cap() }
func (q *MPSC) Len() int { return q.mpmc.Len() }

// TryWrite enqueues data, returning false if the queue is full.
func (q *MPSC) TryWrite(data unsafe.Pointer) bool {
	return q.mpmc.TryWrite(data)
}

// TryRead dequeues the oldest entry. Callers must not invoke TryRead
// from more than one goroutine at a time unless the queue was
// constructed with threadSafe true.
func (q *MPSC) TryRead() (unsafe.Pointer, bool) {
	if q.threadSafe {
		return q.mpmc.TryRead()
	}
	// dequeue itself is a plain field: provably one reader. The cell's
	// sequence still needs an atomic load/store on either side, since it
	// is how a producer's write of c.data is published to this consumer
	// (spec §5's release-on-store / acquire-on-load ordering rule).
	m := q.mpmc
	pos := q.dequeue
	c := &m.buffer[pos&m.mask]
	if atomic.LoadUint64(&c.sequence) != pos+1 {
		return nil, false
	}
	data := c.data
	c.data = nil
	q.dequeue = pos + 1
	atomic.StoreUint64(&c.sequence, pos+m.mask+1)
	return data, true
}
