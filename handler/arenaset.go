package handler

import (
	"sync/atomic"

	"github.com/prataprc/spanmalloc/arena"
)

// slot wraps one shared-mode arena with the test-and-set writer_lock
// spec §4.3/§5 requires: at most one thread may hold an arena at a time,
// and acquisition never blocks.
type slot struct {
	arena  *arena.Arena
	locked int32
}

func (s *slot) tryAcquire() bool {
	return atomic.CompareAndSwapInt32(&s.locked, 0, 1)
}

func (s *slot) release() {
	atomic.StoreInt32(&s.locked, 0)
}

// arenasSet is one fixed-size, power-of-two batch of shared-mode arenas.
// Sets chain by pointer as a handler outgrows its current capacity;
// batchSize never changes once the handler is constructed.
type arenasSet struct {
	slots []*slot
	next  atomic.Pointer[arenasSet]
}

func newArenasSet(batchSize int, build func() *arena.Arena) *arenasSet {
	s := &arenasSet{slots: make([]*slot, batchSize)}
	for i := range s.slots {
		s.slots[i] = &slot{arena: build()}
	}
	return s
}

// setAt walks the chain to the setIndex'th set, extending nothing:
// callers are responsible for growing the chain first.
func (s *arenasSet) setAt(setIndex uint32) *arenasSet {
	cur := s
	for i := uint32(0); i < setIndex; i++ {
		cur = cur.next.Load()
		if cur == nil {
			return nil
		}
	}
	return cur
}
