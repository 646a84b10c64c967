package handler

import "sync/atomic"

// dispatcher packs (index, capacity) into one 64-bit word (spec §4.3):
// index in the low 32 bits, capacity in the high 32 bits. Packing both
// into one word lets next() hand back a self-consistent (index,
// capacity) pair with a single atomic add, instead of two separate
// atomic loads that could observe a capacity a set-chain grow already
// moved past. capacity only ever grows, and index only ever increases,
// so a plain AddUint64 on the low bits can never carry into capacity
// this side of 2^32 allocations from a single handler.
type dispatcher struct {
	word uint64
}

func packDispatcher(index, capacity uint32) uint64 {
	return uint64(capacity)<<32 | uint64(index)
}

func unpackDispatcher(word uint64) (index, capacity uint32) {
	return uint32(word), uint32(word >> 32)
}

func newDispatcher(capacity uint32) *dispatcher {
	return &dispatcher{word: packDispatcher(0, capacity)}
}

// next atomically hands out the next dispatch index and the capacity it
// was issued under.
func (d *dispatcher) next() (index, capacity uint32) {
	word := atomic.AddUint64(&d.word, 1)
	return unpackDispatcher(word)
}

// load reads the current word without advancing it.
func (d *dispatcher) load() (index, capacity uint32) {
	return unpackDispatcher(atomic.LoadUint64(&d.word))
}

// publish installs a new capacity, called only by createArena under the
// handler mutex once a new ArenasSet has been chained in. It preserves
// the current index rather than resetting it, since in-flight next()
// callers may already have read the old capacity and must still land in
// range once they retry against the republished word.
func (d *dispatcher) publish(capacity uint32) {
	for {
		old := atomic.LoadUint64(&d.word)
		index, _ := unpackDispatcher(old)
		newWord := packDispatcher(index, capacity)
		if atomic.CompareAndSwapUint64(&d.word, old, newWord) {
			return
		}
	}
}
