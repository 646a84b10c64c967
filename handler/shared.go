package handler

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/prataprc/spanmalloc/arena"
	"github.com/prataprc/spanmalloc/logging"
)

// threadCache is the "per-thread cache" spec §4.3 describes for shared
// mode: one array slot per Handler in the process (indexed by that
// handler's slot id, see slots.go), remembering the arena this
// goroutine last acquired from that handler so a hot allocate/free loop
// can skip the dispatcher entirely as long as nobody else has taken the
// cached arena in the meantime.
type threadCache struct {
	slots [maxSlots]unsafe.Pointer // *slot, atomic
}

var threadCaches sync.Map // goroutineID (uint64) -> *threadCache

func getThreadCache() *threadCache {
	gid := goroutineID()
	if v, ok := threadCaches.Load(gid); ok {
		return v.(*threadCache)
	}
	tc := &threadCache{}
	actual, _ := threadCaches.LoadOrStore(gid, tc)
	return actual.(*threadCache)
}

// sharedHandler is spec §4.3's shared strategy: a chain of fixed-size
// ArenasSets, an atomically-packed dispatcher counter binding lookups to
// a (set, position) pair, and a coarse mutex that only ever guards
// growing the chain, never the hot path.
type sharedHandler struct {
	slotID    int32
	batchSize uint32
	build     func() *arena.Arena

	mu         sync.Mutex // guards chain growth only
	head, tail *arenasSet
	dispatcher *dispatcher
}

func newSharedHandler(slotID int32, batchSize uint32, build func() *arena.Arena) *sharedHandler {
	first := newArenasSet(int(batchSize), build)
	return &sharedHandler{
		slotID:     slotID,
		batchSize:  batchSize,
		build:      build,
		head:       first,
		tail:       first,
		dispatcher: newDispatcher(batchSize),
	}
}

// Acquire implements spec §4.3's shared-mode binding: try the per-thread
// cached arena first, then fall through to the dispatcher, then to
// growing the set chain if every arena the dispatcher can currently see
// is locked.
func (h *sharedHandler) Acquire() (*arena.Arena, func()) {
	tc := getThreadCache()

	if cached := (*slot)(atomic.LoadPointer(&tc.slots[h.slotID])); cached != nil {
		if cached.tryAcquire() {
			return cached.arena, func() { cached.release() }
		}
	}

	for tries := uint32(0); ; tries++ {
		index, capacity := h.dispatcher.next()
		if tries >= capacity {
			// every arena the dispatcher can see was locked: grow.
			s := h.createArena()
			atomic.StorePointer(&tc.slots[h.slotID], unsafe.Pointer(s))
			return s.arena, func() { s.release() }
		}
		masked := index & (capacity - 1)
		setIndex := masked / h.batchSize
		posIndex := masked % h.batchSize

		set := h.head.setAt(setIndex)
		if set == nil {
			// another goroutine's growth hasn't linked this set in yet
			// from this reader's point of view; growing again is safe,
			// createArena appends one more set under the mutex.
			s := h.createArena()
			atomic.StorePointer(&tc.slots[h.slotID], unsafe.Pointer(s))
			return s.arena, func() { s.release() }
		}

		s := set.slots[posIndex]
		if s.tryAcquire() {
			atomic.StorePointer(&tc.slots[h.slotID], unsafe.Pointer(s))
			return s.arena, func() { s.release() }
		}
		// contended: the dispatcher already advanced past this index, so
		// looping tries the next one rather than spinning on this slot.
	}
}

// createArena grows the set chain by one batch, publishing the new
// capacity to the dispatcher, and returns the first (guaranteed free)
// arena of the new set. Spec §4.3's create_arena fallback.
func (h *sharedHandler) createArena() *slot {
	h.mu.Lock()
	defer h.mu.Unlock()

	_, capacity := h.dispatcher.load()
	newSet := newArenasSet(int(h.batchSize), h.build)
	h.tail.next.Store(newSet)
	h.tail = newSet
	newCapacity := capacity + h.batchSize
	h.dispatcher.publish(newCapacity)

	logging.Warnf("spanmalloc: shared handler grew arena set chain to capacity %d", newCapacity)

	first := newSet.slots[0]
	first.tryAcquire() // always succeeds: nobody else has seen this set yet
	return first
}

func (h *sharedHandler) forEach(fn func(*arena.Arena)) {
	for set := h.head; set != nil; set = set.next.Load() {
		for _, s := range set.slots {
			fn(s.arena)
		}
	}
}
