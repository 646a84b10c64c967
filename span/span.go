// Package span implements the fixed-size virtual-memory unit every
// allocation in spanmalloc is carved from (spec §4.1). A Span is a
// contiguous, span-size-aligned region reserved from a backing
// allocator and divided into equal-sized blocks of one size class. It
// tracks its own free blocks with two lists: a LIFO local free list
// the owning arena pops and pushes without atomics, and a deferred
// free list any other goroutine appends to when it frees a block it
// doesn't currently own. The deferred list and the fields a foreign
// goroutine may read or claim (full, the owning arena, the
// pending-reclaim flag and a reservation's remaining-span count) are
// accessed atomically; the rest is owner-thread only.
package span

import (
	"runtime"
	"sync/atomic"
	"unsafe"
)

// invalidPtr marks Span.deferred as claimed mid-swap. It is a real,
// non-nil pointer that is never a valid free-list head, so pushers can
// tell "someone is draining this list right now" apart from "the list
// is empty" (nil) or "the list has entries" (any other pointer).
var invalidPtr = unsafe.Pointer(new(byte))

type freeNode struct {
	next unsafe.Pointer
}

// Span describes one span-size-aligned region and the blocks carved
// from it. Fields below the dashed comment are owner-thread-only: only
// the arena that currently holds the span may touch them, and it must
// call DrainDeferred first if it suspects other goroutines have freed
// blocks into it since it last looked.
type Span struct {
	// OS-reservation bookkeeping. InitialPtr/AllocSize describe the
	// raw memory the backing allocator handed back; Master is nil when
	// this span itself owns that reservation, or points at the span
	// that does when this span was carved off a larger multi-span
	// mapping by SplitFirst.
	InitialPtr     unsafe.Pointer
	AllocSize      int64
	allocPtr       unsafe.Pointer
	Master         *Span
	remainingSpans int32 // atomic; valid only when Master == nil

	SpanSize  int64
	SpanCount int32
	Class     int32 // size class this span currently serves; -1 if unclaimed
	Regime    int8  // Small/Medium/Large/Huge, mirrors sizeclass.Regime*

	// cross-thread free path.
	deferred      unsafe.Pointer // *freeNode, or invalidPtr while claimed
	deferredCount int32

	// ---- owner-thread only below ----

	BlockSize   int64
	BlockCount  int32
	alignOffset int64 // constant byte shift every returned pointer carries, for over-aligned huge blocks
	aligned     bool

	freeList unsafe.Pointer // *freeNode, LIFO of already-touched free blocks
	bumpNext unsafe.Pointer // next never-touched block
	bumpLeft int32

	used int32
	full int32 // atomic; spec §3 requires this survive a foreign goroutine's read in Arena.Free

	Arena unsafe.Pointer // *arena.Arena; opaque here to avoid an import cycle

	Next, Prev *Span // partial/cache list linkage, owner-thread only

	// DeferredNext links this span onto its owning arena's
	// deferred-partial Treiber stack; pendingReclaim prevents a span
	// from being pushed onto that stack twice when concurrent
	// cross-thread frees both observe it going from full to reclaimable.
	DeferredNext    *Span
	pendingReclaim int32
}

// Owner returns the arena this span currently belongs to.
func (s *Span) Owner() unsafe.Pointer { return atomic.LoadPointer(&s.Arena) }

// SetOwner records which arena currently owns this span.
func (s *Span) SetOwner(a unsafe.Pointer) { atomic.StorePointer(&s.Arena, a) }

// MarkPendingReclaim atomically claims the right to push this span
// onto its owner's deferred-partial stack, returning false if another
// goroutine already has.
func (s *Span) MarkPendingReclaim() bool {
	return atomic.CompareAndSwapInt32(&s.pendingReclaim, 0, 1)
}

// ClearPendingReclaim releases the claim MarkPendingReclaim took, once
// the owner has spliced the span back into its partial list.
func (s *Span) ClearPendingReclaim() {
	atomic.StoreInt32(&s.pendingReclaim, 0)
}

// NewMaster wraps a fresh backing-allocator reservation covering
// spanCount contiguous spans. It owns the reservation: whichever
// fragment (itself, or one produced by SplitFirst) is unmapped last
// triggers the actual RawFree.
func NewMaster(initialPtr unsafe.Pointer, allocSize int64, allocPtr unsafe.Pointer, spanSize int64, spanCount int32) *Span {
	return &Span{
		InitialPtr:     initialPtr,
		AllocSize:      allocSize,
		allocPtr:       allocPtr,
		SpanSize:       spanSize,
		SpanCount:      spanCount,
		Class:          -1,
		remainingSpans: spanCount,
	}
}

// SplitFirst carves the first n spans off reservation and returns them
// as head, leaving the rest of the reservation, still uncarved, as
// remainder. Both fragments share the reservation's master bookkeeping.
// n must be strictly less than reservation.SpanCount.
func SplitFirst(reservation *Span, n int32) (head, remainder *Span) {
	master := reservation
	if reservation.Master != nil {
		master = reservation.Master
	}
	head = &Span{
		InitialPtr: reservation.InitialPtr,
		AllocSize:  reservation.AllocSize,
		allocPtr:   reservation.allocPtr,
		SpanSize:   reservation.SpanSize,
		SpanCount:  n,
		Class:      -1,
		Master:     master,
	}
	remBase := unsafe.Pointer(uintptr(reservation.allocPtr) + uintptr(n)*uintptr(reservation.SpanSize))
	remainder = &Span{
		InitialPtr: reservation.InitialPtr,
		AllocSize:  reservation.AllocSize,
		allocPtr:   remBase,
		SpanSize:   reservation.SpanSize,
		SpanCount:  reservation.SpanCount - n,
		Class:      -1,
		Master:     master,
	}
	return head, remainder
}

// Base returns the span's usable, span-size-aligned start address.
func (s *Span) Base() unsafe.Pointer { return s.allocPtr }

// Bytes returns the total usable size covered by this span.
func (s *Span) Bytes() int64 { return s.SpanSize * int64(s.SpanCount) }

// Unmap releases this span's share of its backing reservation. If the
// span is a fragment of a larger mapping, the underlying OS memory is
// only actually returned to the backing allocator once every fragment
// carved from that mapping has called Unmap.
func (s *Span) Unmap(rawFree func(ptr unsafe.Pointer, size int64)) {
	master := s
	if s.Master != nil {
		master = s.Master
	}
	debugRelease(s)
	if atomic.AddInt32(&master.remainingSpans, -s.SpanCount) == 0 {
		rawFree(master.InitialPtr, master.AllocSize)
	}
}

// Carve lays out this span's blocks for blockSize once it has been
// claimed for a size class. alignOffset shifts every returned pointer
// by a constant amount, used only by the dedicated single-block huge
// path where the requested alignment exceeds the span size and cannot
// be satisfied by span-base alignment alone; ordinary classes pass 0.
func (s *Span) Carve(regime int8, class int32, blockSize, alignOffset int64) {
	s.Regime = regime
	s.Class = class
	s.BlockSize = blockSize
	s.alignOffset = alignOffset
	s.aligned = alignOffset != 0
	s.BlockCount = int32((s.Bytes() - alignOffset) / blockSize)
	s.bumpNext = unsafe.Pointer(uintptr(s.allocPtr) + uintptr(alignOffset))
	s.bumpLeft = s.BlockCount
	s.freeList = nil
	s.used = 0
	s.storeFull(s.BlockCount == 0)
	debugCarve(s)
}

// PopFree hands out one block: the local free list first, since those
// blocks are already resident, and only then the never-touched tail of
// the span. A fresh span never walks its full block count to build a
// free list up front: tail blocks are bumped off one at a time as they
// are first handed out, and no page-sized batch of them is pre-linked
// onto the free list.
func (s *Span) PopFree() (unsafe.Pointer, bool) {
	if s.freeList != nil {
		node := (*freeNode)(s.freeList)
		s.freeList = node.next
		s.used++
		s.checkFull()
		debugMarkAllocated(s, unsafe.Pointer(node))
		return unsafe.Pointer(node), true
	}
	if s.bumpLeft > 0 {
		ptr := s.bumpNext
		s.bumpNext = unsafe.Pointer(uintptr(s.bumpNext) + uintptr(s.BlockSize))
		s.bumpLeft--
		s.used++
		s.checkFull()
		debugMarkAllocated(s, ptr)
		return ptr, true
	}
	return nil, false
}

func (s *Span) checkFull() {
	s.storeFull(s.freeList == nil && s.bumpLeft == 0)
}

// storeFull publishes full via an Xchg-shaped atomic store (spec §5): a
// foreign goroutine's Free reads Full() with no other synchronization,
// so the transition itself must never be torn.
func (s *Span) storeFull(v bool) {
	n := int32(0)
	if v {
		n = 1
	}
	atomic.StoreInt32(&s.full, n)
}

// PushFree returns a block the span's current owner allocated, onto
// the local free list. Callers must not call this for blocks freed by
// a goroutine other than the span's current owner; use PushDeferred
// for that.
func (s *Span) PushFree(ptr unsafe.Pointer) {
	debugMarkFreed(s, ptr)
	node := (*freeNode)(ptr)
	node.next = s.freeList
	s.freeList = unsafe.Pointer(node)
	s.used--
	s.storeFull(false)
}

// PushDeferred is the cross-thread free path. The swap is two-phase
// because Span.deferred doubles as its own spinlock: phase one
// exchanges the head for invalidPtr, claiming the list and reading its
// old head in the same step; phase two publishes ptr as the new head,
// releasing the claim. A concurrent pusher, or the owner mid-drain,
// that observes invalidPtr spins rather than racing a plain CAS.
func (s *Span) PushDeferred(ptr unsafe.Pointer) {
	debugMarkFreed(s, ptr)
	node := (*freeNode)(ptr)
	for {
		old := atomic.SwapPointer(&s.deferred, invalidPtr)
		if old != invalidPtr {
			node.next = old
			// Count must be visible before the head is: a DrainDeferred
			// that wins the claim immediately after the head publish
			// below must never observe the new node with a stale n=0,
			// or it under-counts used and the span never reports Empty.
			atomic.AddInt32(&s.deferredCount, 1)
			atomic.StorePointer(&s.deferred, unsafe.Pointer(node))
			return
		}
		runtime.Gosched()
	}
}

// DrainDeferred splices the cross-thread deferred free list onto the
// local free list and returns how many blocks it recovered. Must only
// be called by the span's current owner.
func (s *Span) DrainDeferred() int32 {
	var old unsafe.Pointer
	for {
		old = atomic.SwapPointer(&s.deferred, invalidPtr)
		if old != invalidPtr {
			break
		}
		runtime.Gosched()
	}
	// read the count while the claim is still held: no pusher can be
	// between its count add and its head publish, so n matches old.
	n := atomic.SwapInt32(&s.deferredCount, 0)
	atomic.StorePointer(&s.deferred, nil)
	if old == nil {
		return 0
	}
	tail := (*freeNode)(old)
	for tail.next != nil {
		tail = (*freeNode)(tail.next)
	}
	tail.next = s.freeList
	s.freeList = old
	s.used -= n
	s.storeFull(false)
	return n
}

// HasDeferred reports whether any cross-thread frees are waiting,
// without claiming the list. Racy by nature; used only as a hint to
// decide whether DrainDeferred is worth calling.
func (s *Span) HasDeferred() bool {
	return atomic.LoadInt32(&s.deferredCount) > 0
}

// Recover undoes the constant alignment offset a huge over-aligned
// span applies to every pointer it hands out, returning ptr's true
// block start.
func (s *Span) Recover(ptr unsafe.Pointer) unsafe.Pointer {
	if !s.aligned {
		return ptr
	}
	return unsafe.Pointer(uintptr(ptr) - uintptr(s.alignOffset))
}

func (s *Span) Full() bool  { return atomic.LoadInt32(&s.full) != 0 }
func (s *Span) Used() int32 { return s.used }
func (s *Span) Empty() bool { return s.used == 0 }
