// Package arena implements the routing and cache hierarchy spec §4.2
// describes: given a size class, find a span with room, hand out a
// block, and reconcile whatever cross-thread frees have piled up on
// spans this arena owns. An Arena is meant to be driven by a single
// goroutine at a time (per handler.Handler's thread binding), except
// for Free, which any goroutine may call on any pointer regardless of
// who allocated it.
package arena

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/prataprc/spanmalloc/api"
	"github.com/prataprc/spanmalloc/config"
	"github.com/prataprc/spanmalloc/globalcache"
	"github.com/prataprc/spanmalloc/sizeclass"
	"github.com/prataprc/spanmalloc/span"
	"github.com/prataprc/spanmalloc/spanerr"
)

// Arena owns a set of spans and the per-class partial-span lists,
// caches and deferred-reclaim bookkeeping needed to serve allocations
// out of them.
type Arena struct {
	table   *sizeclass.Table
	backing api.BackingAllocator
	report  api.Reporter
	reg     *Registry
	global  *globalcache.Cache

	spanAllocCount int64
	mapAllocCount  int64

	largeOverheadMul  float64
	splitLargeToOne   bool
	splitLargeToLarge bool
	recycleLargeSpans bool
	maxLargeSpanCount int32

	mu      sync.Mutex
	partial []*span.Span // per-class doubly linked list head, small+medium classes only

	cache *caches

	deferredPartial unsafe.Pointer // Treiber stack of *span.Span, see pushDeferredPartial

	released int32 // atomic; set by Release, checked by Alloc
}

// New builds an Arena. reg and global are shared across every arena
// spanned from the same handler.Handler pool; reg must have been
// built with the same span size as table.
func New(setts config.Settings, table *sizeclass.Table, backing api.BackingAllocator, rep api.Reporter, reg *Registry, global *globalcache.Cache) *Arena {
	oneSpanCap := int(setts.Int64(config.KeyCacheLimit))
	largeCap := int(setts.Int64(config.KeyLargeCacheLimit))

	maxLarge := int32(table.LargeSpanCount(table.ClassCount() - 1))
	if maxLarge < 1 {
		maxLarge = 1
	}

	return &Arena{
		table:             table,
		backing:           backing,
		report:            rep,
		reg:               reg,
		global:            global,
		spanAllocCount:    setts.Int64(config.KeySpanAllocCount),
		mapAllocCount:     setts.Int64(config.KeyMapAllocCount),
		largeOverheadMul:  setts.Float64(config.KeyLargeSpanOverheadMul),
		splitLargeToOne:   setts.Bool(config.KeySplitLargeToOne),
		splitLargeToLarge: setts.Bool(config.KeySplitLargeToLarge),
		recycleLargeSpans: setts.Bool(config.KeyRecycleLargeSpans),
		maxLargeSpanCount: maxLarge,
		partial:           make([]*span.Span, table.ClassCount()),
		cache:             newCaches(oneSpanCap, largeCap, setts.Bool(config.KeyThreadSafe)),
	}
}

// Alloc serves a request of size bytes aligned to align, spec §4.6's
// alloc entry point.
func (a *Arena) Alloc(size, align int64) (unsafe.Pointer, bool) {
	if atomic.LoadInt32(&a.released) != 0 {
		panic(spanerr.ErrArenaReleased)
	}
	regime, class, blockSize := a.table.Classify(size, align)
	switch regime {
	case sizeclass.RegimeSmall, sizeclass.RegimeMedium:
		return a.allocateGeneric(int8(regime), class, blockSize)
	case sizeclass.RegimeLarge:
		spanCount := int32(a.table.LargeSpanCount(class))
		return a.allocateLarge(class, spanCount)
	default:
		return a.allocateHuge(size, align)
	}
}

// allocateGeneric serves a small/medium request from the per-class
// partial-span list, reconciling deferred frees before conceding a
// span is really exhausted.
func (a *Arena) allocateGeneric(regime int8, class int32, blockSize int64) (unsafe.Pointer, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.drainDeferredPartialLocked()

	s := a.partial[class]
	for {
		if s == nil {
			var ok bool
			s, ok = a.newClassSpanLocked(regime, class, blockSize)
			if !ok {
				return nil, false
			}
		}
		if ptr, ok := s.PopFree(); ok {
			if s.Full() {
				a.unlinkPartialLocked(class, s)
			}
			return ptr, true
		}
		if s.DrainDeferred() > 0 {
			continue
		}
		// genuinely exhausted and no deferred frees waiting: drop it
		// and get another. This can only happen if PopFree and Full
		// disagree, which Carve/PopFree keep from happening in
		// practice, but a defensive span still needs somewhere to go.
		a.unlinkPartialLocked(class, s)
		s = nil
	}
}

func (a *Arena) newClassSpanLocked(regime int8, class int32, blockSize int64) (*span.Span, bool) {
	s, ok := a.getOneSpanFromCacheOrNew()
	if !ok {
		return nil, false
	}
	s.Carve(regime, class, blockSize, 0)
	s.SetOwner(unsafe.Pointer(a))
	a.reg.register(s)
	a.pushPartialLocked(class, s)
	return s, true
}

func (a *Arena) pushPartialLocked(class int32, s *span.Span) {
	head := a.partial[class]
	s.Prev, s.Next = nil, head
	if head != nil {
		head.Prev = s
	}
	a.partial[class] = s
}

func (a *Arena) unlinkPartialLocked(class int32, s *span.Span) {
	if s.Prev != nil {
		s.Prev.Next = s.Next
	} else if a.partial[class] == s {
		a.partial[class] = s.Next
	}
	if s.Next != nil {
		s.Next.Prev = s.Prev
	}
	s.Prev, s.Next = nil, nil
}

// allocateLarge serves a large request as one whole span-set, spec
// §4.2's allocate_to_large_span: no sub-block free list, the entire
// reservation is the allocation. A cached span found within the
// overhead tolerance is handed out as-is, wasting at most largeOverhead
// spans rather than paying for a split; anything wider than that is
// only reachable when split.largetolarge is set, and is always split
// down to exactly spanCount, with the remainder recycled.
func (a *Arena) allocateLarge(class, spanCount int32) (unsafe.Pointer, bool) {
	s, ok := a.getLargeSpanFromCaches(spanCount)
	if !ok {
		return nil, false
	}
	if a.splitLargeToLarge && s.SpanCount-spanCount > a.largeOverhead(spanCount) {
		head, remainder := span.SplitFirst(s, spanCount)
		a.cacheLargeSpanOrFree(remainder)
		s = head
	}
	s.Carve(int8(sizeclass.RegimeLarge), class, s.Bytes(), 0)
	s.SetOwner(unsafe.Pointer(a))
	a.reg.register(s)
	ptr, _ := s.PopFree()
	return ptr, true
}

// largeOverhead is spec §4.2's ⌊count * large_span_overhead_mul⌋: the
// number of extra spans a cached reservation may carry over spanCount
// before it's worth splitting instead of handing out as-is.
func (a *Arena) largeOverhead(spanCount int32) int32 {
	return int32(float64(spanCount) * a.largeOverheadMul)
}

// getLargeSpanFromCaches is spec §4.2's get_large_span_from_caches:
// first the cheap [count, count+overhead] scan across this arena's own
// cache then the global cache, then, only if split.largetolarge allows
// splitting the result, a second scan widened up to the largest
// configured large-span count, and finally a fresh backing-allocator
// mapping of exactly spanCount spans.
func (a *Arena) getLargeSpanFromCaches(spanCount int32) (*span.Span, bool) {
	overhead := a.largeOverhead(spanCount)
	hi := spanCount + overhead
	if hi > a.maxLargeSpanCount {
		hi = a.maxLargeSpanCount
	}
	if s, ok := a.scanLargeCaches(spanCount, hi); ok {
		return s, true
	}
	if a.splitLargeToLarge && hi < a.maxLargeSpanCount {
		if s, ok := a.scanLargeCaches(hi+1, a.maxLargeSpanCount); ok {
			return s, true
		}
	}
	return a.mapReservation(int64(spanCount))
}

func (a *Arena) scanLargeCaches(min, max int32) (*span.Span, bool) {
	if s, ok := a.cache.getLargeInRange(min, max); ok {
		a.report.CacheHit("large")
		return s, true
	}
	a.report.CacheMiss("large")
	if a.global != nil {
		if s, ok := a.global.GetInRange(min, max); ok {
			return s, true
		}
	}
	return nil, false
}

// allocateHuge maps a dedicated reservation directly, spec §4.3's
// allocate_huge: never cached, never split, never touched again by the
// allocator except to unmap it on free. align beyond the span size is
// satisfied by over-allocating and recording a constant recovery
// offset (Span.Recover), never by writing anything into user memory.
func (a *Arena) allocateHuge(size, align int64) (unsafe.Pointer, bool) {
	spanSize := a.table.SpanSize
	extra := int64(0)
	if align > spanSize {
		extra = align
	}
	spanCount := ceilDivInt64(size+extra, spanSize)
	s, ok := a.mapReservation(spanCount)
	if !ok {
		return nil, false
	}
	base := uintptr(s.Base())
	offset := int64(0)
	if extra > 0 {
		aligned := (base + uintptr(align) - 1) &^ (uintptr(align) - 1)
		offset = int64(aligned - base)
	}
	s.Carve(int8(sizeclass.RegimeHuge), -1, s.Bytes()-offset, offset)
	s.SetOwner(unsafe.Pointer(a))
	a.reg.register(s)
	ptr, _ := s.PopFree()
	return ptr, true
}

func ceilDivInt64(n, d int64) int64 {
	if n%d == 0 {
		return n / d
	}
	return n/d + 1
}

// mapReservation always produces a fresh master span of exactly
// spanCount spans straight from the backing allocator; the one-span
// path folds this in behind a batching cache (getOneSpanFromCacheOrNew),
// large and huge paths call it directly since they aren't worth
// pre-batching.
func (a *Arena) mapReservation(spanCount int64) (*span.Span, bool) {
	size := spanCount * a.table.SpanSize
	ptr, ok := a.backing.RawAlloc(size)
	if !ok {
		return nil, false
	}
	s := span.NewMaster(ptr, size, ptr, a.table.SpanSize, int32(spanCount))
	a.report.SpanMapped(spanCount, a.table.SpanSize)
	return s, true
}

// getOneSpanFromCacheOrNew is spec §4.2's get_span_from_cache_or_new:
// the per-arena 1-span cache, then the global cache, then a leftover
// fragment from a previous batched mapping, then, if split.largetoone
// allows it, splitting a single span off whatever large reservation is
// sitting in a cache, and only then a fresh backing-allocator call.
func (a *Arena) getOneSpanFromCacheOrNew() (*span.Span, bool) {
	if s, ok := a.cache.getOneSpan(); ok {
		a.report.CacheHit("onespan")
		return s, true
	}
	a.report.CacheMiss("onespan")
	if a.global != nil {
		if s, ok := a.global.Get(1); ok {
			return s, true
		}
	}
	if s, ok := a.cache.popMap(); ok {
		return a.splitOneFrom(s), true
	}
	if a.splitLargeToOne {
		if s, ok := a.takeAnyLargeSpan(); ok {
			head, remainder := span.SplitFirst(s, 1)
			a.cacheLargeSpanOrFree(remainder)
			return head, true
		}
	}
	return a.mapFreshBatch()
}

// takeAnyLargeSpan scans every cached large-span count for the
// smallest available reservation, the split.largetoone source spec
// §4.2 step 4 describes: splitting a cheap couple-span reservation off
// a large cache is cheaper than a fresh backing-allocator call.
func (a *Arena) takeAnyLargeSpan() (*span.Span, bool) {
	if s, ok := a.cache.getLargeInRange(2, a.maxLargeSpanCount); ok {
		return s, true
	}
	if a.global != nil {
		if s, ok := a.global.GetInRange(2, a.maxLargeSpanCount); ok {
			return s, true
		}
	}
	return nil, false
}

// mapFreshBatch is spec §4.2 step 5's reservation-size floor:
// map_count = max(page_size/span_size, map.alloccount, span.allocount),
// so a single fresh mapping never comes back smaller than a whole OS
// page or the configured floor even if span.allocount alone would.
func (a *Arena) mapFreshBatch() (*span.Span, bool) {
	batch := a.spanAllocCount
	if batch < 1 {
		batch = 1
	}
	if floor := a.backing.PageSize() / a.table.SpanSize; floor > batch {
		batch = floor
	}
	if a.mapAllocCount > batch {
		batch = a.mapAllocCount
	}
	reservation, ok := a.mapReservation(batch)
	if !ok {
		return nil, false
	}
	return a.splitOneFrom(reservation), true
}

func (a *Arena) splitOneFrom(s *span.Span) *span.Span {
	if s.SpanCount == 1 {
		return s
	}
	head, remainder := span.SplitFirst(s, 1)
	a.cache.pushMap(remainder)
	return head
}

// Free implements spec §4.6's free entry point. Any goroutine may call
// it for any pointer this allocator instance handed out, regardless of
// which arena is bound to the calling thread.
func (a *Arena) Free(ptr unsafe.Pointer) {
	s := a.reg.lookup(ptr)
	if s == nil {
		panic(spanerr.ErrInvalidPointer)
	}
	trueBase := s.Recover(ptr)

	if s.Regime == int8(sizeclass.RegimeHuge) {
		a.reg.unregister(s)
		a.report.SpanUnmapped(int64(s.SpanCount), s.SpanSize)
		s.Unmap(a.backing.RawFree)
		return
	}

	owner := (*Arena)(s.Owner())
	if owner == a {
		a.freeLocal(s, trueBase)
		return
	}
	wasFull := s.Full()
	s.PushDeferred(trueBase)
	if wasFull && s.MarkPendingReclaim() && owner != nil {
		owner.pushDeferredPartial(s)
	}
}

func (a *Arena) freeLocal(s *span.Span, ptr unsafe.Pointer) {
	if s.Regime == int8(sizeclass.RegimeLarge) {
		a.recycleSpan(s)
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	wasFull := s.Full()
	s.PushFree(ptr)
	class := s.Class
	switch {
	case s.Empty():
		a.unlinkPartialLocked(class, s)
		a.recycleSpan(s)
	case wasFull:
		a.pushPartialLocked(class, s)
	}
}

// recycleSpan returns an empty span to whichever cache tier matches
// its regime, unmapping it only if every tier is full (or, for large
// spans, if recycle.largespans says not to bother). Shared by the
// local-free, cross-thread deferred-partial drain, and large-free
// paths so the fallback order is defined in exactly one place.
func (a *Arena) recycleSpan(s *span.Span) {
	a.reg.unregister(s)
	s.SetOwner(nil)
	if s.Regime == int8(sizeclass.RegimeLarge) {
		a.cacheLargeSpanOrFree(s)
		return
	}
	if a.cache.putOneSpan(s) || (a.global != nil && a.global.Put(s)) {
		return
	}
	a.report.SpanUnmapped(int64(s.SpanCount), s.SpanSize)
	s.Unmap(a.backing.RawFree)
}

// cacheLargeSpanOrFree is spec §4.2's cache_large_span_or_free: an
// unowned large span, whether a fully freed allocation or an uncarved
// remainder left over from splitting a bigger cached one, either goes
// back to a cache tier or straight to the backing allocator, gated by
// recycle.largespans.
func (a *Arena) cacheLargeSpanOrFree(s *span.Span) {
	if a.recycleLargeSpans && (a.cache.putLarge(s) || (a.global != nil && a.global.Put(s))) {
		return
	}
	a.report.SpanUnmapped(int64(s.SpanCount), s.SpanSize)
	s.Unmap(a.backing.RawFree)
}

// pushDeferredPartial is spec §4.2's Treiber-stack deferred-partial-span
// list: a cross-thread free that pushed a full span back to reclaimable
// can't touch this arena's partial list itself (only the owner
// touches Next/Prev without a lock), so it hands the span off here for
// the owner to pick up on its next allocation.
func (a *Arena) pushDeferredPartial(s *span.Span) {
	for {
		head := atomic.LoadPointer(&a.deferredPartial)
		s.DeferredNext = (*span.Span)(head)
		if atomic.CompareAndSwapPointer(&a.deferredPartial, head, unsafe.Pointer(s)) {
			return
		}
	}
}

// drainDeferredPartialLocked splices every span queued by
// pushDeferredPartial back into the ordinary per-class partial list.
// Owner-thread only; called with a.mu held.
func (a *Arena) drainDeferredPartialLocked() {
	head := atomic.SwapPointer(&a.deferredPartial, nil)
	for head != nil {
		s := (*span.Span)(head)
		head = unsafe.Pointer(s.DeferredNext)
		s.DeferredNext = nil
		s.DrainDeferred()
		s.ClearPendingReclaim()
		if s.Empty() {
			a.recycleSpan(s)
			continue
		}
		a.pushPartialLocked(s.Class, s)
	}
}

// UsableSize returns the actual block size backing ptr, which may
// exceed the size originally requested.
func (a *Arena) UsableSize(ptr unsafe.Pointer) int64 {
	s := a.reg.lookup(ptr)
	if s == nil {
		panic(spanerr.ErrInvalidPointer)
	}
	return s.BlockSize
}

// Utilization reports, per class, the fraction of blocks in that
// class's partial spans that are currently live.
func (a *Arena) Utilization() ([]int32, []float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	classes := make([]int32, 0, len(a.partial))
	pcts := make([]float64, 0, len(a.partial))
	for class, head := range a.partial {
		var used, total int64
		for s := head; s != nil; s = s.Next {
			used += int64(s.Used())
			total += int64(s.BlockCount)
		}
		if total == 0 {
			continue
		}
		classes = append(classes, int32(class))
		pcts = append(pcts, float64(used)/float64(total))
	}
	return classes, pcts
}

// Release marks the arena unusable for further allocation. Spans still
// cached or partially allocated are left as-is; callers that want a
// full teardown should drain outstanding allocations first.
func (a *Arena) Release() {
	atomic.StoreInt32(&a.released, 1)
}
