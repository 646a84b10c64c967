// Package facade is spanmalloc's public entry point: the thin,
// language-neutral alloc/resize/remap/free/usable_size surface spec §6
// describes, sitting on top of handler.Handler and arena.Arena. It
// carries no allocator logic of its own beyond computing whether a
// resize fits and copying bytes on a remap that has to move; every
// actual size-class and span decision is the handler/arena's.
package facade

import (
	"unsafe"

	"github.com/prataprc/spanmalloc/api"
	"github.com/prataprc/spanmalloc/config"
	"github.com/prataprc/spanmalloc/handler"
	"github.com/prataprc/spanmalloc/report"
)

// Allocator is one independently configured spanmalloc instance: a
// Handler plus the span size it was built with, cached here since
// Resize needs it on every call and Handler doesn't otherwise expose it.
type Allocator struct {
	h        *handler.Handler
	spanSize int64
	rep      *report.Reporter
}

// New builds an Allocator. backing must not be nil. If setts carries
// report.leaks=true, the returned Allocator's Report method exposes the
// accumulated leak/cache-hit accounting; otherwise events are discarded.
func New(setts config.Settings, backing api.BackingAllocator) *Allocator {
	var rep *report.Reporter
	var reporter api.Reporter
	if setts.Bool(config.KeyReportLeaks) {
		rep = report.New(setts.Int64(config.KeySpanSize), setts.Int64(config.KeyLargeMax))
		reporter = rep
	}
	return &Allocator{
		h:        handler.NewHandler(setts, backing, reporter),
		spanSize: setts.Int64(config.KeySpanSize),
		rep:      rep,
	}
}

// Report returns the leak/cache-accounting reporter, or nil if
// report.leaks was disabled at construction.
func (m *Allocator) Report() *report.Reporter { return m.rep }

// Alloc returns a block of at least size bytes, aligned to align (which
// must be a power of two), or (nil, false) if the request can't be
// satisfied.
func (m *Allocator) Alloc(size, align int64) (unsafe.Pointer, bool) {
	if align <= 0 || align&(align-1) != 0 {
		return nil, false
	}
	a, release := m.h.Acquire()
	defer release()
	return a.Alloc(size, align)
}

// Free releases a block previously returned by Alloc. size and align
// are accepted only as hints for API symmetry with the language-neutral
// contract in spec §6. Canonical dispatch always resolves ptr to its
// span through the registry, never trusting the caller's hint.
func (m *Allocator) Free(ptr unsafe.Pointer, size, align int64) {
	a, release := m.h.Acquire()
	defer release()
	a.Free(ptr)
}

// UsableSize returns the actual number of bytes usable at ptr, which
// may exceed whatever size Alloc was originally called with.
func (m *Allocator) UsableSize(ptr unsafe.Pointer) int64 {
	a, release := m.h.Acquire()
	defer release()
	return a.UsableSize(ptr)
}

func isAligned(ptr unsafe.Pointer, align int64) bool {
	if align <= 0 {
		return true
	}
	return uintptr(ptr)%uintptr(align) == 0
}

// Resize attempts an in-place grow or shrink of ptr, previously
// allocated (or resized) with oldSize bytes, to newSize bytes at the
// same alignment. It never moves the block; a caller whose Resize fails
// must fall back to Remap or a manual alloc+copy+free.
func (m *Allocator) Resize(ptr unsafe.Pointer, oldSize, newSize, align int64) bool {
	if !isAligned(ptr, align) {
		return false
	}
	a, release := m.h.Acquire()
	defer release()
	capacity := a.UsableSize(ptr)

	if capacity < m.spanSize {
		// small/medium: block_size is fixed by the class ptr was carved
		// from, independent of what the caller claims oldSize was.
		return newSize <= capacity
	}

	// large/huge: capacity is span-granular, and the caller's oldSize
	// may understate it (Alloc rounds up internally). Recompute the
	// same ceiling, rounded up to whole spans, the caller would see from oldSize alone
	// (spec §9's corrected resize formula), clamped to the span's real
	// capacity so a generous oldSize can never claim more room than
	// actually exists.
	rounded := ceilToPage(oldSize, m.spanSize)
	if rounded > capacity {
		rounded = capacity
	}
	return newSize <= rounded
}

// Remap resizes in place when Resize would succeed, or allocates a new
// block, copies min(oldSize, newSize) bytes, and frees the old block
// when it would not. Returns (nil, false) only if the fallback
// allocation itself fails.
func (m *Allocator) Remap(ptr unsafe.Pointer, oldSize, newSize, align int64) (unsafe.Pointer, bool) {
	if m.Resize(ptr, oldSize, newSize, align) {
		return ptr, true
	}
	newPtr, ok := m.Alloc(newSize, align)
	if !ok {
		return nil, false
	}
	n := oldSize
	if newSize < n {
		n = newSize
	}
	copy(unsafe.Slice((*byte)(newPtr), n), unsafe.Slice((*byte)(ptr), n))
	m.Free(ptr, oldSize, align)
	return newPtr, true
}

// Release tears down the underlying handler; see handler.Handler.Release.
func (m *Allocator) Release() { m.h.Release() }
