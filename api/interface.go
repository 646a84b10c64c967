// Package api defines the interfaces the arena core consumes from, and
// exposes to, its external collaborators: the allocator facade, the
// backing page allocator, configuration, and leak reporting. Types in
// this package carry no logic of their own.
package api

import "unsafe"

// BackingAllocator is the trait-level dependency the arena core uses to
// obtain and release page-aligned virtual memory. Implementations live
// outside the core (package backing) and are swappable via configuration.
type BackingAllocator interface {
	// RawAlloc returns page-aligned memory of at least size bytes, or nil
	// if the request cannot be satisfied.
	RawAlloc(size int64) (ptr unsafe.Pointer, ok bool)

	// RawFree releases memory previously returned by RawAlloc. ptr and
	// size must be exactly the pair RawAlloc returned; implementations
	// are not required to accept a sub-range or a widened range.
	RawFree(ptr unsafe.Pointer, size int64)

	// PageSize reports the granularity RawAlloc rounds up to.
	PageSize() int64
}

// Mallocer is implemented by Arena and is the interface the facade
// dispatches through once it has computed a size class.
type Mallocer interface {
	// Alloc a block of n bytes, at least align-aligned. Returns nil, false
	// on failure (never panics for a routine capacity failure).
	Alloc(n, align int64) (ptr unsafe.Pointer, ok bool)

	// Free a block previously returned by Alloc, from any thread.
	Free(ptr unsafe.Pointer)

	// UsableSize returns the number of bytes usable at ptr without
	// corrupting a neighboring block.
	UsableSize(ptr unsafe.Pointer) int64

	// Release marks the arena released. It does not unmap the spans or
	// cache entries the arena holds.
	Release()
}

// Reporter receives accounting events from the core for leak reporting
// and diagnostics (spec §1(iv), an external collaborator).
type Reporter interface {
	SpanMapped(spanCount, spanSize int64)
	SpanUnmapped(spanCount, spanSize int64)
	CacheHit(tier string)
	CacheMiss(tier string)
}

// NopReporter discards every event; the zero value is ready to use and is
// the default when report_leaks is disabled.
type NopReporter struct{}

func (NopReporter) SpanMapped(int64, int64)   {}
func (NopReporter) SpanUnmapped(int64, int64) {}
func (NopReporter) CacheHit(string)           {}
func (NopReporter) CacheMiss(string)          {}
