package arena

import (
	"sync"
	"unsafe"

	"github.com/prataprc/spanmalloc/span"
)

// registry answers "which span owns this pointer" (spec §9,
// address-to-span derivation) by keying on the pointer's span-aligned
// base address. Spans are always span-size-aligned, so masking off the
// low bits of any pointer inside one recovers that base in O(1);
// looking the base up in this table then recovers the span descriptor
// itself, since (unlike a C allocator) the descriptor is a plain Go
// struct that doesn't live in-band with the span's memory.
//
// Registry is shared by every arena that was built with the same span
// size, since a single process only ever runs one span size. Exported
// so package handler can build one Registry per handler and hand it to
// every arena.New call the handler makes, without this package
// exposing anything about how it resolves pointers.
type Registry struct {
	mu       sync.RWMutex
	spans    map[uintptr]*span.Span
	spanMask uintptr
}

// NewRegistry builds a Registry for spans of the given size.
func NewRegistry(spanSize int64) *Registry {
	return &Registry{
		spans:    map[uintptr]*span.Span{},
		spanMask: ^(uintptr(spanSize) - 1),
	}
}

func (r *Registry) base(ptr unsafe.Pointer) uintptr {
	return uintptr(ptr) & r.spanMask
}

// register makes every span-size-aligned page within s resolvable to
// s, so Lookup works for a pointer anywhere inside a multi-span
// allocation, not just its first page.
func (r *Registry) register(s *span.Span) {
	r.mu.Lock()
	defer r.mu.Unlock()
	base := uintptr(s.Base())
	step := uintptr(s.SpanSize)
	for i := int32(0); i < s.SpanCount; i++ {
		r.spans[base+uintptr(i)*step] = s
	}
}

func (r *Registry) unregister(s *span.Span) {
	r.mu.Lock()
	defer r.mu.Unlock()
	base := uintptr(s.Base())
	step := uintptr(s.SpanSize)
	for i := int32(0); i < s.SpanCount; i++ {
		delete(r.spans, base+uintptr(i)*step)
	}
}

// lookup resolves any pointer previously handed out by an arena that
// shares this registry to its owning span, or nil if ptr wasn't
// carved from a span this registry knows about (a caller bug, or a
// huge allocation, which callers must check before falling back here).
func (r *Registry) lookup(ptr unsafe.Pointer) *span.Span {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.spans[r.base(ptr)]
}
