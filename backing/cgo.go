package backing

/*
#include <stdlib.h>

// posix_memalign wrapper: cgo can't call variadic/multi-return C
// functions directly, and Go can't take the address of a C pointer
// local, so this tiny shim keeps the call one-directional.
static void *spanmalloc_alloc_aligned(size_t alignment, size_t size) {
	void *p = NULL;
	if (posix_memalign(&p, alignment, size) != 0) {
		return NULL;
	}
	return p;
}
*/
import "C"

import "unsafe"

// CGO backs spans with posix_memalign, calling into C directly for
// span memory. The alignment is the arena's span size, not an implicit
// machine-word alignment, since every span must start on a span-size
// boundary.
type CGO struct {
	alignment int64
}

// NewCGO constructs a backing allocator that hands out memory aligned
// to align bytes, normally the configured span size.
func NewCGO(align int64) *CGO {
	return &CGO{alignment: align}
}

func (c *CGO) PageSize() int64 { return c.alignment }

func (c *CGO) RawAlloc(size int64) (unsafe.Pointer, bool) {
	size = roundUp(size, c.alignment)
	p := C.spanmalloc_alloc_aligned(C.size_t(c.alignment), C.size_t(size))
	if p == nil {
		return nil, false
	}
	return unsafe.Pointer(p), true
}

func (c *CGO) RawFree(ptr unsafe.Pointer, size int64) {
	C.free(ptr)
}
