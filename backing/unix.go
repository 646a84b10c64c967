// Package backing supplies concrete api.BackingAllocator implementations:
// the raw, page-granular source of memory the arena carves spans from.
// Spec §1(ii) treats the backing allocator as out of scope for the
// core's own logic, but a runnable module needs at least one real
// implementation, so this package ships three.
package backing

import (
	"unsafe"

	"github.com/prataprc/spanmalloc/logging"
	"golang.org/x/sys/unix"
)

// Unix maps anonymous, private pages directly with mmap/munmap. It
// hands back exactly the (addr, length) pair munmap needs, per spec
// §6's raw_free contract.
type Unix struct {
	pageSize int64
}

// NewUnix constructs a Unix backing allocator, reading the OS page
// size once at startup.
func NewUnix() *Unix {
	return &Unix{pageSize: int64(unix.Getpagesize())}
}

func (u *Unix) PageSize() int64 { return u.pageSize }

func (u *Unix) RawAlloc(size int64) (ptr unsafe.Pointer, ok bool) {
	size = roundUp(size, u.pageSize)
	b, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		logging.Errorf("backing: mmap(%d) failed: %v", size, err)
		return nil, false
	}
	return sliceToPtr(b), true
}

func (u *Unix) RawFree(ptr unsafe.Pointer, size int64) {
	b := ptrToSlice(ptr, roundUp(size, u.pageSize))
	if err := unix.Munmap(b); err != nil {
		logging.Errorf("backing: munmap(%p, %d) failed: %v", ptr, size, err)
	}
}

func roundUp(n, unit int64) int64 {
	if n%unit == 0 {
		return n
	}
	return (n/unit + 1) * unit
}
