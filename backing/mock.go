package backing

import (
	"sync"
	"unsafe"
)

// Mock is a []byte-backed allocator for tests that must run under
// go test -race without invoking real mmap, and for pinning that the
// huge allocation path never dereferences a span header (spec §8):
// every region it hands out is poisoned with a distinct byte pattern
// on alloc and on free, so a test can assert the pattern never leaks
// into user-visible bytes.
type Mock struct {
	mu       sync.Mutex
	pageSize int64
	live     map[uintptr][]byte
	touched  []TouchedRange // every RawAlloc/RawFree call, for assertions
}

type TouchedRange struct {
	Ptr  uintptr
	Size int64
	Freed bool
}

func NewMock(pageSize int64) *Mock {
	return &Mock{pageSize: pageSize, live: map[uintptr][]byte{}}
}

func (m *Mock) PageSize() int64 { return m.pageSize }

func (m *Mock) RawAlloc(size int64) (unsafe.Pointer, bool) {
	size = roundUp(size, m.pageSize)
	b := make([]byte, size)
	for i := range b {
		b[i] = 0xcd // poison: distinguishable from a zeroed page
	}
	ptr := sliceToPtr(b)

	m.mu.Lock()
	m.live[uintptr(ptr)] = b
	m.touched = append(m.touched, TouchedRange{Ptr: uintptr(ptr), Size: size})
	m.mu.Unlock()
	return ptr, true
}

func (m *Mock) RawFree(ptr unsafe.Pointer, size int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.live[uintptr(ptr)]
	if !ok {
		panic("backing.Mock: RawFree of unknown or already-freed pointer")
	}
	for i := range b {
		b[i] = 0xfe // distinct poison for use-after-free detection
	}
	delete(m.live, uintptr(ptr))
	m.touched = append(m.touched, TouchedRange{Ptr: uintptr(ptr), Size: size, Freed: true})
}

// LiveCount reports how many outstanding reservations remain unfreed.
func (m *Mock) LiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}

// Touched returns a copy of every alloc/free call recorded so far.
func (m *Mock) Touched() []TouchedRange {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]TouchedRange, len(m.touched))
	copy(out, m.touched)
	return out
}
