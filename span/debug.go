// +build debug

package span

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/prataprc/spanmalloc/lib"
)

// Debug builds track per-block free/allocated state in a side bitmap
// using lib.Bit8 bit-twiddling. It lives outside the Span struct so
// production builds pay nothing for it.
var (
	guardMu sync.Mutex
	guards  = map[*Span][]uint8{}
)

func debugCarve(s *Span) {
	guardMu.Lock()
	defer guardMu.Unlock()
	bm := make([]uint8, (s.BlockCount+7)/8)
	for i := range bm {
		bm[i] = 0xff // every block starts free
	}
	guards[s] = bm
}

func debugMarkAllocated(s *Span, ptr unsafe.Pointer) {
	idx := blockIndex(s, ptr)
	guardMu.Lock()
	defer guardMu.Unlock()
	bm := guards[s]
	if bm == nil {
		return
	}
	q, r := idx/8, uint8(idx%8)
	byt := lib.Bit8(bm[q])
	if !byt.Isset(r) {
		panic(fmt.Sprintf("span: double allocation of block %d", idx))
	}
	bm[q] = uint8(byt.Clearbit(r))
}

func debugMarkFreed(s *Span, ptr unsafe.Pointer) {
	idx := blockIndex(s, ptr)
	guardMu.Lock()
	defer guardMu.Unlock()
	bm := guards[s]
	if bm == nil {
		return
	}
	q, r := idx/8, uint8(idx%8)
	byt := lib.Bit8(bm[q])
	if byt.Isset(r) {
		panic(fmt.Sprintf("span: double free of block %d", idx))
	}
	bm[q] = uint8(byt.Setbit(r))
}

func debugRelease(s *Span) {
	guardMu.Lock()
	delete(guards, s)
	guardMu.Unlock()
}

func blockIndex(s *Span, ptr unsafe.Pointer) int32 {
	base := uintptr(s.allocPtr)
	return int32((uintptr(s.Recover(ptr)) - base) / uintptr(s.BlockSize))
}
