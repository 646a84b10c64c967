package lib

import "unsafe"
import "reflect"
import "encoding/json"

// Memcpy copies ln bytes from src to dst using raw pointers. Needed
// because span-managed memory is obtained via unsafe.Pointer from the
// backing allocator and never passes through a Go-managed []byte until
// a caller wants one.
func Memcpy(dst, src unsafe.Pointer, ln int) int {
	var srcnd, dstnd []byte
	srcsl := (*reflect.SliceHeader)(unsafe.Pointer(&srcnd))
	srcsl.Len, srcsl.Cap = ln, ln
	srcsl.Data = uintptr(src)
	dstsl := (*reflect.SliceHeader)(unsafe.Pointer(&dstnd))
	dstsl.Len, dstsl.Cap = ln, ln
	dstsl.Data = uintptr(dst)
	return copy(dstnd, srcnd)
}

// PtrToBytes wraps ln bytes starting at ptr as a []byte without copying.
// The returned slice is only valid as long as the underlying block is
// allocated.
func PtrToBytes(ptr unsafe.Pointer, ln int) []byte {
	var out []byte
	sl := (*reflect.SliceHeader)(unsafe.Pointer(&out))
	sl.Data, sl.Len, sl.Cap = uintptr(ptr), ln, ln
	return out
}

// Prettystats renders a stats map as JSON, indented if pretty is true.
func Prettystats(stats map[string]interface{}, pretty bool) string {
	var data []byte
	var err error
	if pretty {
		data, err = json.MarshalIndent(stats, "", "  ")
	} else {
		data, err = json.Marshal(stats)
	}
	if err != nil {
		panic(err)
	}
	return string(data)
}

// AbsInt64 returns the absolute value of x, except for -2^63 which has no
// positive counterpart representable in int64 and is returned unchanged.
func AbsInt64(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}
