package backing

import (
	"reflect"
	"unsafe"
)

// sliceToPtr and ptrToSlice convert between a mmap-returned []byte and
// the raw unsafe.Pointer api.BackingAllocator deals in, via the
// reflect.SliceHeader trick for walking raw memory without copying.
func sliceToPtr(b []byte) unsafe.Pointer {
	if len(b) == 0 {
		return nil
	}
	return unsafe.Pointer(&b[0])
}

func ptrToSlice(ptr unsafe.Pointer, size int64) []byte {
	var b []byte
	sh := (*reflect.SliceHeader)(unsafe.Pointer(&b))
	sh.Data = uintptr(ptr)
	sh.Len = int(size)
	sh.Cap = int(size)
	return b
}
