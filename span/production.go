// +build !debug

package span

import "unsafe"

func debugCarve(s *Span)                             {}
func debugMarkAllocated(s *Span, ptr unsafe.Pointer) {}
func debugMarkFreed(s *Span, ptr unsafe.Pointer)     {}
func debugRelease(s *Span)                           {}
