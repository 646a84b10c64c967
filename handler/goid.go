package handler

import (
	"runtime"
	"strconv"
)

// goroutineID recovers the calling goroutine's numeric id by parsing the
// header line of its own stack trace ("goroutine 37 [running]: ..."). Go
// has no public API for this because goroutines are meant to be
// anonymous, but thread-local mode (spec §4.3) needs *some* stable
// per-caller identity to bind an arena to "the calling thread" the first
// time it allocates, and a goroutine is the closest thing Go has to the
// source's OS thread. Both handler modes call it on every Acquire, to
// find the calling goroutine's bound arena or per-thread cache.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	// "goroutine 123 [running]:\n..."
	line := buf[:n]
	i := 10 // len("goroutine ")
	if i >= len(line) {
		return 0
	}
	j := i
	for j < len(line) && line[j] != ' ' {
		j++
	}
	id, err := strconv.ParseUint(string(line[i:j]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
