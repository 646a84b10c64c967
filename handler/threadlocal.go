package handler

import (
	"sync"

	"github.com/prataprc/spanmalloc/arena"
	"github.com/prataprc/spanmalloc/logging"
)

// threadLocalHandler is spec §4.3's thread-local strategy: one arena per
// calling goroutine, created lazily on that goroutine's first
// allocation. The arena is never contended, so Acquire's release
// function is a no-op and writer_lock plays no part here at all; the
// only cross-thread traffic is the deferred-free path arena.Arena
// already handles.
type threadLocalHandler struct {
	build func() *arena.Arena

	mu     sync.Mutex
	arenas map[uint64]*arena.Arena
}

func newThreadLocalHandler(build func() *arena.Arena) *threadLocalHandler {
	return &threadLocalHandler{
		build:  build,
		arenas: map[uint64]*arena.Arena{},
	}
}

func (h *threadLocalHandler) Acquire() (*arena.Arena, func()) {
	gid := goroutineID()

	h.mu.Lock()
	a, ok := h.arenas[gid]
	if !ok {
		logging.Debugf("spanmalloc: creating thread-local arena for goroutine %d", gid)
		a = h.build()
		h.arenas[gid] = a
	}
	h.mu.Unlock()

	return a, func() {}
}

func (h *threadLocalHandler) forEach(fn func(*arena.Arena)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, a := range h.arenas {
		fn(a)
	}
}
