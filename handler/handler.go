// Package handler implements spec §4.3's thread→arena binding: the
// layer between the facade and a bare arena.Arena that decides which
// arena serves a given calling goroutine, in either of the two
// supported strategies. Everything here is a slowpath relative to the
// arena's own Alloc/Free: Acquire is meant to be called once per
// operation (or cached by the caller across a batch) and is cheap in
// both modes, but it is not the hot Alloc/Free loop itself.
package handler

import (
	"fmt"
	"sync/atomic"

	"github.com/prataprc/spanmalloc/api"
	"github.com/prataprc/spanmalloc/arena"
	"github.com/prataprc/spanmalloc/config"
	"github.com/prataprc/spanmalloc/globalcache"
	"github.com/prataprc/spanmalloc/sizeclass"
	"github.com/prataprc/spanmalloc/spanerr"
)

// acquirer is satisfied by both threadLocalHandler and sharedHandler.
type acquirer interface {
	Acquire() (*arena.Arena, func())
}

// Handler is the process-facing binding object the facade holds: one
// Handler per independently-configured allocator instance. It owns the
// shared sizeclass.Table, arena.Registry and (in thread-local mode)
// globalcache.Cache that every arena it creates is built from.
type Handler struct {
	slotID int32
	mode   string
	impl   acquirer

	tl *threadLocalHandler
	sh *sharedHandler

	released int32
}

// NewHandler builds a Handler per the mode named by
// config.KeyHandlerMode (config.ModeThreadLocal by default). backing
// must not be nil; rep may be nil, in which case events are discarded
// via api.NopReporter.
func NewHandler(setts config.Settings, backing api.BackingAllocator, rep api.Reporter) *Handler {
	if rep == nil {
		rep = api.NopReporter{}
	}
	table := sizeclass.New(setts)
	reg := arena.NewRegistry(table.SpanSize)

	mode := setts.String(config.KeyHandlerMode)
	if mode == "" {
		mode = config.ModeThreadLocal
	}

	var global *globalcache.Cache
	if mode == config.ModeThreadLocal {
		maxSpanCount := int(table.LargeSpanCount(table.ClassCount() - 1))
		mult := setts.Int64(config.KeyGlobalCacheMultiplier)
		if mult < 1 {
			mult = 1
		}
		oneSpanCap := nextPow2(setts.Int64(config.KeyCacheLimit) * mult)
		largeCap := nextPow2(setts.Int64(config.KeyLargeCacheLimit) * mult)
		global = globalcache.New(maxSpanCount, oneSpanCap, largeCap)
	}

	build := func() *arena.Arena {
		return arena.New(setts, table, backing, rep, reg, global)
	}

	h := &Handler{slotID: claimSlot(), mode: mode}
	switch mode {
	case config.ModeShared:
		batch := uint32(setts.Int64(config.KeySharedArenaBatchSize))
		if batch == 0 || batch&(batch-1) != 0 {
			panic(fmt.Errorf("handler: shared.arenabatchsize %d must be a power of two", batch))
		}
		h.sh = newSharedHandler(h.slotID, batch, build)
		h.impl = h.sh
	default:
		h.tl = newThreadLocalHandler(build)
		h.impl = h.tl
	}
	return h
}

// Acquire binds the calling goroutine to an arena, per whichever
// strategy this Handler was built with, and returns a release function
// the caller must invoke once it is done with the arena for this
// operation (a no-op in thread-local mode, a writer_lock release in
// shared mode).
func (h *Handler) Acquire() (*arena.Arena, func()) {
	if atomic.LoadInt32(&h.released) != 0 {
		panic(spanerr.ErrArenaReleased)
	}
	return h.impl.Acquire()
}

// Release marks every arena this Handler ever created as released.
// Outstanding allocations are left as-is; a full teardown is the
// caller's responsibility once it has quiesced every goroutine using
// this Handler.
func (h *Handler) Release() {
	atomic.StoreInt32(&h.released, 1)
	switch {
	case h.tl != nil:
		h.tl.forEach(func(a *arena.Arena) { a.Release() })
	case h.sh != nil:
		h.sh.forEach(func(a *arena.Arena) { a.Release() })
	}
}

func nextPow2(n int64) int {
	if n < 2 {
		return 2
	}
	p := int64(1)
	for p < n {
		p <<= 1
	}
	return int(p)
}
