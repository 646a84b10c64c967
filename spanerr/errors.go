// Package spanerr collects the sentinel errors surfaced by spanmalloc's
// diagnostic and lifecycle APIs. The hot allocate/free path never returns
// these directly (spec §7): it collapses failure to nil/false and lets
// the facade decide. These sentinels exist for Release, usable-size
// queries on bad pointers, and tests that pin a specific failure mode.
package spanerr

import "errors"

// ErrOutOfMemory: the backing allocator could not satisfy a request, a
// size computation overflowed, or arena/handler creation failed.
var ErrOutOfMemory = errors.New("spanmalloc.outofmemory")

// ErrInvalidAlignment: the requested alignment exceeds the implementation
// ceiling tied to the configured span size.
var ErrInvalidAlignment = errors.New("spanmalloc.invalidalignment")

// ErrArenaReleased: an operation was attempted against an arena or
// handler that already had Release called on it.
var ErrArenaReleased = errors.New("spanmalloc.arenareleased")

// ErrArenaBusy: shared-mode try-acquire found every arena in the current
// dispatcher generation locked. Nothing in spanmalloc returns it: the
// handler's Acquire always falls back to growing a new set instead.
var ErrArenaBusy = errors.New("spanmalloc.arenabusy")

// ErrInvalidPointer: Free or UsableSize was called with a pointer this
// allocator instance never handed out, or one it already freed.
var ErrInvalidPointer = errors.New("spanmalloc.invalidpointer")

// ErrHandlerSlotsExhausted: the process-wide dispatcher slot table (spec
// §9, MAX_SLOTS=256) has no free slot left for a new Handler. Slots are
// never reclaimed; this is a documented limitation, not a bug.
var ErrHandlerSlotsExhausted = errors.New("spanmalloc.handlerslotsexhausted")

// ErrConfigMissing, ErrConfigNoNumber, ErrConfigNoBool, ErrConfigNoString
// name configuration lookup failures. Nothing in spanmalloc returns them;
// the config accessors panic on a missing or mistyped key instead.
var ErrConfigMissing = errors.New("spanmalloc.config.missing")
var ErrConfigNoNumber = errors.New("spanmalloc.config.nonumber")
var ErrConfigNoBool = errors.New("spanmalloc.config.nobool")
var ErrConfigNoString = errors.New("spanmalloc.config.nostring")
