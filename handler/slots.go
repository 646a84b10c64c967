package handler

import (
	"fmt"
	"sync/atomic"

	"github.com/prataprc/spanmalloc/spanerr"
)

// maxSlots bounds the process-wide dispatcher slot table (spec §9's
// "Global state" note and the redesign flags' slot-reclamation open
// question). Every Handler, thread-local or shared, claims one slot at
// construction so a shared handler's per-thread cache (threadCache in
// shared.go) has a stable, small index to key its array on; slots are never
// reclaimed when a Handler is done with, which is a documented
// limitation, not an oversight (see DESIGN.md).
const maxSlots = 256

var slotCounter int32 = -1

// claimSlot hands out the next never-reused slot id. Panics, wrapping
// spanerr.ErrHandlerSlotsExhausted, once the 257th handler in the process
// asks for one; a reimplementation is not expected to invent a
// reclamation scheme for this.
func claimSlot() int32 {
	id := atomic.AddInt32(&slotCounter, 1)
	if id >= maxSlots {
		panic(fmt.Errorf("%w: handler slot table exhausted at %d handlers", spanerr.ErrHandlerSlotsExhausted, maxSlots))
	}
	return id
}
