package span

import (
	"sync"
	"testing"
	"unsafe"
)

func newTestMaster(t *testing.T, spanSize int64, spanCount int32) *Span {
	t.Helper()
	buf := make([]byte, spanSize*int64(spanCount))
	ptr := unsafe.Pointer(&buf[0])
	s := NewMaster(ptr, int64(len(buf)), ptr, spanSize, spanCount)
	// keep buf alive for the duration of the test via a closure captured
	// on cleanup; unsafe.Pointer arithmetic here never outlives buf.
	t.Cleanup(func() { _ = buf })
	return s
}

func TestCarvePopFreeExhaustsBlockCount(t *testing.T) {
	s := newTestMaster(t, 4096, 1)
	s.Carve(0, 0, 64, 0)
	if s.BlockCount != 4096/64 {
		t.Fatalf("expected %d blocks, got %d", 4096/64, s.BlockCount)
	}
	seen := map[unsafe.Pointer]bool{}
	for i := int32(0); i < s.BlockCount; i++ {
		ptr, ok := s.PopFree()
		if !ok {
			t.Fatalf("pop %d failed before exhausting block count", i)
		}
		if seen[ptr] {
			t.Fatalf("pop %d returned a duplicate pointer", i)
		}
		seen[ptr] = true
	}
	if _, ok := s.PopFree(); ok {
		t.Fatal("expected span to be exhausted")
	}
	if !s.Full() {
		t.Fatal("expected span to report full once exhausted")
	}
}

func TestPushFreeReusesBlocks(t *testing.T) {
	s := newTestMaster(t, 4096, 1)
	s.Carve(0, 0, 64, 0)
	ptr, _ := s.PopFree()
	s.PushFree(ptr)
	if s.Full() {
		t.Fatal("span should not be full after a free")
	}
	got, ok := s.PopFree()
	if !ok || got != ptr {
		t.Fatal("expected PopFree to hand back the just-freed block first (LIFO)")
	}
}

func TestPushDeferredAndDrain(t *testing.T) {
	s := newTestMaster(t, 4096, 1)
	s.Carve(0, 0, 64, 0)

	const n = 32
	ptrs := make([]unsafe.Pointer, n)
	for i := range ptrs {
		ptr, ok := s.PopFree()
		if !ok {
			t.Fatalf("pop %d failed", i)
		}
		ptrs[i] = ptr
	}
	before := s.Used()

	var wg sync.WaitGroup
	for _, ptr := range ptrs {
		wg.Add(1)
		go func(p unsafe.Pointer) {
			defer wg.Done()
			s.PushDeferred(p)
		}(ptr)
	}
	wg.Wait()

	if !s.HasDeferred() {
		t.Fatal("expected deferred list to be non-empty before drain")
	}
	recovered := s.DrainDeferred()
	if recovered != int32(n) {
		t.Fatalf("expected to recover %d blocks, got %d", n, recovered)
	}
	if s.Used() != before-int32(n) {
		t.Fatalf("expected used count to drop by %d", n)
	}
	if s.HasDeferred() {
		t.Fatal("expected deferred list to be empty after drain")
	}
}

func TestRecoverUndoesAlignmentOffset(t *testing.T) {
	s := newTestMaster(t, 4096, 1)
	s.Carve(0, -1, 4096-64, 64)
	ptr, ok := s.PopFree()
	if !ok {
		t.Fatal("pop failed")
	}
	base := s.Recover(ptr)
	if uintptr(base) != uintptr(ptr)-64 {
		t.Fatalf("expected Recover to shift back by the alignment offset")
	}
}

func TestSplitFirstSharesMasterBookkeeping(t *testing.T) {
	reservation := newTestMaster(t, 4096, 4)
	head, remainder := SplitFirst(reservation, 1)
	if head.SpanCount != 1 || remainder.SpanCount != 3 {
		t.Fatalf("unexpected split sizes: head=%d remainder=%d", head.SpanCount, remainder.SpanCount)
	}
	if head.Master != reservation || remainder.Master != reservation {
		t.Fatal("expected both fragments to point at the original master")
	}
	if uintptr(remainder.Base()) != uintptr(head.Base())+4096 {
		t.Fatal("expected remainder to start right after head")
	}
}

func TestUnmapOnlyFiresOnceEveryFragmentReleases(t *testing.T) {
	reservation := newTestMaster(t, 4096, 2)
	head, remainder := SplitFirst(reservation, 1)

	freed := 0
	rawFree := func(ptr unsafe.Pointer, size int64) { freed++ }

	head.Unmap(rawFree)
	if freed != 0 {
		t.Fatal("expected no rawFree call until every fragment unmaps")
	}
	remainder.Unmap(rawFree)
	if freed != 1 {
		t.Fatalf("expected exactly one rawFree call, got %d", freed)
	}
}

func TestPushDeferredConcurrentWithDrainNeverUndercounts(t *testing.T) {
	s := newTestMaster(t, 4096, 1)
	s.Carve(0, 0, 16, 0)

	const n = 256
	ptrs := make([]unsafe.Pointer, n)
	for i := range ptrs {
		ptr, ok := s.PopFree()
		if !ok {
			t.Fatalf("pop %d failed", i)
		}
		ptrs[i] = ptr
	}
	before := s.Used()

	var wg sync.WaitGroup
	done := make(chan struct{})
	var drainWg sync.WaitGroup
	drainWg.Add(1)
	go func() {
		defer drainWg.Done()
		for {
			select {
			case <-done:
				s.DrainDeferred()
				return
			default:
				s.DrainDeferred()
			}
		}
	}()

	for _, ptr := range ptrs {
		wg.Add(1)
		go func(p unsafe.Pointer) {
			defer wg.Done()
			s.PushDeferred(p)
		}(ptr)
	}
	wg.Wait()
	close(done)
	drainWg.Wait()

	// a racing DrainDeferred that claims the list the instant after a
	// PushDeferred publishes its new head must still see that push's
	// contribution to deferredCount; a stale n=0 read here would leave
	// used permanently overcounted by the lost pushes.
	if s.Used() != before-int32(n) {
		t.Fatalf("expected used to drop by %d across every push, got used=%d before=%d", n, s.Used(), before)
	}
}

func TestFullTransitionVisibleAcrossGoroutines(t *testing.T) {
	s := newTestMaster(t, 4096, 1)
	s.Carve(0, 0, 4096, 0) // one block: PopFree immediately exhausts it

	ptr, ok := s.PopFree()
	if !ok {
		t.Fatal("pop failed")
	}
	if !s.Full() {
		t.Fatal("expected span to be full once its only block is popped")
	}

	seenFull := make(chan bool, 1)
	go func() {
		// a foreign goroutine's Free path reads Full() with no lock or
		// other synchronization, spec §5; this must observe the true
		// value rather than a torn or stale one.
		seenFull <- s.Full()
	}()
	if !<-seenFull {
		t.Fatal("expected the cross-goroutine read to observe the span as full")
	}

	s.PushFree(ptr)
	if s.Full() {
		t.Fatal("expected span to report not full immediately after PushFree")
	}
}

func TestMarkPendingReclaimIsSingleWinner(t *testing.T) {
	s := newTestMaster(t, 4096, 1)
	s.Carve(0, 0, 64, 0)

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.MarkPendingReclaim() {
				wins++
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
	s.ClearPendingReclaim()
	if !s.MarkPendingReclaim() {
		t.Fatal("expected MarkPendingReclaim to succeed again after Clear")
	}
}
