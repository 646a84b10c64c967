package queue

import (
	"sync"
	"testing"
	"unsafe"
)

func TestMPMCTryWriteReadOrder(t *testing.T) {
	q := NewMPMC(4)
	vals := []int{1, 2, 3}
	ptrs := make([]unsafe.Pointer, len(vals))
	for i := range vals {
		ptrs[i] = unsafe.Pointer(&vals[i])
		if !q.TryWrite(ptrs[i]) {
			t.Fatalf("write %d failed", i)
		}
	}
	for i := range vals {
		got, ok := q.TryRead()
		if !ok {
			t.Fatalf("read %d failed", i)
		}
		if got != ptrs[i] {
			t.Errorf("expected fifo order, got mismatch at %d", i)
		}
	}
}

func TestMPMCFullReturnsFalse(t *testing.T) {
	q := NewMPMC(2)
	var a, b, c int
	if !q.TryWrite(unsafe.Pointer(&a)) {
		t.Fatal("expected first write to succeed")
	}
	if !q.TryWrite(unsafe.Pointer(&b)) {
		t.Fatal("expected second write to succeed")
	}
	if q.TryWrite(unsafe.Pointer(&c)) {
		t.Fatal("expected write to full queue to fail")
	}
}

func TestMPMCEmptyReturnsFalse(t *testing.T) {
	q := NewMPMC(2)
	if _, ok := q.TryRead(); ok {
		t.Fatal("expected read of empty queue to fail")
	}
}

func TestMPMCPanicsOnBadCapacity(t *testing.T) {
	for _, cap := range []int{0, 1, 3, 5} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("expected panic for capacity %d", cap)
				}
			}()
			NewMPMC(cap)
		}()
	}
}

func TestMPMCConcurrentProducersConsumers(t *testing.T) {
	q := NewMPMC(64)
	const n = 2000
	items := make([]int, n)
	for i := range items {
		items[i] = i
	}

	var wg sync.WaitGroup
	producers := 4
	perProducer := n / producers
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(start int) {
			defer wg.Done()
			for i := start; i < start+perProducer; i++ {
				for !q.TryWrite(unsafe.Pointer(&items[i])) {
					// bounded queue, spin until a consumer drains
				}
			}
		}(p * perProducer)
	}

	seen := make(chan int, n)
	consumers := 4
	var cwg sync.WaitGroup
	done := make(chan struct{})
	for c := 0; c < consumers; c++ {
		cwg.Add(1)
		go func() {
			defer cwg.Done()
			for {
				select {
				case <-done:
					for {
						ptr, ok := q.TryRead()
						if !ok {
							return
						}
						seen <- *(*int)(ptr)
					}
				default:
					if ptr, ok := q.TryRead(); ok {
						seen <- *(*int)(ptr)
					}
				}
			}
		}()
	}

	wg.Wait()
	close(done)
	cwg.Wait()
	close(seen)

	count := 0
	total := 0
	for v := range seen {
		count++
		total += v
	}
	if count != n {
		t.Fatalf("expected to see %d items, saw %d", n, count)
	}
	expectedTotal := n * (n - 1) / 2
	if total != expectedTotal {
		t.Fatalf("expected sum %d, got %d", expectedTotal, total)
	}
}
