package workspace

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestNameLocksSerializeSameName(t *testing.T) {
	locks := newNameLocks()

	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.lock("ws1")
			n := inside.Add(1)
			for {
				m := maxInside.Load()
				if n <= m || maxInside.CompareAndSwap(m, n) {
					break
				}
			}
			inside.Add(-1)
			unlock()
		}()
	}
	wg.Wait()

	if maxInside.Load() != 1 {
		t.Errorf("%d goroutines held the same name at once", maxInside.Load())
	}
	if locks.size() != 0 {
		t.Errorf("%d lock entries left", locks.size())
	}
}

func TestNameLocksIndependentNames(t *testing.T) {
	locks := newNameLocks()
	unlockA := locks.lock("a")
	done := make(chan struct{})
	go func() {
		unlockB := locks.lock("b")
		unlockB()
		close(done)
	}()
	<-done
	unlockA()
}
