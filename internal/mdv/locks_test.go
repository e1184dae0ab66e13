package mdv

import (
	"sync"
	"testing"
)

func TestPathLocks(t *testing.T) {
	t.Run("serializes holders of the same key", func(t *testing.T) {
		locks := newPathLocks()
		var wg sync.WaitGroup
		counter := 0

		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				unlock := locks.lock("notes/a.md")
				v := counter
				counter = v + 1
				unlock()
			}()
		}
		wg.Wait()

		if counter != 50 {
			t.Errorf("counter = %d, want 50", counter)
		}
	})

	t.Run("different keys do not block each other", func(t *testing.T) {
		locks := newPathLocks()
		unlockA := locks.lock("a.md")
		defer unlockA()

		done := make(chan struct{})
		go func() {
			unlock := locks.lock("b.md")
			unlock()
			close(done)
		}()
		<-done
	})

	t.Run("entries are released", func(t *testing.T) {
		locks := newPathLocks()
		unlock := locks.lock("a.md")
		unlock()

		if n := len(locks.locks); n != 0 {
			t.Errorf("len(locks) = %d after unlock, want 0", n)
		}
	})
}
