// file: service/pairlock_test.go

package service

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPairKeyIsOrderIndependent(t *testing.T) {
	assert.Equal(t, pairKey("a", "b"), pairKey("b", "a"))
	assert.Equal(t, "a|b", pairKey("b", "a"))
}

func TestPairLocker_MutualExclusion(t *testing.T) {
	locker := newPairLocker()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			// Half the goroutines name the pair in the opposite order.
			a, b := "acc-1", "acc-2"
			if n%2 == 1 {
				a, b = b, a
			}
			release := locker.Lock(a, b)
			defer release()
			counter++
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
}

func TestPairLocker_DisjointPairsDoNotBlock(t *testing.T) {
	locker := newPairLocker()

	release := locker.Lock("acc-1", "acc-2")
	defer release()

	acquired := make(chan struct{})
	go func() {
		r := locker.Lock("acc-3", "acc-4")
		close(acquired)
		r()
	}()

	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("disjoint pair lock should not block")
	}
}

func TestPairLocker_EntriesAreReclaimed(t *testing.T) {
	locker := newPairLocker()

	release := locker.Lock("acc-1", "acc-2")
	release()

	locker.mu.Lock()
	defer locker.mu.Unlock()
	assert.Empty(t, locker.locks, "released entries should be removed from the table")
}
