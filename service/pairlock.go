// file: service/pairlock.go

package service

import "sync"

// pairLocker serializes transfers that touch the same unordered pair of
// accounts. The key orders the two ids lexicographically, so concurrent
// A->B and B->A transfers contend on the same entry and a circular wait
// cannot form. Transfers between disjoint pairs proceed in parallel.
type pairLocker struct {
	mu    sync.Mutex
	locks map[string]*pairLock
}

type pairLock struct {
	mu   sync.Mutex
	refs int
}

func newPairLocker() *pairLocker {
	return &pairLocker{locks: make(map[string]*pairLock)}
}

func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}

// Lock acquires mutual exclusion over the unordered account pair and
// returns the matching release func. Callers must defer the release so it
// runs on every exit path. Entries are reference counted and removed once
// the last holder releases, so the table does not grow with the number of
// account pairs ever seen.
func (l *pairLocker) Lock(idA, idB string) (release func()) {
	key := pairKey(idA, idB)

	l.mu.Lock()
	entry, ok := l.locks[key]
	if !ok {
		entry = &pairLock{}
		l.locks[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}
