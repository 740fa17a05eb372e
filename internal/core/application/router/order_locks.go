package router

import (
	"sync"

	"relay/internal/core/domain/model/kernel"
)

// orderLocks serialises the accept-then-broadcast step per order, so the
// frames of one order leave in the order the cache accepted them. Entries are
// reference counted and removed once nobody holds or waits for them.
type orderLocks struct {
	mu    sync.Mutex
	locks map[kernel.EntityID]*orderLock
}

type orderLock struct {
	mu   sync.Mutex
	refs int
}

func newOrderLocks() *orderLocks {
	return &orderLocks{locks: make(map[kernel.EntityID]*orderLock)}
}

// lock blocks until id is free and returns the matching unlock.
func (l *orderLocks) lock(id kernel.EntityID) func() {
	l.mu.Lock()
	entry, ok := l.locks[id]
	if !ok {
		entry = &orderLock{}
		l.locks[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
