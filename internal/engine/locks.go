package engine

import (
	"sync"

	"github.com/ghost-ng/Papertrail/internal/types"
)

// lockMap serializes engine operations per instance. Database CAS is the
// authority on concurrent modification; the lock only keeps one process's
// operations on an instance from interleaving and burning CAS retries.
type lockMap struct {
	mu    sync.Mutex
	locks map[types.ID]*instanceLock
}

type instanceLock struct {
	mu   sync.Mutex
	refs int
}

func newLockMap() *lockMap {
	return &lockMap{locks: make(map[types.ID]*instanceLock)}
}

// acquire locks the instance's mutex and returns the release function.
// Entries are reference counted so the map does not grow with retired
// instances.
func (lm *lockMap) acquire(id types.ID) func() {
	lm.mu.Lock()
	l, ok := lm.locks[id]
	if !ok {
		l = &instanceLock{}
		lm.locks[id] = l
	}
	l.refs++
	lm.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		lm.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(lm.locks, id)
		}
		lm.mu.Unlock()
	}
}
