package relay

import "sync"

// UserLocks serializes exchanges per user. Messages from the same user are
// processed one at a time in arrival order, while different users proceed
// concurrently.
//
// A global mutex protects the lock map; each user has their own mutex for
// the actual serialization. The global mutex is held only briefly to look
// up or create the per-user entry.
type UserLocks struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

// userLock tracks one user's mutex plus the number of goroutines holding
// or waiting on it, so idle entries can be removed.
type userLock struct {
	mu   sync.Mutex
	refs int
}

// NewUserLocks creates a ready-to-use UserLocks.
func NewUserLocks() *UserLocks {
	return &UserLocks{locks: make(map[string]*userLock)}
}

// Acquire gets or creates the per-user mutex and locks it. The caller
// must call Release with the same id when done.
func (l *UserLocks) Acquire(id string) {
	l.mu.Lock()
	lk, ok := l.locks[id]
	if !ok {
		lk = &userLock{}
		l.locks[id] = lk
	}
	lk.refs++
	l.mu.Unlock()

	// Lock outside the global mutex so other users are not blocked.
	lk.mu.Lock()
}

// Release unlocks the per-user mutex and drops the map entry once no
// goroutine holds or waits on it.
func (l *UserLocks) Release(id string) {
	l.mu.Lock()
	lk, ok := l.locks[id]
	if !ok {
		l.mu.Unlock()
		return
	}
	lk.refs--
	if lk.refs == 0 {
		delete(l.locks, id)
	}
	l.mu.Unlock()

	lk.mu.Unlock()
}

// Len reports how many users currently have a live lock entry.
func (l *UserLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
