package reconcile

import "sync"

// emailLocks serializes the duplicate-check-then-write section per email.
// Entries are reference counted and removed once the last holder unlocks,
// so the map does not grow with the student population.
type emailLocks struct {
	mu    sync.Mutex
	locks map[string]*emailLock
}

type emailLock struct {
	mu   sync.Mutex
	refs int
}

func newEmailLocks() *emailLocks {
	return &emailLocks{locks: make(map[string]*emailLock)}
}

func (e *emailLocks) lock(email string) func() {
	e.mu.Lock()
	l, ok := e.locks[email]
	if !ok {
		l = &emailLock{}
		e.locks[email] = l
	}
	l.refs++
	e.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		e.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(e.locks, email)
		}
		e.mu.Unlock()
	}
}
