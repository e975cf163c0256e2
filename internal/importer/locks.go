package importer

import "sync"

// accountLocks serializes imports per bank account. Locks are created on
// first use and never dropped; the account population is small and stable.
type accountLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// lock acquires the mutex for the account and returns its unlock func.
func (l *accountLocks) lock(bankAccountID int64) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = map[int64]*sync.Mutex{}
	}
	m, ok := l.locks[bankAccountID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[bankAccountID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
