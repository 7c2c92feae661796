package service

import (
	"sync"
)

// accountLocks serializes all state mutation for a single account: at most
// one in-flight evaluation or ledger apply per account, so each evaluation
// observes one consistent snapshot and applies its mutation atomically.
// Locks are created on first use and kept for the account's lifetime; a few
// thousand mutexes are cheaper than the bookkeeping to reap them.
type accountLocks struct {
	mu sync.Mutex
	m  map[uint64]*sync.Mutex
}

func newAccountLocks() *accountLocks {
	return &accountLocks{m: map[uint64]*sync.Mutex{}}
}

// Lock acquires the per-account mutex and returns its unlock func.
func (l *accountLocks) Lock(accountID uint64) func() {
	l.mu.Lock()
	am, ok := l.m[accountID]
	if !ok {
		am = &sync.Mutex{}
		l.m[accountID] = am
	}
	l.mu.Unlock()
	am.Lock()
	return am.Unlock
}
