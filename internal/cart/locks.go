package cart

import (
	"sort"
	"sync"
)

// ownerLocks serializes mutations per owner key. Each owner gets its own
// refcounted mutex so distinct owners never contend; entries are dropped
// as soon as the last holder releases, keeping the arena bounded by the
// number of in-flight owners.
type ownerLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newOwnerLocks() *ownerLocks {
	return &ownerLocks{
		entries: make(map[string]*lockEntry),
	}
}

func (l *ownerLocks) lock(ownerKey string) {
	l.mu.Lock()
	entry, exists := l.entries[ownerKey]
	if !exists {
		entry = &lockEntry{}
		l.entries[ownerKey] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
}

func (l *ownerLocks) unlock(ownerKey string) {
	l.mu.Lock()
	entry := l.entries[ownerKey]
	entry.refs--
	if entry.refs == 0 {
		delete(l.entries, ownerKey)
	}
	l.mu.Unlock()

	entry.mu.Unlock()
}

// lockPair acquires two owner locks in a deterministic order to avoid
// deadlock between concurrent merges. Equal keys collapse to a single
// acquisition; taking the same owner mutex twice would self-deadlock.
func (l *ownerLocks) lockPair(a, b string) {
	if a == b {
		l.lock(a)
		return
	}
	keys := []string{a, b}
	sort.Strings(keys)
	for _, k := range keys {
		l.lock(k)
	}
}

func (l *ownerLocks) unlockPair(a, b string) {
	if a == b {
		l.unlock(a)
		return
	}
	keys := []string{a, b}
	sort.Strings(keys)
	for i := len(keys) - 1; i >= 0; i-- {
		l.unlock(keys[i])
	}
}
