package app

import "sync"

// keyedMutex serializes work per applicant key. Entries are reference counted
// so the map does not grow with every applicant ever seen.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*lockHandle
}

type lockHandle struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*lockHandle)}
}

func (k *keyedMutex) Lock(key string) {
	k.mu.Lock()
	handle, ok := k.locks[key]
	if !ok {
		handle = &lockHandle{}
		k.locks[key] = handle
	}
	handle.refs++
	k.mu.Unlock()

	handle.mu.Lock()
}

func (k *keyedMutex) Unlock(key string) {
	k.mu.Lock()
	handle, ok := k.locks[key]
	if !ok {
		k.mu.Unlock()
		panic("unlock of unheld key " + key)
	}
	handle.refs--
	if handle.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()

	handle.mu.Unlock()
}
