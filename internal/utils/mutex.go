package utils

import "sync"

// KeyedMutex serialises work per key, e.g. per output file, while letting
// different keys proceed in parallel.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *KeyedMutex) ExecuteWithMutex(key string, fn func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	lock, ok := k.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		k.locks[key] = lock
	}
	k.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()
	fn()
}
