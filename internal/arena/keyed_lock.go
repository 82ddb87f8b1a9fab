package arena

import (
	"context"
	"sync"
)

// keyedLock hands out one context aware mutex per arena id. Entries are never removed;
// the number of arenas a process sees is small.
type keyedLock struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func newKeyedLock() *keyedLock {
	return &keyedLock{locks: map[string]chan struct{}{}}
}

func (k *keyedLock) slot(key string) chan struct{} {
	k.mu.Lock()
	defer k.mu.Unlock()
	ch, ok := k.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		k.locks[key] = ch
	}
	return ch
}

// Lock blocks until the key is free or ctx is done. The returned func releases it.
func (k *keyedLock) Lock(ctx context.Context, key string) (func(), error) {
	ch := k.slot(key)
	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
