package session

import (
	"context"
	"sync"
)

// keyLock serializes work per key. Different keys never block each other.
type keyLock struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func newKeyLock() *keyLock {
	return &keyLock{slots: map[string]chan struct{}{}}
}

func (k *keyLock) acquire(ctx context.Context, key string) (release func(), err error) {
	k.mu.Lock()
	slot, ok := k.slots[key]
	if !ok {
		slot = make(chan struct{}, 1)
		k.slots[key] = slot
	}
	k.mu.Unlock()

	select {
	case slot <- struct{}{}:
		return func() { <-slot }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
