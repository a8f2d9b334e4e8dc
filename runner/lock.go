package runner

import (
	"context"
	"sync"

	"github.com/jonwraymond/evalcache/fingerprint"
)

// keyedLocks serializes runs per identity. Entries are dropped once no
// goroutine holds or waits for them.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[fingerprint.Identity]*keyLock
}

type keyLock struct {
	sem  chan struct{}
	refs int
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[fingerprint.Identity]*keyLock)}
}

// lock blocks until id is free or ctx is done.
func (k *keyedLocks) lock(ctx context.Context, id fingerprint.Identity) (func(), error) {
	k.mu.Lock()
	l, ok := k.locks[id]
	if !ok {
		l = &keyLock{sem: make(chan struct{}, 1)}
		k.locks[id] = l
	}
	l.refs++
	k.mu.Unlock()

	select {
	case l.sem <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-l.sem
				k.release(id, l)
			})
		}, nil
	case <-ctx.Done():
		k.release(id, l)
		return nil, ctx.Err()
	}
}

func (k *keyedLocks) release(id fingerprint.Identity, l *keyLock) {
	k.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(k.locks, id)
	}
	k.mu.Unlock()
}

// len reports the number of tracked identities.
func (k *keyedLocks) len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
