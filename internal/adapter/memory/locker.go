package memory

import (
	"context"
	"sync"

	portlocker "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/port/locker"
)

var _ portlocker.AdvisoryLocker = (*Locker)(nil)

// Locker serialises critical sections per key within one process. Waiting for a
// key honours ctx cancellation.
type Locker struct {
	mu    sync.Mutex
	locks map[int64]*keyLock
}

type keyLock struct {
	ch      chan struct{}
	waiters int
}

func NewLocker() *Locker {
	return &Locker{locks: make(map[int64]*keyLock)}
}

func (l *Locker) WithLock(ctx context.Context, key int64, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.waiters++
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		kl.waiters--
		if kl.waiters == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}()

	select {
	case kl.ch <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-kl.ch }()

	return fn(ctx)
}
