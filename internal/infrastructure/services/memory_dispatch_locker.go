package services

import (
	"context"
	"sync"
	"time"

	"github.com/takutakahashi/pushnotify/internal/usecases/ports/services"
)

// MemoryDispatchLocker implements DispatchLocker within a single process
type MemoryDispatchLocker struct {
	mu    sync.Mutex
	locks map[string]memoryLock
	seq   uint64
	now   func() time.Time
}

type memoryLock struct {
	token     uint64
	expiresAt time.Time
}

// NewMemoryDispatchLocker creates a new MemoryDispatchLocker
func NewMemoryDispatchLocker() *MemoryDispatchLocker {
	return &MemoryDispatchLocker{
		locks: make(map[string]memoryLock),
		now:   time.Now,
	}
}

// Acquire takes key for ttl or returns services.ErrLockHeld
func (l *MemoryDispatchLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (services.ReleaseFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if held, ok := l.locks[key]; ok && now.Before(held.expiresAt) {
		return nil, services.ErrLockHeld
	}

	l.seq++
	token := l.seq
	l.locks[key] = memoryLock{token: token, expiresAt: now.Add(ttl)}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			// An expired lock may have been taken over; only the holder releases it.
			if held, ok := l.locks[key]; ok && held.token == token {
				delete(l.locks, key)
			}
		})
	}, nil
}

var _ services.DispatchLocker = (*MemoryDispatchLocker)(nil)
