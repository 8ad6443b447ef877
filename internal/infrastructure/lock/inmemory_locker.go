package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sac/membership/internal/domain/shared"
)

type entry struct {
	token     string
	expiresAt time.Time
}

// InMemoryLocker implements shared.Locker inside one process
type InMemoryLocker struct {
	mu        sync.Mutex
	entries   map[string]entry
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryLocker creates a locker and starts the cleanup of expired locks
func NewInMemoryLocker() *InMemoryLocker {
	l := &InMemoryLocker{
		entries:  make(map[string]entry),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}

	l.wg.Add(1)
	go l.cleanupLoop()

	return l
}

// Acquire takes the lock unless an unexpired holder exists
func (l *InMemoryLocker) Acquire(_ context.Context, name string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e, ok := l.entries[name]; ok && l.now().Before(e.expiresAt) {
		return "", shared.ErrLockHeld
	}

	token := uuid.NewString()
	l.entries[name] = entry{token: token, expiresAt: l.now().Add(ttl)}
	return token, nil
}

// Release frees the lock held by token
func (l *InMemoryLocker) Release(_ context.Context, name, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[name]
	if !ok || e.token != token {
		return shared.ErrLockHeld
	}
	delete(l.entries, name)
	return nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (l *InMemoryLocker) Close() error {
	l.closeOnce.Do(func() {
		close(l.stopChan)
		l.wg.Wait()
	})
	return nil
}

func (l *InMemoryLocker) cleanupLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			return
		case <-ticker.C:
			l.cleanup()
		}
	}
}

func (l *InMemoryLocker) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for name, e := range l.entries {
		if now.After(e.expiresAt) {
			delete(l.entries, name)
		}
	}
}

// Size returns the number of tracked locks
func (l *InMemoryLocker) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

var _ shared.Locker = (*InMemoryLocker)(nil)
