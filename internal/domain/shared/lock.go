package shared

import (
	"context"
	"time"
)

// ErrLockHeld is returned when a named lock is owned by someone else
var ErrLockHeld = NewDomainError("LOCK_HELD", "lock is held by another run")

// Locker hands out named, expiring locks. Acquire returns a token that must
// be passed to Release; only the holder of the token can release the lock.
type Locker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (token string, err error)
	Release(ctx context.Context, name, token string) error
	Close() error
}
