package services

import (
	"context"
	"errors"
	"time"
)

// ErrLockHeld is returned when another dispatch for the same key is in flight
var ErrLockHeld = errors.New("dispatch already in progress")

// ReleaseFunc gives a lock back. It is safe to call more than once.
type ReleaseFunc func()

// DispatchLocker guarantees at most one in-flight dispatch per notification.
// A lock expires after ttl even if it is never released.
type DispatchLocker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (ReleaseFunc, error)
}
