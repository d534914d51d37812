// Package lock provides the per-church advisory lock that keeps saves and
// regenerations of the same church from running at the same time.
package lock

import (
	"context"
	"errors"
)

// ErrLockHeld is returned by TryAcquire when another operation owns the key.
var ErrLockHeld = errors.New("lock: already held")

// Lease is an acquired lock.
type Lease interface {
	Release(ctx context.Context) error
}

// Locker hands out non-blocking leases keyed by string.
type Locker interface {
	TryAcquire(ctx context.Context, key string) (Lease, error)
}

// ChurchKey returns the lock key guarding the schedules of churchID.
func ChurchKey(churchID string) string {
	return "church:" + churchID
}
