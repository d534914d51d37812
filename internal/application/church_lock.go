package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/souzalinux78/gestao-organista/internal/lock"
)

// withChurchLock runs fn while holding the advisory lock of churchID. A nil
// locker runs fn unguarded.
func withChurchLock(ctx context.Context, locker lock.Locker, logger *slog.Logger, churchID string, fn func() error) error {
	if locker == nil {
		return fn()
	}
	lease, err := locker.TryAcquire(ctx, lock.ChurchKey(churchID))
	if err != nil {
		if errors.Is(err, lock.ErrLockHeld) {
			return ErrConcurrencyConflict
		}
		return err
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			logger.WarnContext(ctx, "failed to release church lock", "church_id", churchID, "error", err)
		}
	}()
	return fn()
}

// CacheInvalidator drops derived data of a church after its schedules change.
type CacheInvalidator interface {
	Invalidate(churchID string)
}

func invalidate(cache CacheInvalidator, churchID string) {
	if cache != nil {
		cache.Invalidate(churchID)
	}
}
