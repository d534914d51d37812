package application

import (
	"strings"
	"sync"
	"time"

	"github.com/souzalinux78/gestao-organista/internal/calendar"
	"github.com/souzalinux78/gestao-organista/internal/coverage"
)

// snapshotCache stores recently computed coverage snapshots to avoid repeated
// analysis for identical dashboard queries while schedules remain unchanged.
type snapshotCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]snapshotCacheEntry
}

type snapshotCacheEntry struct {
	snapshot  coverage.Snapshot
	expiresAt time.Time
}

func newSnapshotCache(ttl time.Duration, maxEntries int, now func() time.Time) *snapshotCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 128
	}
	if now == nil {
		now = time.Now
	}
	return &snapshotCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]snapshotCacheEntry),
	}
}

func (c *snapshotCache) Get(key string) (coverage.Snapshot, bool) {
	if c == nil {
		return coverage.Snapshot{}, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return coverage.Snapshot{}, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return coverage.Snapshot{}, false
	}
	return cloneSnapshot(entry.snapshot), true
}

func (c *snapshotCache) Store(key string, snapshot coverage.Snapshot) {
	if c == nil {
		return
	}
	cloned := cloneSnapshot(snapshot)
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[key] = snapshotCacheEntry{snapshot: cloned, expiresAt: expiry}
}

// InvalidateChurch drops every entry of churchID.
func (c *snapshotCache) InvalidateChurch(churchID string) {
	if c == nil {
		return
	}
	prefix := churchID + "|"
	c.mu.Lock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()
}

func (c *snapshotCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *snapshotCache) evictOneLocked() {
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}

func cloneSnapshot(snapshot coverage.Snapshot) coverage.Snapshot {
	out := snapshot
	if snapshot.Missing != nil {
		out.Missing = append([]coverage.Slot(nil), snapshot.Missing...)
	}
	if snapshot.Conflicts != nil {
		out.Conflicts = append(out.Conflicts[:0:0], snapshot.Conflicts...)
	}
	return out
}

func snapshotCacheKey(churchID string, start, end, today time.Time) string {
	return strings.Join([]string{
		churchID,
		calendar.FormatDate(start),
		calendar.FormatDate(end),
		calendar.FormatDate(today),
	}, "|")
}
