package rotation

import (
	"time"

	"github.com/souzalinux78/gestao-organista/internal/scheduler"
)

// ResumeCursor derives the cursor that continues a rotation after the items
// dated strictly before the given day. For every cycle, the last drawn musician
// of its latest occurrence determines the next position. Cycles without prior
// items, or whose last musician left the cycle, start at position 0.
func ResumeCursor(items []scheduler.Assignment, cycles map[string]Cycle, policy Policy, before time.Time) Cursor {
	type latest struct {
		date  time.Time
		time  string
		items []scheduler.Assignment
	}
	last := make(map[string]*latest)
	for _, item := range items {
		if !item.Date.Before(before) || item.MusicianID == "" {
			continue
		}
		cur, ok := last[item.ServiceID]
		switch {
		case !ok || item.Date.After(cur.date) || (item.Date.Equal(cur.date) && item.Time > cur.time):
			last[item.ServiceID] = &latest{date: item.Date, time: item.Time, items: []scheduler.Assignment{item}}
		case item.Date.Equal(cur.date) && item.Time == cur.time:
			cur.items = append(cur.items, item)
		}
	}

	cursor := Cursor{}
	for serviceID, cycle := range cycles {
		if len(cycle.Members) == 0 {
			continue
		}
		entry, ok := last[serviceID]
		if !ok {
			continue
		}
		drawn := lastDrawn(entry.items, policy)
		idx := cycle.IndexOf(drawn.MusicianID)
		if idx < 0 {
			cursor = cursor.With(cycle.Number, 0)
			continue
		}
		cursor = cursor.With(cycle.Number, mod(idx+1, len(cycle.Members)))
	}
	return cursor
}

// lastDrawn returns the item whose draw left the cursor where it is.
func lastDrawn(items []scheduler.Assignment, policy Policy) scheduler.Assignment {
	want := scheduler.RolePrelude
	if policy.SameMusicianBothRoles || policy.DrawOrder == PreludeFirst {
		want = scheduler.RoleService
	}
	for _, item := range items {
		if item.Role == want {
			return item
		}
	}
	return items[len(items)-1]
}
