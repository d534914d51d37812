package testfixtures

import (
	"sync"
	"time"

	"github.com/souzalinux78/gestao-organista/internal/calendar"
)

// Clock is a settable time source. Services read it through NowFunc so a
// test can move "today" across months and watch the dashboard default period
// and preview start follow.
type Clock struct {
	mu      sync.Mutex
	current time.Time
}

// NewClock starts at start, or at ReferenceTime when start is zero.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{current: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// NowFunc returns Now, or time.Now for a nil clock.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Today is the civil day of the current instant in the fixture location.
func (c *Clock) Today() time.Time {
	return calendar.Day(c.Now(), Location())
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}

// AdvanceDays moves the clock by whole civil days, keeping the wall clock.
func (c *Clock) AdvanceDays(days int) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.AddDate(0, 0, days)
	return c.current
}

// AdvanceMonths jumps to the same wall clock on the first day of the month
// months away, so the result never overflows into a following month.
func (c *Clock) AdvanceMonths(months int) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur := c.current
	c.current = time.Date(cur.Year(), cur.Month()+time.Month(months), 1,
		cur.Hour(), cur.Minute(), cur.Second(), cur.Nanosecond(), cur.Location())
	return c.current
}
