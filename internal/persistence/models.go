package persistence

import "time"

// ScheduleFilter narrows schedule queries. Nil bounds are open.
type ScheduleFilter struct {
	ChurchID string
	// EndsOnOrAfter keeps schedules whose end date is on or after the day.
	EndsOnOrAfter *time.Time
	// StartsOnOrBefore keeps schedules whose start date is on or before the day.
	StartsOnOrBefore *time.Time
}

// ItemFilter narrows assignment queries across saved schedules.
type ItemFilter struct {
	ChurchID string
	From     *time.Time
	To       *time.Time
}
