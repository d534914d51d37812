package recurrence

import (
	"sort"
	"time"

	"github.com/souzalinux78/gestao-organista/internal/calendar"
	"github.com/souzalinux78/gestao-organista/internal/scheduler"
)

// Occurrence is one concrete calendar day on which a service definition fires.
type Occurrence struct {
	Date      time.Time
	ServiceID string
	Weekday   time.Weekday
}

// Expander turns service definitions into concrete occurrences.
type Expander struct {
	location *time.Location
}

// NewExpander constructs an Expander that normalizes days to the provided location.
// If loc is nil, America/Sao_Paulo is used.
func NewExpander(loc *time.Location) *Expander {
	if loc == nil {
		loc = calendar.DefaultLocation()
	}
	return &Expander{location: loc}
}

// Location returns the zone days are normalized to.
func (e *Expander) Location() *time.Location {
	if e == nil || e.location == nil {
		return calendar.DefaultLocation()
	}
	return e.location
}

// Expand produces the occurrences of every active definition between start
// and end, both inclusive.
//
// The expander enforces the following semantics:
//   - Days are civil days in the expander's location.
//   - Weekly definitions fire on each matching weekday.
//   - Monthly definitions fire only on the nth matching weekday of the month;
//     months without that ordinal produce nothing.
//   - Output is ordered by date, then by definition ID. An inverted range
//     yields an empty result.
func (e *Expander) Expand(defs []scheduler.ServiceDefinition, start, end time.Time) []Occurrence {
	loc := e.Location()
	first := calendar.Day(start, loc)
	last := calendar.Day(end, loc)
	if last.Before(first) {
		return nil
	}

	byWeekday := make(map[time.Weekday][]scheduler.ServiceDefinition, 7)
	for _, def := range defs {
		if !def.Active {
			continue
		}
		byWeekday[def.Weekday] = append(byWeekday[def.Weekday], def)
	}
	if len(byWeekday) == 0 {
		return nil
	}
	for weekday := range byWeekday {
		candidates := byWeekday[weekday]
		sort.SliceStable(candidates, func(i, j int) bool { return scheduler.CompareIDs(candidates[i].ID, candidates[j].ID) < 0 })
	}

	occurrences := make([]Occurrence, 0)
	for current := first; !current.After(last); current = current.AddDate(0, 0, 1) {
		weekday := current.Weekday()
		for _, def := range byWeekday[weekday] {
			if !firesOn(def, current) {
				continue
			}
			occurrences = append(occurrences, Occurrence{
				Date:      current,
				ServiceID: def.ID,
				Weekday:   weekday,
			})
		}
	}

	return occurrences
}

// ExpandDefinition expands a single definition. Inactive definitions yield
// no occurrences.
func (e *Expander) ExpandDefinition(def scheduler.ServiceDefinition, start, end time.Time) []Occurrence {
	return e.Expand([]scheduler.ServiceDefinition{def}, start, end)
}

func firesOn(def scheduler.ServiceDefinition, day time.Time) bool {
	switch def.Recurrence {
	case scheduler.RecurrenceWeekly:
		return true
	case scheduler.RecurrenceMonthly:
		return calendar.OrdinalInMonth(day) == def.MonthlyOrdinal
	default:
		return false
	}
}
