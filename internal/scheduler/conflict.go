package scheduler

import (
	"sort"
	"time"
)

// ConflictType describes the type of conflict detected between assignments.
type ConflictType string

const (
	// ConflictTypeMusician indicates a musician is double-booked at the same slot.
	ConflictTypeMusician ConflictType = "musician"
)

// Conflict details a double booking that callers can present to users.
type Conflict struct {
	Type       ConflictType
	MusicianID string
	Date       time.Time
	Time       string
	Items      []Assignment
	// Excess is the number of bookings beyond the first one.
	Excess int
}

type conflictKey struct {
	musicianID string
	day        string
	time       string
}

type sharedKey struct {
	musicianID string
	day        string
	serviceID  string
}

// ConflictPolicy carries the church rules that decide what counts as a double
// booking.
type ConflictPolicy struct {
	// SameMusicianBothRoles lets one musician hold the prelude and the service
	// of the same occurrence; that pair is a single booking.
	SameMusicianBothRoles bool
}

// PolicyFor returns the conflict policy of church.
func PolicyFor(church Church) ConflictPolicy {
	return ConflictPolicy{SameMusicianBothRoles: church.SameMusicianBothRoles}
}

// DetectConflicts applies the strict policy, where every role is its own
// booking.
func DetectConflicts(assignments []Assignment) []Conflict {
	return ConflictPolicy{}.Detect(assignments)
}

// Detect groups assignments by musician, date and time and reports every
// group holding more than one booking. Results are ordered by date, time and
// musician.
func (p ConflictPolicy) Detect(assignments []Assignment) []Conflict {
	if len(assignments) < 2 {
		return nil
	}

	groups := make(map[conflictKey][]Assignment)
	shared := make(map[sharedKey]map[Role]bool)
	for _, item := range assignments {
		if item.MusicianID == "" {
			continue
		}
		day := item.Date.Format("2006-01-02")
		if p.SameMusicianBothRoles {
			sk := sharedKey{musicianID: item.MusicianID, day: day, serviceID: item.ServiceID}
			roles := shared[sk]
			if roles == nil {
				roles = make(map[Role]bool, 2)
				shared[sk] = roles
			}
			// The second role of the pair folds into the first booking.
			folded := !roles[item.Role] && len(roles) == 1
			roles[item.Role] = true
			if folded {
				continue
			}
		}
		key := conflictKey{
			musicianID: item.MusicianID,
			day:        day,
			time:       item.Time,
		}
		groups[key] = append(groups[key], item)
	}

	conflicts := make([]Conflict, 0)
	for key, items := range groups {
		if len(items) < 2 {
			continue
		}
		conflicts = append(conflicts, Conflict{
			Type:       ConflictTypeMusician,
			MusicianID: key.musicianID,
			Date:       items[0].Date,
			Time:       key.time,
			Items:      items,
			Excess:     len(items) - 1,
		})
	}

	if len(conflicts) == 0 {
		return nil
	}

	sort.Slice(conflicts, func(i, j int) bool {
		if !conflicts[i].Date.Equal(conflicts[j].Date) {
			return conflicts[i].Date.Before(conflicts[j].Date)
		}
		if conflicts[i].Time != conflicts[j].Time {
			return conflicts[i].Time < conflicts[j].Time
		}
		return conflicts[i].MusicianID < conflicts[j].MusicianID
	})

	return conflicts
}

// ConflictCount sums the excess bookings of every conflict.
func ConflictCount(conflicts []Conflict) int {
	total := 0
	for _, c := range conflicts {
		total += c.Excess
	}
	return total
}
