// Package coverage measures how well a period's expected slots are staffed.
package coverage

import (
	"math"
	"sort"
	"time"

	"github.com/souzalinux78/gestao-organista/internal/calendar"
	"github.com/souzalinux78/gestao-organista/internal/normalize"
	"github.com/souzalinux78/gestao-organista/internal/recurrence"
	"github.com/souzalinux78/gestao-organista/internal/scheduler"
)

// Slot identifies one role to staff at one service occurrence.
type Slot struct {
	Date      time.Time      `json:"date"`
	ServiceID string         `json:"service_id"`
	Role      scheduler.Role `json:"role"`
}

type slotKey struct {
	date      string
	serviceID string
	role      scheduler.Role
}

func keyOf(date time.Time, serviceID string, role scheduler.Role) slotKey {
	return slotKey{date: calendar.FormatDate(date), serviceID: serviceID, role: role}
}

// TypeDistribution counts assignments per bucket. Prelude items have their own
// bucket; service items are split between youth meetings and everything else.
type TypeDistribution struct {
	Service int `json:"service"`
	Prelude int `json:"prelude"`
	Youth   int `json:"youth"`
}

// Snapshot is the coverage aggregate of a period.
type Snapshot struct {
	PeriodStart       time.Time            `json:"period_start"`
	PeriodEnd         time.Time            `json:"period_end"`
	ExpectedSlotCount int                  `json:"expected_slot_count"`
	CoveredSlotCount  int                  `json:"covered_slot_count"`
	CoveragePercent   int                  `json:"coverage_percent"`
	TypeDistribution  TypeDistribution     `json:"type_distribution"`
	ConflictCount     int                  `json:"conflict_count"`
	MissingPhoneCount int                  `json:"missing_phone_count"`
	Missing           []Slot               `json:"missing,omitempty"`
	Conflicts         []scheduler.Conflict `json:"-"`
}

// Input is the data Analyze works on.
type Input struct {
	Assignments []scheduler.Assignment
	Services    []scheduler.ServiceDefinition
	PeriodStart time.Time
	PeriodEnd   time.Time
	// SameMusicianBothRoles is the church policy; under it a musician holding
	// both roles of one occurrence is not a double booking.
	SameMusicianBothRoles bool
	// Now marks the boundary for the missing phone count. Items dated on or
	// after its day are considered upcoming.
	Now time.Time
}

// Analyzer computes coverage snapshots.
type Analyzer struct {
	expander *recurrence.Expander
}

// NewAnalyzer constructs an Analyzer that expands services with expander. A
// nil expander uses the default location.
func NewAnalyzer(expander *recurrence.Expander) *Analyzer {
	if expander == nil {
		expander = recurrence.NewExpander(nil)
	}
	return &Analyzer{expander: expander}
}

// Analyze is total: degenerate input produces a zero snapshot, never an error.
func (a *Analyzer) Analyze(in Input) Snapshot {
	loc := a.expander.Location()
	snapshot := Snapshot{
		PeriodStart: calendar.Day(in.PeriodStart, loc),
		PeriodEnd:   calendar.Day(in.PeriodEnd, loc),
	}

	types := make(map[string]scheduler.ServiceType, len(in.Services))
	for _, svc := range in.Services {
		types[svc.ID] = svc.Type
	}

	expected := make(map[slotKey]Slot)
	order := make([]slotKey, 0)
	for _, occ := range a.expander.Expand(in.Services, in.PeriodStart, in.PeriodEnd) {
		roles := []scheduler.Role{scheduler.RolePrelude, scheduler.RoleService}
		if types[occ.ServiceID] == scheduler.ServiceYouth {
			roles = roles[1:]
		}
		for _, role := range roles {
			key := keyOf(occ.Date, occ.ServiceID, role)
			if _, ok := expected[key]; ok {
				continue
			}
			expected[key] = Slot{Date: occ.Date, ServiceID: occ.ServiceID, Role: role}
			order = append(order, key)
		}
	}

	actual := make(map[slotKey]struct{}, len(in.Assignments))
	today := calendar.FormatDate(calendar.Day(in.Now, loc))
	for _, item := range in.Assignments {
		if item.MusicianID != "" {
			actual[keyOf(item.Date, item.ServiceID, item.Role)] = struct{}{}
		}

		switch {
		case item.Role == scheduler.RolePrelude:
			snapshot.TypeDistribution.Prelude++
		case item.ServiceType == scheduler.ServiceYouth || types[item.ServiceID] == scheduler.ServiceYouth:
			snapshot.TypeDistribution.Youth++
		default:
			snapshot.TypeDistribution.Service++
		}

		if !in.Now.IsZero() && calendar.FormatDate(item.Date) >= today && !normalize.HasValidPhone(item.MusicianPhone) {
			snapshot.MissingPhoneCount++
		}
	}

	for _, key := range order {
		if _, ok := actual[key]; ok {
			snapshot.CoveredSlotCount++
			continue
		}
		snapshot.Missing = append(snapshot.Missing, expected[key])
	}
	snapshot.ExpectedSlotCount = len(expected)
	snapshot.CoveragePercent = Percent(snapshot.CoveredSlotCount, snapshot.ExpectedSlotCount)

	policy := scheduler.ConflictPolicy{SameMusicianBothRoles: in.SameMusicianBothRoles}
	snapshot.Conflicts = policy.Detect(in.Assignments)
	snapshot.ConflictCount = scheduler.ConflictCount(snapshot.Conflicts)

	sort.SliceStable(snapshot.Missing, func(i, j int) bool {
		a, b := snapshot.Missing[i], snapshot.Missing[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.ServiceID != b.ServiceID {
			return scheduler.CompareIDs(a.ServiceID, b.ServiceID) < 0
		}
		return a.Role < b.Role
	})
	return snapshot
}

// Percent returns round(covered/expected*100), or 0 when nothing is expected.
// Rounding never reaches 100 while a slot is uncovered, nor 0 while one is
// covered.
func Percent(covered, expected int) int {
	if expected <= 0 {
		return 0
	}
	percent := int(math.Round(float64(covered) / float64(expected) * 100))
	switch {
	case covered < expected && percent > 99:
		return 99
	case covered > 0 && percent < 1:
		return 1
	}
	return percent
}
