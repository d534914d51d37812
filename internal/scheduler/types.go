package scheduler

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Role identifies the musical duty performed at a service occurrence.
type Role int

const (
	// RolePrelude is the half-hour duty played before the service starts.
	RolePrelude Role = iota + 1
	// RoleService is the main duty played during the service.
	RoleService
)

// String returns the canonical name of the role.
func (r Role) String() string {
	switch r {
	case RolePrelude:
		return "prelude"
	case RoleService:
		return "service"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	if r != RolePrelude && r != RoleService {
		return nil, fmt.Errorf("scheduler: invalid role %d", int(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseRole accepts canonical names as well as the legacy labels used by exports.
func ParseRole(value string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "prelude", "meia_hora", "meia hora", "meia-hora":
		return RolePrelude, nil
	case "service", "culto", "organista":
		return RoleService, nil
	}
	return 0, fmt.Errorf("scheduler: unknown role %q", value)
}

// ServiceType classifies a service definition.
type ServiceType int

const (
	// ServiceOfficial is a regular worship service.
	ServiceOfficial ServiceType = iota + 1
	// ServiceYouth is a youth meeting; only the service role is staffed.
	ServiceYouth
	// ServiceOther covers any other recurring meeting.
	ServiceOther
)

// String returns the canonical name of the service type.
func (t ServiceType) String() string {
	switch t {
	case ServiceOfficial:
		return "official"
	case ServiceYouth:
		return "youth"
	case ServiceOther:
		return "other"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t ServiceType) MarshalText() ([]byte, error) {
	if t < ServiceOfficial || t > ServiceOther {
		return nil, fmt.Errorf("scheduler: invalid service type %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ServiceType) UnmarshalText(text []byte) error {
	parsed, err := ParseServiceType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseServiceType accepts canonical names and legacy labels.
func ParseServiceType(value string) (ServiceType, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "official", "oficial", "culto_oficial":
		return ServiceOfficial, nil
	case "youth", "rjm", "jovens":
		return ServiceYouth, nil
	case "other", "outro":
		return ServiceOther, nil
	}
	return 0, fmt.Errorf("scheduler: unknown service type %q", value)
}

// Recurrence describes how often a service definition fires.
type Recurrence int

const (
	// RecurrenceWeekly fires on every matching weekday.
	RecurrenceWeekly Recurrence = iota + 1
	// RecurrenceMonthly fires on the nth matching weekday of each month.
	RecurrenceMonthly
)

// String returns the canonical name of the recurrence.
func (r Recurrence) String() string {
	switch r {
	case RecurrenceWeekly:
		return "weekly"
	case RecurrenceMonthly:
		return "monthly"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r Recurrence) MarshalText() ([]byte, error) {
	if r != RecurrenceWeekly && r != RecurrenceMonthly {
		return nil, fmt.Errorf("scheduler: invalid recurrence %d", int(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Recurrence) UnmarshalText(text []byte) error {
	parsed, err := ParseRecurrence(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseRecurrence accepts canonical names and legacy labels.
func ParseRecurrence(value string) (Recurrence, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "weekly", "semanal":
		return RecurrenceWeekly, nil
	case "monthly", "mensal":
		return RecurrenceMonthly, nil
	}
	return 0, fmt.Errorf("scheduler: unknown recurrence %q", value)
}

// Church is the owner of services, musicians and cycles.
type Church struct {
	ID                    string
	Name                  string
	SameMusicianBothRoles bool
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// ServiceDefinition describes a recurring service of a church.
type ServiceDefinition struct {
	ID             string
	ChurchID       string
	Name           string
	Weekday        time.Weekday
	TimeOfDay      string
	Type           ServiceType
	Recurrence     Recurrence
	MonthlyOrdinal int
	Active         bool
}

// Validate reports field level problems keyed by field name.
func (d ServiceDefinition) Validate() map[string]string {
	problems := make(map[string]string)
	if strings.TrimSpace(d.ChurchID) == "" {
		problems["church_id"] = "church is required"
	}
	if d.Weekday < time.Sunday || d.Weekday > time.Saturday {
		problems["weekday"] = "weekday must be between 0 and 6"
	}
	if _, err := time.Parse("15:04", d.TimeOfDay); err != nil {
		problems["time"] = "time must use HH:MM"
	}
	if d.Type < ServiceOfficial || d.Type > ServiceOther {
		problems["type"] = "type is invalid"
	}
	switch d.Recurrence {
	case RecurrenceWeekly:
		if d.MonthlyOrdinal != 0 {
			problems["monthly_ordinal"] = "monthly ordinal is only allowed for monthly services"
		}
	case RecurrenceMonthly:
		if d.MonthlyOrdinal < 1 || d.MonthlyOrdinal > 5 {
			problems["monthly_ordinal"] = "monthly ordinal must be between 1 and 5"
		}
	default:
		problems["recurrence"] = "recurrence is invalid"
	}
	if len(problems) == 0 {
		return nil
	}
	return problems
}

// DisplayName returns the name used in schedules, falling back to weekday and time.
func (d ServiceDefinition) DisplayName() string {
	if name := strings.TrimSpace(d.Name); name != "" {
		return name
	}
	return fmt.Sprintf("%s %s", d.Weekday, d.TimeOfDay)
}

// Musician is a volunteer organist.
type Musician struct {
	ID        string
	ChurchID  string
	Name      string
	Phone     string
	Certified bool
	Active    bool
	Order     int
}

// Assignment is a single generated rotation row.
type Assignment struct {
	Date          time.Time
	Time          string
	ServiceID     string
	ServiceName   string
	ServiceType   ServiceType
	Role          Role
	MusicianID    string
	MusicianName  string
	MusicianPhone string
	CycleNumber   int
}

// ScheduleStatus tracks the lifecycle of a saved schedule.
type ScheduleStatus string

const (
	// ScheduleDraft marks a saved schedule that has not been published yet.
	ScheduleDraft ScheduleStatus = "draft"
	// SchedulePublished marks a schedule that was shared with musicians.
	SchedulePublished ScheduleStatus = "published"
)

// Valid reports whether the status is known.
func (s ScheduleStatus) Valid() bool {
	return s == ScheduleDraft || s == SchedulePublished
}

// Schedule is a named, dated snapshot of assignments ("escala").
type Schedule struct {
	ID            string
	ChurchID      string
	ReferenceName string
	StartDate     time.Time
	EndDate       time.Time
	Status        ScheduleStatus
	Items         []Assignment
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CycleNumbers maps each service to its cycle number. Services are numbered
// 1..N by ascending ID (see CompareIDs) so inactive services keep their slot.
func CycleNumbers(services []ServiceDefinition) map[string]int {
	ids := make([]string, 0, len(services))
	seen := make(map[string]struct{}, len(services))
	for _, svc := range services {
		if _, ok := seen[svc.ID]; ok {
			continue
		}
		seen[svc.ID] = struct{}{}
		ids = append(ids, svc.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return CompareIDs(ids[i], ids[j]) < 0 })

	numbers := make(map[string]int, len(ids))
	for i, id := range ids {
		numbers[id] = i + 1
	}
	return numbers
}

// SortAssignments orders assignments chronologically, then prelude before service.
func SortAssignments(items []Assignment) {
	sort.SliceStable(items, func(i, j int) bool {
		return lessAssignment(items[i], items[j])
	})
}

func lessAssignment(a, b Assignment) bool {
	if !a.Date.Equal(b.Date) {
		return a.Date.Before(b.Date)
	}
	if a.Time != b.Time {
		return a.Time < b.Time
	}
	if a.ServiceID != b.ServiceID {
		return CompareIDs(a.ServiceID, b.ServiceID) < 0
	}
	return a.Role < b.Role
}
