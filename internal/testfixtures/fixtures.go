package testfixtures

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/souzalinux78/gestao-organista/internal/persistence"
	"github.com/souzalinux78/gestao-organista/internal/scheduler"
)

var (
	churchCounter   uint64
	serviceCounter  uint64
	musicianCounter uint64
)

var location = time.FixedZone("BRT", -3*60*60)

// referenceTime is noon of the first Sunday of March 2026 in Brasília.
var referenceTime = time.Date(2026, time.March, 1, 12, 0, 0, 0, location)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// Location is the zone fixtures are dated in. It is a fixed UTC-3 offset so
// tests do not depend on the tz database.
func Location() *time.Location {
	return location
}

// Day returns midnight of the given civil date in Location.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, location)
}

// ChurchOption configures a generated church.
type ChurchOption func(*scheduler.Church)

// NewChurch returns a deterministic church with optional overrides.
func NewChurch(opts ...ChurchOption) scheduler.Church {
	idx := atomic.AddUint64(&churchCounter, 1)
	church := scheduler.Church{
		ID:        fmt.Sprintf("church-%03d", idx),
		Name:      fmt.Sprintf("Igreja %03d", idx),
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&church)
	}
	return church
}

func WithChurchID(id string) ChurchOption {
	return func(c *scheduler.Church) { c.ID = id }
}

func WithChurchName(name string) ChurchOption {
	return func(c *scheduler.Church) { c.Name = name }
}

// WithSameMusicianBothRoles makes one musician play prelude and service.
func WithSameMusicianBothRoles() ChurchOption {
	return func(c *scheduler.Church) { c.SameMusicianBothRoles = true }
}

// ServiceOption configures a generated service definition.
type ServiceOption func(*scheduler.ServiceDefinition)

// NewService returns an active weekly Sunday 10:00 official service.
func NewService(churchID string, opts ...ServiceOption) scheduler.ServiceDefinition {
	idx := atomic.AddUint64(&serviceCounter, 1)
	service := scheduler.ServiceDefinition{
		ID:         fmt.Sprintf("service-%03d", idx),
		ChurchID:   churchID,
		Name:       "Culto Oficial",
		Weekday:    time.Sunday,
		TimeOfDay:  "10:00",
		Type:       scheduler.ServiceOfficial,
		Recurrence: scheduler.RecurrenceWeekly,
		Active:     true,
	}
	for _, opt := range opts {
		opt(&service)
	}
	return service
}

func WithServiceID(id string) ServiceOption {
	return func(s *scheduler.ServiceDefinition) { s.ID = id }
}

func WithServiceName(name string) ServiceOption {
	return func(s *scheduler.ServiceDefinition) { s.Name = name }
}

// WithSlot sets weekday and HH:MM time.
func WithSlot(weekday time.Weekday, clock string) ServiceOption {
	return func(s *scheduler.ServiceDefinition) {
		s.Weekday = weekday
		s.TimeOfDay = clock
	}
}

// AsYouth turns the service into a youth meeting, which has no prelude.
func AsYouth() ServiceOption {
	return func(s *scheduler.ServiceDefinition) { s.Type = scheduler.ServiceYouth }
}

// Monthly fires the service on the nth weekday of each month.
func Monthly(ordinal int) ServiceOption {
	return func(s *scheduler.ServiceDefinition) {
		s.Recurrence = scheduler.RecurrenceMonthly
		s.MonthlyOrdinal = ordinal
	}
}

func InactiveService() ServiceOption {
	return func(s *scheduler.ServiceDefinition) { s.Active = false }
}

// MusicianOption configures a generated musician.
type MusicianOption func(*scheduler.Musician)

// NewMusician returns an active, certified musician with a valid phone.
func NewMusician(churchID string, opts ...MusicianOption) scheduler.Musician {
	idx := atomic.AddUint64(&musicianCounter, 1)
	musician := scheduler.Musician{
		ID:        fmt.Sprintf("musician-%03d", idx),
		ChurchID:  churchID,
		Name:      fmt.Sprintf("Organista %03d", idx),
		Phone:     fmt.Sprintf("(11) 9%04d-0000", idx%10000),
		Certified: true,
		Active:    true,
		Order:     int(idx),
	}
	for _, opt := range opts {
		opt(&musician)
	}
	return musician
}

func WithMusicianID(id string) MusicianOption {
	return func(m *scheduler.Musician) { m.ID = id }
}

func WithMusicianName(name string) MusicianOption {
	return func(m *scheduler.Musician) { m.Name = name }
}

func WithPhone(phone string) MusicianOption {
	return func(m *scheduler.Musician) { m.Phone = phone }
}

// Uncertified marks the musician as not yet allowed to play services.
func Uncertified() MusicianOption {
	return func(m *scheduler.Musician) { m.Certified = false }
}

func InactiveMusician() MusicianOption {
	return func(m *scheduler.Musician) { m.Active = false }
}

// Scenario is a complete church setup ready to be seeded.
type Scenario struct {
	Church    scheduler.Church
	Services  []scheduler.ServiceDefinition
	Musicians []scheduler.Musician
	Cycles    map[int][]string
}

// NewScenario returns church "c1" with a weekly Sunday 10:00 official
// service "svc-sun" on cycle 1 = [A, B, C] and a weekly Wednesday 19:00
// youth meeting "svc-wed" on cycle 2 = [D, E].
func NewScenario(opts ...ChurchOption) Scenario {
	church := NewChurch(append([]ChurchOption{WithChurchID("c1"), WithChurchName("Central")}, opts...)...)
	scenario := Scenario{
		Church: church,
		Services: []scheduler.ServiceDefinition{
			NewService(church.ID, WithServiceID("svc-sun"), WithServiceName("Culto Domingo")),
			NewService(church.ID, WithServiceID("svc-wed"), WithServiceName("RJM"), WithSlot(time.Wednesday, "19:00"), AsYouth()),
		},
		Cycles: map[int][]string{1: {"A", "B", "C"}, 2: {"D", "E"}},
	}
	for i, id := range []string{"A", "B", "C", "D", "E"} {
		scenario.Musicians = append(scenario.Musicians, NewMusician(church.ID,
			WithMusicianID(id),
			WithMusicianName("Organista "+id),
			WithPhone(fmt.Sprintf("(11) 9%d000-0000", i)),
			func(m *scheduler.Musician) { m.Order = i },
		))
	}
	return scenario
}

// Repositories is the subset of persistence a scenario is written to.
type Repositories struct {
	Churches  persistence.ChurchRepository
	Services  persistence.ServiceRepository
	Musicians persistence.MusicianRepository
	Cycles    persistence.CycleRepository
}

// Seed writes the scenario through repos.
func (s Scenario) Seed(ctx context.Context, repos Repositories) error {
	if err := repos.Churches.CreateChurch(ctx, s.Church); err != nil {
		return fmt.Errorf("seed church %s: %w", s.Church.ID, err)
	}
	for _, service := range s.Services {
		if err := repos.Services.CreateService(ctx, service); err != nil {
			return fmt.Errorf("seed service %s: %w", service.ID, err)
		}
	}
	for _, musician := range s.Musicians {
		if err := repos.Musicians.CreateMusician(ctx, musician); err != nil {
			return fmt.Errorf("seed musician %s: %w", musician.ID, err)
		}
	}
	for number, ids := range s.Cycles {
		if err := repos.Cycles.ReplaceCycle(ctx, s.Church.ID, number, ids); err != nil {
			return fmt.Errorf("seed cycle %d: %w", number, err)
		}
	}
	return nil
}
