package persistence

import (
	"context"
	"time"

	"github.com/souzalinux78/gestao-organista/internal/scheduler"
)

// ChurchRepository exposes CRUD operations for churches.
type ChurchRepository interface {
	CreateChurch(ctx context.Context, church scheduler.Church) error
	UpdateChurch(ctx context.Context, church scheduler.Church) error
	GetChurch(ctx context.Context, id string) (scheduler.Church, error)
	ListChurches(ctx context.Context) ([]scheduler.Church, error)
}

// ServiceRepository stores the recurring service definitions of churches.
type ServiceRepository interface {
	CreateService(ctx context.Context, service scheduler.ServiceDefinition) error
	UpdateService(ctx context.Context, service scheduler.ServiceDefinition) error
	DeleteService(ctx context.Context, id string) error
	ListServices(ctx context.Context, churchID string) ([]scheduler.ServiceDefinition, error)
}

// MusicianRepository stores musicians.
type MusicianRepository interface {
	CreateMusician(ctx context.Context, musician scheduler.Musician) error
	UpdateMusician(ctx context.Context, musician scheduler.Musician) error
	GetMusician(ctx context.Context, id string) (scheduler.Musician, error)
	ListMusicians(ctx context.Context, churchID string) ([]scheduler.Musician, error)
}

// CycleRepository stores the persisted order of each cycle.
type CycleRepository interface {
	// ListCycle returns the musician IDs of a cycle ordered by position.
	ListCycle(ctx context.Context, churchID string, number int) ([]string, error)
	// ListCycles returns every cycle of a church keyed by cycle number.
	ListCycles(ctx context.Context, churchID string) (map[int][]string, error)
	// ReplaceCycle atomically replaces the items of a cycle.
	ReplaceCycle(ctx context.Context, churchID string, number int, musicianIDs []string) error
}

// ScheduleRepository stores saved schedules and their items.
type ScheduleRepository interface {
	CreateSchedule(ctx context.Context, schedule scheduler.Schedule) error
	// UpdateSchedule fully replaces the schedule header and items.
	UpdateSchedule(ctx context.Context, schedule scheduler.Schedule) error
	GetSchedule(ctx context.Context, id string) (scheduler.Schedule, error)
	// ListSchedules returns schedule headers without items, newest start first.
	ListSchedules(ctx context.Context, filter ScheduleFilter) ([]scheduler.Schedule, error)
	DeleteSchedule(ctx context.Context, id string) error
	// ListItems returns the items of every saved schedule matching filter in
	// chronological order.
	ListItems(ctx context.Context, filter ItemFilter) ([]scheduler.Assignment, error)
	// ReplaceItemsFrom deletes the items dated on or after from of each listed
	// schedule and inserts the replacements, all in one transaction.
	ReplaceItemsFrom(ctx context.Context, from time.Time, replacements map[string][]scheduler.Assignment) error
}
