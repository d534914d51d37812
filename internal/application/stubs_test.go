package application

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/souzalinux78/gestao-organista/internal/calendar"
	"github.com/souzalinux78/gestao-organista/internal/cycle"
	"github.com/souzalinux78/gestao-organista/internal/lock"
	"github.com/souzalinux78/gestao-organista/internal/persistence"
	"github.com/souzalinux78/gestao-organista/internal/recurrence"
	"github.com/souzalinux78/gestao-organista/internal/scheduler"
)

var testLocation = time.FixedZone("BRT", -3*60*60)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, testLocation)
}

// memoryRepo implements every repository contract in memory.
type memoryRepo struct {
	mu        sync.Mutex
	churches  map[string]scheduler.Church
	services  map[string]scheduler.ServiceDefinition
	musicians map[string]scheduler.Musician
	cycles    map[string]map[int][]string
	schedules map[string]scheduler.Schedule

	replaceCalls int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		churches:  make(map[string]scheduler.Church),
		services:  make(map[string]scheduler.ServiceDefinition),
		musicians: make(map[string]scheduler.Musician),
		cycles:    make(map[string]map[int][]string),
		schedules: make(map[string]scheduler.Schedule),
	}
}

func (r *memoryRepo) CreateChurch(_ context.Context, church scheduler.Church) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.churches[church.ID]; ok {
		return persistence.ErrDuplicate
	}
	r.churches[church.ID] = church
	return nil
}

func (r *memoryRepo) UpdateChurch(_ context.Context, church scheduler.Church) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.churches[church.ID]; !ok {
		return persistence.ErrNotFound
	}
	r.churches[church.ID] = church
	return nil
}

func (r *memoryRepo) GetChurch(_ context.Context, id string) (scheduler.Church, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	church, ok := r.churches[id]
	if !ok {
		return scheduler.Church{}, persistence.ErrNotFound
	}
	return church, nil
}

func (r *memoryRepo) ListChurches(context.Context) ([]scheduler.Church, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]scheduler.Church, 0, len(r.churches))
	for _, church := range r.churches {
		out = append(out, church)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryRepo) CreateService(_ context.Context, svc scheduler.ServiceDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[svc.ID] = svc
	return nil
}

func (r *memoryRepo) UpdateService(ctx context.Context, svc scheduler.ServiceDefinition) error {
	return r.CreateService(ctx, svc)
}

func (r *memoryRepo) DeleteService(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.services, id)
	return nil
}

func (r *memoryRepo) ListServices(_ context.Context, churchID string) ([]scheduler.ServiceDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []scheduler.ServiceDefinition
	for _, svc := range r.services {
		if svc.ChurchID == churchID {
			out = append(out, svc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryRepo) CreateMusician(_ context.Context, m scheduler.Musician) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.musicians[m.ID] = m
	return nil
}

func (r *memoryRepo) UpdateMusician(ctx context.Context, m scheduler.Musician) error {
	return r.CreateMusician(ctx, m)
}

func (r *memoryRepo) GetMusician(_ context.Context, id string) (scheduler.Musician, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.musicians[id]
	if !ok {
		return scheduler.Musician{}, persistence.ErrNotFound
	}
	return m, nil
}

func (r *memoryRepo) ListMusicians(_ context.Context, churchID string) ([]scheduler.Musician, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []scheduler.Musician
	for _, m := range r.musicians {
		if m.ChurchID == churchID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryRepo) ListCycle(_ context.Context, churchID string, number int) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.cycles[churchID][number]...), nil
}

func (r *memoryRepo) ListCycles(_ context.Context, churchID string) (map[int][]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[int][]string)
	for number, ids := range r.cycles[churchID] {
		out[number] = append([]string(nil), ids...)
	}
	return out, nil
}

func (r *memoryRepo) ReplaceCycle(_ context.Context, churchID string, number int, ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cycles[churchID] == nil {
		r.cycles[churchID] = make(map[int][]string)
	}
	r.cycles[churchID][number] = append([]string(nil), ids...)
	return nil
}

func (r *memoryRepo) CreateSchedule(_ context.Context, schedule scheduler.Schedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.schedules[schedule.ID]; ok {
		return persistence.ErrDuplicate
	}
	schedule.Items = append([]scheduler.Assignment(nil), schedule.Items...)
	r.schedules[schedule.ID] = schedule
	return nil
}

func (r *memoryRepo) UpdateSchedule(_ context.Context, schedule scheduler.Schedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.schedules[schedule.ID]; !ok {
		return persistence.ErrNotFound
	}
	schedule.Items = append([]scheduler.Assignment(nil), schedule.Items...)
	r.schedules[schedule.ID] = schedule
	return nil
}

func (r *memoryRepo) GetSchedule(_ context.Context, id string) (scheduler.Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	schedule, ok := r.schedules[id]
	if !ok {
		return scheduler.Schedule{}, persistence.ErrNotFound
	}
	schedule.Items = append([]scheduler.Assignment(nil), schedule.Items...)
	scheduler.SortAssignments(schedule.Items)
	return schedule, nil
}

func (r *memoryRepo) ListSchedules(_ context.Context, filter persistence.ScheduleFilter) ([]scheduler.Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []scheduler.Schedule
	for _, schedule := range r.schedules {
		if filter.ChurchID != "" && schedule.ChurchID != filter.ChurchID {
			continue
		}
		if filter.EndsOnOrAfter != nil && calendar.FormatDate(schedule.EndDate) < calendar.FormatDate(*filter.EndsOnOrAfter) {
			continue
		}
		if filter.StartsOnOrBefore != nil && calendar.FormatDate(schedule.StartDate) > calendar.FormatDate(*filter.StartsOnOrBefore) {
			continue
		}
		schedule.Items = nil
		out = append(out, schedule)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.After(out[j].StartDate) })
	return out, nil
}

func (r *memoryRepo) DeleteSchedule(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.schedules[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(r.schedules, id)
	return nil
}

func (r *memoryRepo) ListItems(_ context.Context, filter persistence.ItemFilter) ([]scheduler.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []scheduler.Assignment{}
	for _, schedule := range r.schedules {
		if schedule.ChurchID != filter.ChurchID {
			continue
		}
		for _, item := range schedule.Items {
			key := calendar.FormatDate(item.Date)
			if filter.From != nil && key < calendar.FormatDate(*filter.From) {
				continue
			}
			if filter.To != nil && key > calendar.FormatDate(*filter.To) {
				continue
			}
			out = append(out, item)
		}
	}
	scheduler.SortAssignments(out)
	return out, nil
}

func (r *memoryRepo) ReplaceItemsFrom(_ context.Context, from time.Time, replacements map[string][]scheduler.Assignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replaceCalls++
	for id := range replacements {
		if _, ok := r.schedules[id]; !ok {
			return persistence.ErrNotFound
		}
	}
	cutoff := calendar.FormatDate(from)
	for id, items := range replacements {
		schedule := r.schedules[id]
		var kept []scheduler.Assignment
		for _, item := range schedule.Items {
			if calendar.FormatDate(item.Date) < cutoff {
				kept = append(kept, item)
			}
		}
		schedule.Items = append(kept, items...)
		r.schedules[id] = schedule
	}
	return nil
}

// testEnv wires the services against one memoryRepo.
type testEnv struct {
	repo      *memoryRepo
	locker    *lock.Memory
	cycles    *CycleService
	rotation  *RotationService
	schedules *ScheduleService
	dashboard *DashboardService
	now       time.Time
}

type envOption func(*RotationConfig)

func newTestEnv(opts ...envOption) *testEnv {
	env := &testEnv{repo: newMemoryRepo(), locker: lock.NewMemory(), now: time.Date(2026, time.March, 1, 12, 0, 0, 0, testLocation)}
	config := DefaultRotationConfig()
	for _, opt := range opts {
		opt(&config)
	}
	clock := func() time.Time { return env.now }
	expander := recurrence.NewExpander(testLocation)
	counter := 0
	ids := func() string {
		counter++
		return "schedule-" + string(rune('a'+counter-1))
	}

	env.dashboard = NewDashboardService(env.repo, env.repo, env.repo, expander, time.Minute, clock, nil)
	env.cycles = NewCycleService(env.repo, env.repo, env.repo, env.repo, cycle.NewStore(), nil)
	env.rotation = NewRotationService(env.repo, env.repo, env.repo, env.cycles, expander, env.locker, env.dashboard, config, clock, nil)
	env.schedules = NewScheduleService(env.repo, env.repo, env.repo, env.repo, env.rotation, env.locker, env.dashboard, ids, nil)
	return env
}

// seedScenario creates a church with a weekly Sunday official service using
// cycle 1 = [A, B, C] and a weekly Wednesday youth meeting using cycle 2 =
// [D, E]. Every musician is certified.
func (env *testEnv) seedScenario(sameMusician bool) {
	ctx := context.Background()
	_ = env.repo.CreateChurch(ctx, scheduler.Church{ID: "c1", Name: "Central", SameMusicianBothRoles: sameMusician})
	_ = env.repo.CreateService(ctx, scheduler.ServiceDefinition{
		ID: "svc-sun", ChurchID: "c1", Name: "Culto Domingo", Weekday: time.Sunday, TimeOfDay: "10:00",
		Type: scheduler.ServiceOfficial, Recurrence: scheduler.RecurrenceWeekly, Active: true,
	})
	_ = env.repo.CreateService(ctx, scheduler.ServiceDefinition{
		ID: "svc-wed", ChurchID: "c1", Name: "RJM", Weekday: time.Wednesday, TimeOfDay: "19:00",
		Type: scheduler.ServiceYouth, Recurrence: scheduler.RecurrenceWeekly, Active: true,
	})
	for i, name := range []string{"A", "B", "C", "D", "E"} {
		_ = env.repo.CreateMusician(ctx, scheduler.Musician{
			ID: name, ChurchID: "c1", Name: "Organista " + name, Phone: "(11) 9" + string(rune('0'+i)) + "000-0000",
			Certified: true, Active: true, Order: i,
		})
	}
	_ = env.repo.ReplaceCycle(ctx, "c1", 1, []string{"A", "B", "C"})
	_ = env.repo.ReplaceCycle(ctx, "c1", 2, []string{"D", "E"})
}

// rotationKeys renders items as date/role/musician for comparisons.
func rotationKeys(items []scheduler.Assignment) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, calendar.FormatDate(item.Date)+"/"+item.Role.String()+"/"+item.MusicianID)
	}
	return out
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func saveScheduleDirect(env *testEnv, id string, preview PreviewResult) scheduler.Schedule {
	return scheduler.Schedule{
		ID:            id,
		ChurchID:      preview.ChurchID,
		ReferenceName: id,
		StartDate:     preview.StartDate,
		EndDate:       preview.EndDate,
		Status:        scheduler.ScheduleDraft,
		Items:         preview.Items,
		CreatedAt:     env.now,
		UpdatedAt:     env.now,
	}
}
