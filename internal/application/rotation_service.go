package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/souzalinux78/gestao-organista/internal/calendar"
	"github.com/souzalinux78/gestao-organista/internal/lock"
	"github.com/souzalinux78/gestao-organista/internal/persistence"
	"github.com/souzalinux78/gestao-organista/internal/recurrence"
	"github.com/souzalinux78/gestao-organista/internal/rotation"
	"github.com/souzalinux78/gestao-organista/internal/scheduler"
)

// RotationConfig bounds and tunes generation.
type RotationConfig struct {
	// MaxGenerationMonths caps the length of any generated period.
	MaxGenerationMonths int
	// DefaultPeriodMonths applies when a preview names neither an end date
	// nor a period.
	DefaultPeriodMonths int
	DrawOrder           rotation.DrawOrder
}

// DefaultRotationConfig returns the limits used when none are configured.
func DefaultRotationConfig() RotationConfig {
	return RotationConfig{MaxGenerationMonths: 12, DefaultPeriodMonths: 1, DrawOrder: rotation.ServiceFirst}
}

// RotationService previews rotations and regenerates saved schedules.
type RotationService struct {
	churches  persistence.ChurchRepository
	services  persistence.ServiceRepository
	schedules persistence.ScheduleRepository
	cycles    *CycleService
	expander  *recurrence.Expander
	locker    lock.Locker
	cache     CacheInvalidator
	config    RotationConfig
	now       func() time.Time
	logger    *slog.Logger
}

// NewRotationService wires dependencies for rotation generation.
func NewRotationService(churches persistence.ChurchRepository, services persistence.ServiceRepository, schedules persistence.ScheduleRepository, cycles *CycleService, expander *recurrence.Expander, locker lock.Locker, cache CacheInvalidator, config RotationConfig, now func() time.Time, logger *slog.Logger) *RotationService {
	defaults := DefaultRotationConfig()
	if config.MaxGenerationMonths <= 0 {
		config.MaxGenerationMonths = defaults.MaxGenerationMonths
	}
	if config.DefaultPeriodMonths <= 0 {
		config.DefaultPeriodMonths = defaults.DefaultPeriodMonths
	}
	if expander == nil {
		expander = recurrence.NewExpander(nil)
	}
	if now == nil {
		now = time.Now
	}
	return &RotationService{
		churches:  churches,
		services:  services,
		schedules: schedules,
		cycles:    cycles,
		expander:  expander,
		locker:    locker,
		cache:     cache,
		config:    config,
		now:       now,
		logger:    defaultLogger(logger),
	}
}

func (s *RotationService) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RotationService", operation, attrs...)
}

// Location returns the zone civil dates are interpreted in.
func (s *RotationService) Location() *time.Location {
	return s.expander.Location()
}

// Today returns the current civil date.
func (s *RotationService) Today() time.Time {
	return calendar.Day(s.now(), s.Location())
}

// Preview generates the rotation of a period without saving it. The cursor
// continues from the saved items dated before the period unless the request
// pins a starting position.
func (s *RotationService) Preview(ctx context.Context, params PreviewParams) (PreviewResult, error) {
	logger := s.log(ctx, "Preview", "church_id", params.ChurchID)

	if vErr := validateParams(params); vErr != nil {
		return PreviewResult{}, vErr
	}
	church, err := s.church(ctx, params.ChurchID)
	if err != nil {
		return PreviewResult{}, err
	}
	start, end, err := s.period(params)
	if err != nil {
		return PreviewResult{}, err
	}

	services, err := s.services.ListServices(ctx, church.ID)
	if err != nil {
		return PreviewResult{}, fmt.Errorf("list services: %w", err)
	}
	cycles, err := s.cycles.RotationCycles(ctx, church.ID, services)
	if err != nil {
		return PreviewResult{}, err
	}
	policy := s.policy(church)

	history, err := s.itemsBefore(ctx, church.ID, start)
	if err != nil {
		return PreviewResult{}, err
	}
	cursor := rotation.ResumeCursor(history, cycles, policy, start)
	if cursor, err = pinCursor(cursor, cycles, params); err != nil {
		return PreviewResult{}, err
	}

	result := rotation.Generate(rotation.Request{
		Occurrences: s.expander.Expand(services, start, end),
		Services:    indexServices(services),
		Cycles:      cycles,
		Policy:      policy,
		Start:       cursor,
	})
	logger.InfoContext(ctx, "rotation previewed",
		"start", calendar.FormatDate(start), "end", calendar.FormatDate(end),
		"items", len(result.Items), "gaps", len(result.Gaps))

	return PreviewResult{
		ChurchID:  church.ID,
		StartDate: start,
		EndDate:   end,
		Items:     result.Items,
		Gaps:      result.Gaps,
		Conflicts: scheduler.PolicyFor(church).Detect(result.Items),
		Cursor:    result.End,
	}, nil
}

// Regenerate discards the saved items dated on or after FromDate and fills
// the saved schedules again, continuing the rotation from the last items
// before the cutover. Running it twice with unchanged cycles yields the same
// items.
func (s *RotationService) Regenerate(ctx context.Context, params RegenerateParams) (RegenerateResult, error) {
	logger := s.log(ctx, "Regenerate", "church_id", params.ChurchID)

	if vErr := validateParams(params); vErr != nil {
		return RegenerateResult{}, vErr
	}
	church, err := s.church(ctx, params.ChurchID)
	if err != nil {
		return RegenerateResult{}, err
	}
	from := calendar.Day(params.FromDate, s.Location())

	var result RegenerateResult
	err = withChurchLock(ctx, s.locker, logger, church.ID, func() error {
		var err error
		result, err = s.regenerate(ctx, church, from)
		return err
	})
	if err != nil {
		logger.ErrorContext(ctx, "regeneration failed", "error", err, "error_kind", ErrorKind(err))
		return RegenerateResult{}, err
	}
	invalidate(s.cache, church.ID)
	logger.InfoContext(ctx, "rotation regenerated",
		"from", calendar.FormatDate(from), "schedules", len(result.ScheduleIDs),
		"items", result.ItemCount, "gaps", len(result.Gaps))
	return result, nil
}

func (s *RotationService) regenerate(ctx context.Context, church scheduler.Church, from time.Time) (RegenerateResult, error) {
	affected, err := s.schedules.ListSchedules(ctx, persistence.ScheduleFilter{ChurchID: church.ID, EndsOnOrAfter: &from})
	if err != nil {
		return RegenerateResult{}, fmt.Errorf("list schedules: %w", err)
	}
	if len(affected) == 0 {
		return RegenerateResult{}, newValidationError("from_date", "no saved schedule covers the date")
	}
	end := affected[0].EndDate
	for _, schedule := range affected[1:] {
		if schedule.EndDate.After(end) {
			end = schedule.EndDate
		}
	}
	if end.After(calendar.PeriodEnd(from, s.config.MaxGenerationMonths)) {
		return RegenerateResult{}, newValidationError("from_date",
			fmt.Sprintf("period must not exceed %d months", s.config.MaxGenerationMonths))
	}

	services, err := s.services.ListServices(ctx, church.ID)
	if err != nil {
		return RegenerateResult{}, fmt.Errorf("list services: %w", err)
	}
	cycles, err := s.cycles.RotationCycles(ctx, church.ID, services)
	if err != nil {
		return RegenerateResult{}, err
	}
	history, err := s.itemsBefore(ctx, church.ID, from)
	if err != nil {
		return RegenerateResult{}, err
	}
	policy := s.policy(church)

	// Only days inside a saved schedule advance the rotation.
	var occurrences []recurrence.Occurrence
	for _, occ := range s.expander.Expand(services, from, end) {
		if owner(affected, occ.Date) != "" {
			occurrences = append(occurrences, occ)
		}
	}
	generated := rotation.Generate(rotation.Request{
		Occurrences: occurrences,
		Services:    indexServices(services),
		Cycles:      cycles,
		Policy:      policy,
		Start:       rotation.ResumeCursor(history, cycles, policy, from),
	})

	replacements := make(map[string][]scheduler.Assignment, len(affected))
	result := RegenerateResult{FromDate: from, ItemCount: len(generated.Items), Gaps: generated.Gaps}
	for _, schedule := range affected {
		replacements[schedule.ID] = []scheduler.Assignment{}
		result.ScheduleIDs = append(result.ScheduleIDs, schedule.ID)
	}
	for _, item := range generated.Items {
		id := owner(affected, item.Date)
		replacements[id] = append(replacements[id], item)
	}
	if err := s.schedules.ReplaceItemsFrom(ctx, from, replacements); err != nil {
		return RegenerateResult{}, mapRepoError(err, "from_date")
	}
	return result, nil
}

// owner returns the schedule holding day. Schedules are ordered newest first,
// so the most recent one wins when periods overlap.
func owner(schedules []scheduler.Schedule, day time.Time) string {
	key := calendar.FormatDate(day)
	for _, schedule := range schedules {
		if calendar.FormatDate(schedule.StartDate) <= key && key <= calendar.FormatDate(schedule.EndDate) {
			return schedule.ID
		}
	}
	return ""
}

func (s *RotationService) church(ctx context.Context, churchID string) (scheduler.Church, error) {
	church, err := s.churches.GetChurch(ctx, churchID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return scheduler.Church{}, newValidationError("church_id", "church not found")
		}
		return scheduler.Church{}, err
	}
	return church, nil
}

func (s *RotationService) policy(church scheduler.Church) rotation.Policy {
	return rotation.Policy{SameMusicianBothRoles: church.SameMusicianBothRoles, DrawOrder: s.config.DrawOrder}
}

// period resolves and bounds the dates of a preview.
func (s *RotationService) period(params PreviewParams) (time.Time, time.Time, error) {
	loc := s.Location()
	start := s.Today()
	if params.StartDate != nil {
		start = calendar.Day(*params.StartDate, loc)
	}
	if params.PeriodMonths > s.config.MaxGenerationMonths {
		return time.Time{}, time.Time{}, newValidationError("period_months",
			fmt.Sprintf("period months must be at most %d", s.config.MaxGenerationMonths))
	}

	var end time.Time
	switch {
	case params.EndDate != nil:
		end = calendar.Day(*params.EndDate, loc)
	case params.PeriodMonths > 0:
		end = calendar.PeriodEnd(start, params.PeriodMonths)
	default:
		end = calendar.PeriodEnd(start, s.config.DefaultPeriodMonths)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, newValidationError("end_date", "end date must not be before start date")
	}
	if end.After(calendar.PeriodEnd(start, s.config.MaxGenerationMonths)) {
		return time.Time{}, time.Time{}, newValidationError("end_date",
			fmt.Sprintf("period must not exceed %d months", s.config.MaxGenerationMonths))
	}
	return start, end, nil
}

func (s *RotationService) itemsBefore(ctx context.Context, churchID string, day time.Time) ([]scheduler.Assignment, error) {
	before := day.AddDate(0, 0, -1)
	items, err := s.schedules.ListItems(ctx, persistence.ItemFilter{ChurchID: churchID, To: &before})
	if err != nil {
		return nil, fmt.Errorf("list saved items: %w", err)
	}
	return items, nil
}

// pinCursor applies the starting cycle and musician of a request.
func pinCursor(cursor rotation.Cursor, cycles map[string]rotation.Cycle, params PreviewParams) (rotation.Cursor, error) {
	if params.StartingCycle == 0 {
		if params.StartingMusicianID != "" {
			return cursor, newValidationError("starting_cycle", "starting cycle is required with a starting musician")
		}
		return cursor, nil
	}

	var (
		target rotation.Cycle
		found  bool
	)
	for _, c := range cycles {
		if c.Number == params.StartingCycle {
			target, found = c, true
			break
		}
	}
	if !found {
		return cursor, newValidationError("starting_cycle", "cycle not found")
	}
	if params.StartingMusicianID == "" {
		return cursor.With(target.Number, 0), nil
	}
	pinned, ok := cursor.Pin(target, params.StartingMusicianID)
	if !ok {
		return cursor, newValidationError("starting_musician_id", "musician is not part of the cycle")
	}
	return pinned, nil
}

func indexServices(services []scheduler.ServiceDefinition) map[string]scheduler.ServiceDefinition {
	index := make(map[string]scheduler.ServiceDefinition, len(services))
	for _, svc := range services {
		index[svc.ID] = svc
	}
	return index
}
