package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/souzalinux78/gestao-organista/internal/calendar"
	"github.com/souzalinux78/gestao-organista/internal/exchange"
	"github.com/souzalinux78/gestao-organista/internal/lock"
	"github.com/souzalinux78/gestao-organista/internal/normalize"
	"github.com/souzalinux78/gestao-organista/internal/persistence"
	"github.com/souzalinux78/gestao-organista/internal/scheduler"
)

// ScheduleService saves, replaces, exports and imports schedules. Writes of a
// church are serialized with its regeneration through the church lock.
type ScheduleService struct {
	churches    persistence.ChurchRepository
	services    persistence.ServiceRepository
	musicians   persistence.MusicianRepository
	schedules   persistence.ScheduleRepository
	rotation    *RotationService
	locker      lock.Locker
	cache       CacheInvalidator
	idGenerator func() string
	logger      *slog.Logger
}

// NewScheduleService wires dependencies for schedule operations. A nil
// idGenerator produces random UUIDs.
func NewScheduleService(churches persistence.ChurchRepository, services persistence.ServiceRepository, musicians persistence.MusicianRepository, schedules persistence.ScheduleRepository, rotation *RotationService, locker lock.Locker, cache CacheInvalidator, idGenerator func() string, logger *slog.Logger) *ScheduleService {
	if idGenerator == nil {
		idGenerator = uuid.NewString
	}
	return &ScheduleService{
		churches:    churches,
		services:    services,
		musicians:   musicians,
		schedules:   schedules,
		rotation:    rotation,
		locker:      locker,
		cache:       cache,
		idGenerator: idGenerator,
		logger:      defaultLogger(logger),
	}
}

func (s *ScheduleService) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ScheduleService", operation, attrs...)
}

// SaveSchedule stores a schedule for the church. Without explicit items the
// rotation of the period is generated first.
func (s *ScheduleService) SaveSchedule(ctx context.Context, params SaveScheduleParams) (scheduler.Schedule, error) {
	logger := s.log(ctx, "SaveSchedule", "church_id", params.ChurchID)

	if vErr := validateParams(params); vErr != nil {
		return scheduler.Schedule{}, vErr
	}
	if err := s.ensureChurch(ctx, params.ChurchID); err != nil {
		return scheduler.Schedule{}, err
	}
	start, end := s.day(params.StartDate), s.day(params.EndDate)

	items := params.Items
	if items == nil {
		if s.rotation == nil {
			return scheduler.Schedule{}, newValidationError("items", "items are required")
		}
		preview, err := s.rotation.Preview(ctx, PreviewParams{ChurchID: params.ChurchID, StartDate: &start, EndDate: &end})
		if err != nil {
			return scheduler.Schedule{}, err
		}
		items = preview.Items
	}

	schedule := scheduler.Schedule{
		ID:            s.idGenerator(),
		ChurchID:      params.ChurchID,
		ReferenceName: strings.TrimSpace(params.ReferenceName),
		StartDate:     start,
		EndDate:       end,
		Status:        statusOrDraft(params.Status),
		Items:         s.normalizeItems(items),
	}
	if vErr := validateSchedule(schedule); vErr != nil {
		return scheduler.Schedule{}, vErr
	}

	err := withChurchLock(ctx, s.locker, logger, schedule.ChurchID, func() error {
		return s.schedules.CreateSchedule(ctx, schedule)
	})
	if err != nil {
		mapped := mapRepoError(err, "schedule")
		logger.ErrorContext(ctx, "failed to save schedule", "error", err, "error_kind", ErrorKind(mapped))
		return scheduler.Schedule{}, mapped
	}
	invalidate(s.cache, schedule.ChurchID)
	logger.InfoContext(ctx, "schedule saved", "schedule_id", schedule.ID, "items", len(schedule.Items))
	return s.GetSchedule(ctx, schedule.ID)
}

// GetSchedule returns a schedule with its items.
func (s *ScheduleService) GetSchedule(ctx context.Context, id string) (scheduler.Schedule, error) {
	schedule, err := s.schedules.GetSchedule(ctx, id)
	if err != nil {
		return scheduler.Schedule{}, mapRepoError(err, "schedule_id")
	}
	return schedule, nil
}

// ListSchedules returns schedule headers of a church, newest first.
func (s *ScheduleService) ListSchedules(ctx context.Context, params ListSchedulesParams) ([]scheduler.Schedule, error) {
	if vErr := validateParams(params); vErr != nil {
		return nil, vErr
	}
	if err := s.ensureChurch(ctx, params.ChurchID); err != nil {
		return nil, err
	}
	filter := persistence.ScheduleFilter{ChurchID: params.ChurchID, EndsOnOrAfter: params.From, StartsOnOrBefore: params.To}
	schedules, err := s.schedules.ListSchedules(ctx, filter)
	if err != nil {
		return nil, mapRepoError(err, "schedule")
	}
	return schedules, nil
}

// UpdateSchedule fully replaces the header and items of a schedule.
func (s *ScheduleService) UpdateSchedule(ctx context.Context, params UpdateScheduleParams) (scheduler.Schedule, error) {
	logger := s.log(ctx, "UpdateSchedule", "schedule_id", params.ScheduleID)

	if vErr := validateParams(params); vErr != nil {
		return scheduler.Schedule{}, vErr
	}
	existing, err := s.GetSchedule(ctx, params.ScheduleID)
	if err != nil {
		return scheduler.Schedule{}, err
	}

	updated := existing
	updated.ReferenceName = strings.TrimSpace(params.ReferenceName)
	updated.StartDate = s.day(params.StartDate)
	updated.EndDate = s.day(params.EndDate)
	updated.Status = statusOrDraft(params.Status)
	updated.Items = s.normalizeItems(params.Items)
	if vErr := validateSchedule(updated); vErr != nil {
		return scheduler.Schedule{}, vErr
	}

	err = withChurchLock(ctx, s.locker, logger, existing.ChurchID, func() error {
		return s.schedules.UpdateSchedule(ctx, updated)
	})
	if err != nil {
		mapped := mapRepoError(err, "schedule")
		logger.ErrorContext(ctx, "failed to update schedule", "error", err, "error_kind", ErrorKind(mapped))
		return scheduler.Schedule{}, mapped
	}
	invalidate(s.cache, existing.ChurchID)
	return s.GetSchedule(ctx, existing.ID)
}

// DeleteSchedule removes a schedule and its items.
func (s *ScheduleService) DeleteSchedule(ctx context.Context, id string) error {
	logger := s.log(ctx, "DeleteSchedule", "schedule_id", id)

	existing, err := s.GetSchedule(ctx, id)
	if err != nil {
		return err
	}
	err = withChurchLock(ctx, s.locker, logger, existing.ChurchID, func() error {
		return s.schedules.DeleteSchedule(ctx, id)
	})
	if err != nil {
		mapped := mapRepoError(err, "schedule_id")
		logger.ErrorContext(ctx, "failed to delete schedule", "error", err, "error_kind", ErrorKind(mapped))
		return mapped
	}
	invalidate(s.cache, existing.ChurchID)
	logger.InfoContext(ctx, "schedule deleted")
	return nil
}

// Export writes the items of a schedule as a bulk file.
func (s *ScheduleService) Export(ctx context.Context, id string, w io.Writer) (scheduler.Schedule, error) {
	schedule, err := s.GetSchedule(ctx, id)
	if err != nil {
		return scheduler.Schedule{}, err
	}
	church, err := s.churches.GetChurch(ctx, schedule.ChurchID)
	if err != nil {
		return scheduler.Schedule{}, mapRepoError(err, "church_id")
	}
	if err := exchange.Encode(w, church.Name, schedule.Items); err != nil {
		return scheduler.Schedule{}, fmt.Errorf("encode schedule: %w", err)
	}
	return schedule, nil
}

// Import creates a schedule from a bulk file. Rows are matched to services by
// weekday and time (and cycle when several services share a slot) and to
// musicians by accent-insensitive name. Any unresolved row rejects the whole
// file; duplicate rows are skipped and reported.
func (s *ScheduleService) Import(ctx context.Context, params ImportParams) (ImportResult, error) {
	logger := s.log(ctx, "Import", "church_id", params.ChurchID)

	if vErr := validateParams(params); vErr != nil {
		return ImportResult{}, vErr
	}
	if err := s.ensureChurch(ctx, params.ChurchID); err != nil {
		return ImportResult{}, err
	}

	rows, err := exchange.Decode(params.Source, s.location())
	if err != nil {
		var rowErr *exchange.RowError
		switch {
		case errors.As(err, &rowErr):
			return ImportResult{}, newValidationError(fmt.Sprintf("line %d", rowErr.Line),
				fmt.Sprintf("column %s is invalid", rowErr.Column))
		case errors.Is(err, exchange.ErrHeader):
			return ImportResult{}, newValidationError("file", "unexpected header")
		}
		return ImportResult{}, newValidationError("file", "file could not be read")
	}
	if len(rows) == 0 {
		return ImportResult{}, newValidationError("file", "file has no rows")
	}
	unique, duplicates := exchange.Dedupe(rows)

	items, vErr := s.resolveRows(ctx, params.ChurchID, unique)
	if vErr != nil {
		return ImportResult{}, vErr
	}
	scheduler.SortAssignments(items)

	saved, err := s.SaveSchedule(ctx, SaveScheduleParams{
		ChurchID:      params.ChurchID,
		ReferenceName: params.ReferenceName,
		StartDate:     items[0].Date,
		EndDate:       items[len(items)-1].Date,
		Items:         items,
	})
	if err != nil {
		return ImportResult{}, err
	}

	result := ImportResult{Schedule: saved}
	for _, row := range duplicates {
		result.DuplicateLines = append(result.DuplicateLines, row.Line)
	}
	logger.InfoContext(ctx, "schedule imported", "schedule_id", saved.ID, "rows", len(rows), "duplicates", len(duplicates))
	return result, nil
}

func (s *ScheduleService) resolveRows(ctx context.Context, churchID string, rows []exchange.Row) ([]scheduler.Assignment, *ValidationError) {
	services, err := s.services.ListServices(ctx, churchID)
	if err != nil {
		return nil, newValidationError("file", "services could not be loaded")
	}
	musicians, err := s.musicians.ListMusicians(ctx, churchID)
	if err != nil {
		return nil, newValidationError("file", "musicians could not be loaded")
	}
	numbers := scheduler.CycleNumbers(services)
	byName := make(map[string]scheduler.Musician, len(musicians))
	for _, m := range musicians {
		byName[normalize.NameKey(m.Name)] = m
	}

	vErr := &ValidationError{}
	items := make([]scheduler.Assignment, 0, len(rows))
	for _, row := range rows {
		field := fmt.Sprintf("line %d", row.Line)
		svc, ok := matchService(services, numbers, row)
		if !ok {
			vErr.add(field, "no service matches the date and time")
			continue
		}
		if svc.Type == scheduler.ServiceYouth && row.Role == scheduler.RolePrelude {
			vErr.add(field, "youth services have no prelude")
			continue
		}
		musician, ok := byName[normalize.NameKey(row.Musician)]
		if !ok {
			vErr.add(field, "musician not found")
			continue
		}
		phone := musician.Phone
		if phone == "" {
			phone = row.Phone
		}
		items = append(items, scheduler.Assignment{
			Date:          row.Date,
			Time:          svc.TimeOfDay,
			ServiceID:     svc.ID,
			ServiceName:   svc.DisplayName(),
			ServiceType:   svc.Type,
			Role:          row.Role,
			MusicianID:    musician.ID,
			MusicianName:  musician.Name,
			MusicianPhone: phone,
			CycleNumber:   numbers[svc.ID],
		})
	}
	if vErr.HasErrors() {
		return nil, vErr
	}
	return items, nil
}

// matchService finds the service firing at the row's weekday and time,
// preferring the one whose cycle matches when several share the slot.
func matchService(services []scheduler.ServiceDefinition, numbers map[string]int, row exchange.Row) (scheduler.ServiceDefinition, bool) {
	var candidates []scheduler.ServiceDefinition
	for _, svc := range services {
		if svc.Weekday == row.Date.Weekday() && svc.TimeOfDay == row.Time {
			candidates = append(candidates, svc)
		}
	}
	if len(candidates) == 0 {
		return scheduler.ServiceDefinition{}, false
	}
	for _, svc := range candidates {
		if numbers[svc.ID] == row.Cycle {
			return svc, true
		}
	}
	return candidates[0], true
}

func (s *ScheduleService) ensureChurch(ctx context.Context, churchID string) error {
	if _, err := s.churches.GetChurch(ctx, churchID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return newValidationError("church_id", "church not found")
		}
		return err
	}
	return nil
}

func (s *ScheduleService) location() *time.Location {
	if s.rotation != nil {
		return s.rotation.Location()
	}
	return calendar.DefaultLocation()
}

func (s *ScheduleService) day(t time.Time) time.Time {
	return calendar.Day(t, s.location())
}

func (s *ScheduleService) normalizeItems(items []scheduler.Assignment) []scheduler.Assignment {
	out := make([]scheduler.Assignment, len(items))
	for i, item := range items {
		item.Date = s.day(item.Date)
		out[i] = item
	}
	scheduler.SortAssignments(out)
	return out
}

func statusOrDraft(status scheduler.ScheduleStatus) scheduler.ScheduleStatus {
	if status == "" {
		return scheduler.ScheduleDraft
	}
	return status
}

// validateSchedule checks the period and that every item falls inside it.
func validateSchedule(schedule scheduler.Schedule) *ValidationError {
	vErr := &ValidationError{}
	if schedule.EndDate.Before(schedule.StartDate) {
		vErr.add("end_date", "end date must not be before start date")
	}
	start, end := calendar.FormatDate(schedule.StartDate), calendar.FormatDate(schedule.EndDate)
	var outside []string
	for i, item := range schedule.Items {
		day := calendar.FormatDate(item.Date)
		if day < start || day > end {
			outside = append(outside, day)
		}
		if item.Role != scheduler.RolePrelude && item.Role != scheduler.RoleService {
			vErr.add(fmt.Sprintf("items[%d].role", i), "role is invalid")
		}
		if item.ServiceID == "" {
			vErr.add(fmt.Sprintf("items[%d].service_id", i), "service id is required")
		}
	}
	if len(outside) > 0 {
		sort.Strings(outside)
		vErr.add("items", "items dated outside the schedule period: "+strings.Join(outside, ", "))
	}
	if vErr.HasErrors() {
		return vErr
	}
	return nil
}
