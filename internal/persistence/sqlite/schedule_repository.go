package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/souzalinux78/gestao-organista/internal/calendar"
	"github.com/souzalinux78/gestao-organista/internal/persistence"
	"github.com/souzalinux78/gestao-organista/internal/scheduler"
)

// ScheduleRepository implements persistence.ScheduleRepository using SQLite.
// Civil dates are stored as YYYY-MM-DD and read back in the repository's
// location.
type ScheduleRepository struct {
	pool     *ConnectionPool
	mapper   *ErrorMapper
	retry    *RetryHelper
	location *time.Location
	now      func() time.Time
}

// NewScheduleRepository creates a new SQLite schedule repository
func NewScheduleRepository(pool *ConnectionPool, loc *time.Location) *ScheduleRepository {
	if loc == nil {
		loc = calendar.DefaultLocation()
	}
	return &ScheduleRepository{
		pool:     pool,
		mapper:   NewErrorMapper(),
		retry:    NewRetryHelper(DefaultRetryConfig()),
		location: loc,
		now:      time.Now,
	}
}

const itemColumns = `date, time_of_day, service_id, service_name, service_type, role,
	musician_id, musician_name, musician_phone, cycle_number`

// CreateSchedule inserts a schedule header with its items.
func (r *ScheduleRepository) CreateSchedule(ctx context.Context, schedule scheduler.Schedule) error {
	if err := r.validateSchedule(schedule); err != nil {
		return err
	}
	now := r.now().UTC()
	schedule.CreatedAt = now
	schedule.UpdatedAt = now

	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO schedules (id, church_id, reference_name, start_date, end_date, status, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				schedule.ID, schedule.ChurchID, schedule.ReferenceName,
				r.formatDate(schedule.StartDate), r.formatDate(schedule.EndDate), string(schedule.Status),
				schedule.CreatedAt.Format(time.RFC3339), schedule.UpdatedAt.Format(time.RFC3339),
			)
			if err != nil {
				return r.mapper.MapError(err)
			}
			return r.insertItems(ctx, tx, schedule.ID, schedule.Items)
		})
	})
}

// UpdateSchedule replaces the header fields and every item of a schedule.
// The owning church and creation timestamp are preserved.
func (r *ScheduleRepository) UpdateSchedule(ctx context.Context, schedule scheduler.Schedule) error {
	if err := r.validateSchedule(schedule); err != nil {
		return err
	}
	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			result, err := tx.ExecContext(ctx, `
				UPDATE schedules
				SET reference_name = ?, start_date = ?, end_date = ?, status = ?, updated_at = ?
				WHERE id = ?`,
				schedule.ReferenceName, r.formatDate(schedule.StartDate), r.formatDate(schedule.EndDate),
				string(schedule.Status), r.now().UTC().Format(time.RFC3339), schedule.ID,
			)
			if err != nil {
				return r.mapper.MapError(err)
			}
			if err := requireAffected(result); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM schedule_items WHERE schedule_id = ?`, schedule.ID); err != nil {
				return r.mapper.MapError(err)
			}
			return r.insertItems(ctx, tx, schedule.ID, schedule.Items)
		})
	})
}

// GetSchedule retrieves a schedule with its items in chronological order.
func (r *ScheduleRepository) GetSchedule(ctx context.Context, id string) (scheduler.Schedule, error) {
	row := r.pool.DB().QueryRowContext(ctx, `
		SELECT id, church_id, reference_name, start_date, end_date, status, created_at, updated_at
		FROM schedules WHERE id = ?`, id)
	schedule, err := r.scanSchedule(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return scheduler.Schedule{}, persistence.ErrNotFound
		}
		return scheduler.Schedule{}, r.mapper.MapError(err)
	}

	items, err := r.queryItems(ctx, `
		SELECT `+itemColumns+` FROM schedule_items
		WHERE schedule_id = ?
		ORDER BY date, time_of_day, service_id, role, id`, id)
	if err != nil {
		return scheduler.Schedule{}, err
	}
	schedule.Items = items
	return schedule, nil
}

// ListSchedules returns schedule headers, newest start date first.
func (r *ScheduleRepository) ListSchedules(ctx context.Context, filter persistence.ScheduleFilter) ([]scheduler.Schedule, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.ChurchID != "" {
		conditions = append(conditions, "church_id = ?")
		args = append(args, filter.ChurchID)
	}
	if filter.EndsOnOrAfter != nil {
		conditions = append(conditions, "end_date >= ?")
		args = append(args, r.formatDate(*filter.EndsOnOrAfter))
	}
	if filter.StartsOnOrBefore != nil {
		conditions = append(conditions, "start_date <= ?")
		args = append(args, r.formatDate(*filter.StartsOnOrBefore))
	}

	query := `SELECT id, church_id, reference_name, start_date, end_date, status, created_at, updated_at FROM schedules`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY start_date DESC, created_at DESC, id"

	rows, err := r.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var schedules []scheduler.Schedule
	for rows.Next() {
		schedule, err := r.scanSchedule(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		schedules = append(schedules, schedule)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return schedules, nil
}

// DeleteSchedule removes a schedule; its items cascade.
func (r *ScheduleRepository) DeleteSchedule(ctx context.Context, id string) error {
	return r.retry.WithRetry(ctx, func() error {
		result, err := r.pool.DB().ExecContext(ctx, `DELETE FROM schedules WHERE id = ?`, id)
		if err != nil {
			return r.mapper.MapError(err)
		}
		return requireAffected(result)
	})
}

// ListItems returns the items of every saved schedule of a church within the
// optional date window.
func (r *ScheduleRepository) ListItems(ctx context.Context, filter persistence.ItemFilter) ([]scheduler.Assignment, error) {
	conditions := []string{"s.church_id = ?"}
	args := []any{filter.ChurchID}
	if filter.From != nil {
		conditions = append(conditions, "i.date >= ?")
		args = append(args, r.formatDate(*filter.From))
	}
	if filter.To != nil {
		conditions = append(conditions, "i.date <= ?")
		args = append(args, r.formatDate(*filter.To))
	}

	query := `
		SELECT i.date, i.time_of_day, i.service_id, i.service_name, i.service_type, i.role,
			i.musician_id, i.musician_name, i.musician_phone, i.cycle_number
		FROM schedule_items i
		JOIN schedules s ON s.id = i.schedule_id
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY i.date, i.time_of_day, i.service_id, i.role, i.id`
	return r.queryItems(ctx, query, args...)
}

// ReplaceItemsFrom drops the items dated on or after from for each listed
// schedule and inserts the replacements in a single transaction.
func (r *ScheduleRepository) ReplaceItemsFrom(ctx context.Context, from time.Time, replacements map[string][]scheduler.Assignment) error {
	ids := make([]string, 0, len(replacements))
	for id := range replacements {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	cutoff := r.formatDate(from)
	stamp := r.now().UTC().Format(time.RFC3339)

	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			for _, id := range ids {
				result, err := tx.ExecContext(ctx, `UPDATE schedules SET updated_at = ? WHERE id = ?`, stamp, id)
				if err != nil {
					return r.mapper.MapError(err)
				}
				if err := requireAffected(result); err != nil {
					return fmt.Errorf("schedule %s: %w", id, err)
				}
				if _, err := tx.ExecContext(ctx,
					`DELETE FROM schedule_items WHERE schedule_id = ? AND date >= ?`, id, cutoff); err != nil {
					return r.mapper.MapError(err)
				}
				if err := r.insertItems(ctx, tx, id, replacements[id]); err != nil {
					return err
				}
			}
			return nil
		})
	})
}

func (r *ScheduleRepository) insertItems(ctx context.Context, tx *sql.Tx, scheduleID string, items []scheduler.Assignment) error {
	if len(items) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO schedule_items (schedule_id, `+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return r.mapper.MapError(err)
	}
	defer stmt.Close()

	for _, item := range items {
		_, err := stmt.ExecContext(ctx, scheduleID,
			r.formatDate(item.Date), item.Time, item.ServiceID, item.ServiceName,
			item.ServiceType.String(), item.Role.String(),
			item.MusicianID, item.MusicianName, item.MusicianPhone, item.CycleNumber,
		)
		if err != nil {
			return r.mapper.MapError(err)
		}
	}
	return nil
}

func (r *ScheduleRepository) queryItems(ctx context.Context, query string, args ...any) ([]scheduler.Assignment, error) {
	rows, err := r.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	items := []scheduler.Assignment{}
	for rows.Next() {
		var (
			item                    scheduler.Assignment
			date, serviceType, role string
		)
		if err := rows.Scan(&date, &item.Time, &item.ServiceID, &item.ServiceName, &serviceType, &role,
			&item.MusicianID, &item.MusicianName, &item.MusicianPhone, &item.CycleNumber); err != nil {
			return nil, r.mapper.MapError(err)
		}
		if item.Date, err = calendar.ParseDate(date, r.location); err != nil {
			return nil, fmt.Errorf("invalid stored date %q: %w", date, err)
		}
		if item.ServiceType, err = scheduler.ParseServiceType(serviceType); err != nil {
			return nil, err
		}
		if item.Role, err = scheduler.ParseRole(role); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return items, nil
}

func (r *ScheduleRepository) scanSchedule(row rowScanner) (scheduler.Schedule, error) {
	var (
		schedule                                 scheduler.Schedule
		start, end, status, createdAt, updatedAt string
	)
	if err := row.Scan(&schedule.ID, &schedule.ChurchID, &schedule.ReferenceName,
		&start, &end, &status, &createdAt, &updatedAt); err != nil {
		return scheduler.Schedule{}, err
	}
	var err error
	if schedule.StartDate, err = calendar.ParseDate(start, r.location); err != nil {
		return scheduler.Schedule{}, fmt.Errorf("invalid stored start date %q: %w", start, err)
	}
	if schedule.EndDate, err = calendar.ParseDate(end, r.location); err != nil {
		return scheduler.Schedule{}, fmt.Errorf("invalid stored end date %q: %w", end, err)
	}
	schedule.Status = scheduler.ScheduleStatus(status)
	schedule.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	schedule.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return schedule, nil
}

func (r *ScheduleRepository) validateSchedule(schedule scheduler.Schedule) error {
	if schedule.ID == "" || schedule.ChurchID == "" {
		return persistence.ErrConstraintViolation
	}
	if !schedule.Status.Valid() {
		return fmt.Errorf("%w: invalid status %q", persistence.ErrConstraintViolation, schedule.Status)
	}
	if r.formatDate(schedule.EndDate) < r.formatDate(schedule.StartDate) {
		return fmt.Errorf("%w: end date before start date", persistence.ErrConstraintViolation)
	}
	return nil
}

// formatDate keeps the civil date carried by t without converting zones.
func (r *ScheduleRepository) formatDate(t time.Time) string {
	return calendar.FormatDate(t)
}
