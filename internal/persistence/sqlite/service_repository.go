package sqlite

import (
	"context"
	"time"

	"github.com/souzalinux78/gestao-organista/internal/persistence"
	"github.com/souzalinux78/gestao-organista/internal/scheduler"
)

// ServiceRepository implements persistence.ServiceRepository using SQLite
type ServiceRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewServiceRepository creates a new SQLite service repository
func NewServiceRepository(pool *ConnectionPool) *ServiceRepository {
	return &ServiceRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

// CreateService inserts a recurring service definition.
func (r *ServiceRepository) CreateService(ctx context.Context, service scheduler.ServiceDefinition) error {
	if service.ID == "" || service.Validate() != nil {
		return persistence.ErrConstraintViolation
	}
	return r.retry.WithRetry(ctx, func() error {
		_, err := r.pool.DB().ExecContext(ctx, `
			INSERT INTO services (id, church_id, name, weekday, time_of_day, type, recurrence, monthly_ordinal, active)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			service.ID, service.ChurchID, service.Name, int(service.Weekday), service.TimeOfDay,
			service.Type.String(), service.Recurrence.String(), service.MonthlyOrdinal, boolToInt(service.Active),
		)
		return r.mapper.MapError(err)
	})
}

// UpdateService replaces every mutable field of a service definition.
func (r *ServiceRepository) UpdateService(ctx context.Context, service scheduler.ServiceDefinition) error {
	if service.ID == "" || service.Validate() != nil {
		return persistence.ErrConstraintViolation
	}
	return r.retry.WithRetry(ctx, func() error {
		result, err := r.pool.DB().ExecContext(ctx, `
			UPDATE services
			SET name = ?, weekday = ?, time_of_day = ?, type = ?, recurrence = ?, monthly_ordinal = ?, active = ?
			WHERE id = ? AND church_id = ?`,
			service.Name, int(service.Weekday), service.TimeOfDay, service.Type.String(),
			service.Recurrence.String(), service.MonthlyOrdinal, boolToInt(service.Active),
			service.ID, service.ChurchID,
		)
		if err != nil {
			return r.mapper.MapError(err)
		}
		return requireAffected(result)
	})
}

// DeleteService removes a service definition.
func (r *ServiceRepository) DeleteService(ctx context.Context, id string) error {
	return r.retry.WithRetry(ctx, func() error {
		result, err := r.pool.DB().ExecContext(ctx, `DELETE FROM services WHERE id = ?`, id)
		if err != nil {
			return r.mapper.MapError(err)
		}
		return requireAffected(result)
	})
}

// ListServices returns the services of a church ordered by ID.
func (r *ServiceRepository) ListServices(ctx context.Context, churchID string) ([]scheduler.ServiceDefinition, error) {
	rows, err := r.pool.DB().QueryContext(ctx, `
		SELECT id, church_id, name, weekday, time_of_day, type, recurrence, monthly_ordinal, active
		FROM services WHERE church_id = ? ORDER BY id`, churchID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var services []scheduler.ServiceDefinition
	for rows.Next() {
		var (
			svc                 scheduler.ServiceDefinition
			weekday, active     int
			serviceType, recurs string
		)
		if err := rows.Scan(&svc.ID, &svc.ChurchID, &svc.Name, &weekday, &svc.TimeOfDay,
			&serviceType, &recurs, &svc.MonthlyOrdinal, &active); err != nil {
			return nil, r.mapper.MapError(err)
		}
		svc.Weekday = time.Weekday(weekday)
		svc.Active = active != 0
		if svc.Type, err = scheduler.ParseServiceType(serviceType); err != nil {
			return nil, err
		}
		if svc.Recurrence, err = scheduler.ParseRecurrence(recurs); err != nil {
			return nil, err
		}
		services = append(services, svc)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return services, nil
}
