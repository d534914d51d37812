package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/souzalinux78/gestao-organista/internal/persistence"
	"github.com/souzalinux78/gestao-organista/internal/scheduler"
)

// ChurchRepository implements persistence.ChurchRepository using SQLite
type ChurchRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
	retry  *RetryHelper
	now    func() time.Time
}

// NewChurchRepository creates a new SQLite church repository
func NewChurchRepository(pool *ConnectionPool) *ChurchRepository {
	return &ChurchRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
		now:    time.Now,
	}
}

// CreateChurch inserts a new church.
func (r *ChurchRepository) CreateChurch(ctx context.Context, church scheduler.Church) error {
	if church.ID == "" {
		return persistence.ErrConstraintViolation
	}
	now := r.now().UTC()
	if church.CreatedAt.IsZero() {
		church.CreatedAt = now
	}
	church.UpdatedAt = now

	return r.retry.WithRetry(ctx, func() error {
		_, err := r.pool.DB().ExecContext(ctx, `
			INSERT INTO churches (id, name, same_musician_both_roles, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)`,
			church.ID, church.Name, boolToInt(church.SameMusicianBothRoles),
			church.CreatedAt.Format(time.RFC3339), church.UpdatedAt.Format(time.RFC3339),
		)
		return r.mapper.MapError(err)
	})
}

// UpdateChurch updates the name and rotation policy of a church.
func (r *ChurchRepository) UpdateChurch(ctx context.Context, church scheduler.Church) error {
	if church.ID == "" {
		return persistence.ErrConstraintViolation
	}
	return r.retry.WithRetry(ctx, func() error {
		result, err := r.pool.DB().ExecContext(ctx, `
			UPDATE churches SET name = ?, same_musician_both_roles = ?, updated_at = ?
			WHERE id = ?`,
			church.Name, boolToInt(church.SameMusicianBothRoles), r.now().UTC().Format(time.RFC3339), church.ID,
		)
		if err != nil {
			return r.mapper.MapError(err)
		}
		return requireAffected(result)
	})
}

// GetChurch retrieves a church by ID.
func (r *ChurchRepository) GetChurch(ctx context.Context, id string) (scheduler.Church, error) {
	row := r.pool.DB().QueryRowContext(ctx, `
		SELECT id, name, same_musician_both_roles, created_at, updated_at
		FROM churches WHERE id = ?`, id)
	church, err := scanChurch(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return scheduler.Church{}, persistence.ErrNotFound
		}
		return scheduler.Church{}, r.mapper.MapError(err)
	}
	return church, nil
}

// ListChurches returns every church ordered by name.
func (r *ChurchRepository) ListChurches(ctx context.Context) ([]scheduler.Church, error) {
	rows, err := r.pool.DB().QueryContext(ctx, `
		SELECT id, name, same_musician_both_roles, created_at, updated_at
		FROM churches ORDER BY name, id`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var churches []scheduler.Church
	for rows.Next() {
		church, err := scanChurch(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		churches = append(churches, church)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return churches, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChurch(row rowScanner) (scheduler.Church, error) {
	var (
		church               scheduler.Church
		both                 int
		createdAt, updatedAt string
	)
	if err := row.Scan(&church.ID, &church.Name, &both, &createdAt, &updatedAt); err != nil {
		return scheduler.Church{}, err
	}
	church.SameMusicianBothRoles = both != 0
	church.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	church.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return church, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}
