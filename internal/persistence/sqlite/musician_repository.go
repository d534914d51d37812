package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/souzalinux78/gestao-organista/internal/persistence"
	"github.com/souzalinux78/gestao-organista/internal/scheduler"
)

// MusicianRepository implements persistence.MusicianRepository using SQLite
type MusicianRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewMusicianRepository creates a new SQLite musician repository
func NewMusicianRepository(pool *ConnectionPool) *MusicianRepository {
	return &MusicianRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

const musicianColumns = `id, church_id, name, phone, certified, active, sort_order`

// CreateMusician inserts a musician.
func (r *MusicianRepository) CreateMusician(ctx context.Context, musician scheduler.Musician) error {
	if musician.ID == "" || musician.ChurchID == "" {
		return persistence.ErrConstraintViolation
	}
	return r.retry.WithRetry(ctx, func() error {
		_, err := r.pool.DB().ExecContext(ctx, `
			INSERT INTO musicians (`+musicianColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			musician.ID, musician.ChurchID, musician.Name, musician.Phone,
			boolToInt(musician.Certified), boolToInt(musician.Active), musician.Order,
		)
		return r.mapper.MapError(err)
	})
}

// UpdateMusician replaces the mutable fields of a musician.
func (r *MusicianRepository) UpdateMusician(ctx context.Context, musician scheduler.Musician) error {
	if musician.ID == "" {
		return persistence.ErrConstraintViolation
	}
	return r.retry.WithRetry(ctx, func() error {
		result, err := r.pool.DB().ExecContext(ctx, `
			UPDATE musicians SET name = ?, phone = ?, certified = ?, active = ?, sort_order = ?
			WHERE id = ?`,
			musician.Name, musician.Phone, boolToInt(musician.Certified), boolToInt(musician.Active),
			musician.Order, musician.ID,
		)
		if err != nil {
			return r.mapper.MapError(err)
		}
		return requireAffected(result)
	})
}

// GetMusician retrieves a musician by ID.
func (r *MusicianRepository) GetMusician(ctx context.Context, id string) (scheduler.Musician, error) {
	row := r.pool.DB().QueryRowContext(ctx, `SELECT `+musicianColumns+` FROM musicians WHERE id = ?`, id)
	musician, err := scanMusician(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return scheduler.Musician{}, persistence.ErrNotFound
		}
		return scheduler.Musician{}, r.mapper.MapError(err)
	}
	return musician, nil
}

// ListMusicians returns the musicians of a church by display order, then name.
func (r *MusicianRepository) ListMusicians(ctx context.Context, churchID string) ([]scheduler.Musician, error) {
	rows, err := r.pool.DB().QueryContext(ctx, `
		SELECT `+musicianColumns+` FROM musicians
		WHERE church_id = ? ORDER BY sort_order, name, id`, churchID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var musicians []scheduler.Musician
	for rows.Next() {
		musician, err := scanMusician(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		musicians = append(musicians, musician)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return musicians, nil
}

func scanMusician(row rowScanner) (scheduler.Musician, error) {
	var (
		musician          scheduler.Musician
		certified, active int
	)
	if err := row.Scan(&musician.ID, &musician.ChurchID, &musician.Name, &musician.Phone,
		&certified, &active, &musician.Order); err != nil {
		return scheduler.Musician{}, err
	}
	musician.Certified = certified != 0
	musician.Active = active != 0
	return musician, nil
}
