package sqlite

import (
	"context"
	"database/sql"

	"github.com/souzalinux78/gestao-organista/internal/persistence"
)

// CycleRepository implements persistence.CycleRepository using SQLite
type CycleRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewCycleRepository creates a new SQLite cycle repository
func NewCycleRepository(pool *ConnectionPool) *CycleRepository {
	return &CycleRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

// ListCycle returns the musician IDs of one cycle ordered by position.
func (r *CycleRepository) ListCycle(ctx context.Context, churchID string, number int) ([]string, error) {
	rows, err := r.pool.DB().QueryContext(ctx, `
		SELECT musician_id FROM cycle_items
		WHERE church_id = ? AND cycle_number = ?
		ORDER BY position`, churchID, number)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, r.mapper.MapError(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return ids, nil
}

// ListCycles returns every cycle of a church keyed by cycle number.
func (r *CycleRepository) ListCycles(ctx context.Context, churchID string) (map[int][]string, error) {
	rows, err := r.pool.DB().QueryContext(ctx, `
		SELECT cycle_number, musician_id FROM cycle_items
		WHERE church_id = ?
		ORDER BY cycle_number, position`, churchID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	cycles := make(map[int][]string)
	for rows.Next() {
		var (
			number int
			id     string
		)
		if err := rows.Scan(&number, &id); err != nil {
			return nil, r.mapper.MapError(err)
		}
		cycles[number] = append(cycles[number], id)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return cycles, nil
}

// ReplaceCycle atomically rewrites a cycle with dense positions 0..k-1.
func (r *CycleRepository) ReplaceCycle(ctx context.Context, churchID string, number int, musicianIDs []string) error {
	if churchID == "" || number < 1 {
		return persistence.ErrConstraintViolation
	}
	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM cycle_items WHERE church_id = ? AND cycle_number = ?`, churchID, number); err != nil {
				return r.mapper.MapError(err)
			}
			stmt, err := tx.PrepareContext(ctx, `
				INSERT INTO cycle_items (church_id, cycle_number, position, musician_id)
				VALUES (?, ?, ?, ?)`)
			if err != nil {
				return r.mapper.MapError(err)
			}
			defer stmt.Close()

			for position, id := range musicianIDs {
				if _, err := stmt.ExecContext(ctx, churchID, number, position, id); err != nil {
					return r.mapper.MapError(err)
				}
			}
			return nil
		})
	})
}
