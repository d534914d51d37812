package sqlite

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/souzalinux78/gestao-organista/internal/calendar"
	"github.com/souzalinux78/gestao-organista/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Storage bundles the SQLite repositories that share one connection pool.
type Storage struct {
	pool *ConnectionPool

	Churches  *ChurchRepository
	Services  *ServiceRepository
	Musicians *MusicianRepository
	Cycles    *CycleRepository
	Schedules *ScheduleRepository
}

// Open connects to the database described by config. Stored civil dates are
// read back in loc; a nil loc selects America/Sao_Paulo.
func Open(ctx context.Context, config migration.SQLiteConfig, loc *time.Location) (*Storage, error) {
	if loc == nil {
		loc = calendar.DefaultLocation()
	}
	pool, err := NewConnectionPool(ctx, config)
	if err != nil {
		return nil, err
	}
	return &Storage{
		pool:      pool,
		Churches:  NewChurchRepository(pool),
		Services:  NewServiceRepository(pool),
		Musicians: NewMusicianRepository(pool),
		Cycles:    NewCycleRepository(pool),
		Schedules: NewScheduleRepository(pool, loc),
	}, nil
}

// Migrate applies the embedded migrations and returns the versions it ran.
func (s *Storage) Migrate(ctx context.Context, logger *slog.Logger) ([]string, error) {
	manager := s.migrationManager(logger)
	applied, err := manager.RunMigrations(ctx)
	if err != nil {
		return applied, fmt.Errorf("apply migrations: %w", err)
	}
	return applied, nil
}

// MigrationStatus reports applied and pending migrations.
func (s *Storage) MigrationStatus(ctx context.Context) (*migration.Status, error) {
	return s.migrationManager(nil).Status(ctx)
}

func (s *Storage) migrationManager(logger *slog.Logger) *migration.Manager {
	return migration.NewManager(
		migration.NewScanner(migrationFiles, "migrations"),
		migration.NewSQLiteExecutor(s.pool.DB()),
		logger,
	)
}

// Ping checks the database connection.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the underlying connection pool.
func (s *Storage) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	return s.pool.Close()
}
