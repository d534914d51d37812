package migration

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"
)

// Manager orchestrates the migration process.
type Manager struct {
	scanner  Scanner
	executor Executor
	logger   *slog.Logger
}

// NewManager creates a Manager. A nil logger discards output.
func NewManager(scanner Scanner, executor Executor, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{
		scanner:  scanner,
		executor: executor,
		logger:   logger.With(slog.String("component", "migration")),
	}
}

// RunMigrations executes all pending migrations in sequential order and
// returns the versions it applied.
func (m *Manager) RunMigrations(ctx context.Context) ([]string, error) {
	started := time.Now()

	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		m.logger.ErrorContext(ctx, "failed to initialize schema_migrations table", slog.Any("error", err))
		return nil, fmt.Errorf("failed to initialize version table: %w", err)
	}

	pending, err := m.PendingMigrations(ctx)
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to resolve pending migrations", slog.Any("error", err))
		return nil, err
	}
	if len(pending) == 0 {
		m.logger.InfoContext(ctx, "database schema up to date")
		return nil, nil
	}

	applied := make([]string, 0, len(pending))
	for i, migration := range pending {
		stepStarted := time.Now()
		m.logger.InfoContext(ctx, "executing migration",
			slog.String("version", migration.Version),
			slog.String("description", migration.Description),
			slog.Int("step", i+1),
			slog.Int("total", len(pending)),
		)

		if err := m.executor.ExecuteMigration(ctx, migration); err != nil {
			m.logger.ErrorContext(ctx, "migration failed",
				slog.String("version", migration.Version),
				slog.String("file", migration.FilePath),
				slog.Any("error", err),
			)
			return applied, newMigrationError(migration.Version, migration.FilePath,
				"execute migration", fmt.Errorf("%w: %v", ErrMigrationFailed, err))
		}
		applied = append(applied, migration.Version)

		m.logger.InfoContext(ctx, "migration completed",
			slog.String("version", migration.Version),
			slog.Duration("duration", time.Since(stepStarted)),
		)
	}

	m.logger.InfoContext(ctx, "all migrations completed",
		slog.Int("count", len(applied)),
		slog.Duration("duration", time.Since(started)),
	)
	return applied, nil
}

// PendingMigrations returns the migrations that need to be applied after
// validating the sequence against the version table.
func (m *Manager) PendingMigrations(ctx context.Context) ([]Migration, error) {
	available, err := m.scanner.ScanMigrations()
	if err != nil {
		return nil, fmt.Errorf("failed to scan migrations: %w", err)
	}
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize version table: %w", err)
	}
	applied, err := m.executor.GetAppliedVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied versions: %w", err)
	}

	if err := validateSequence(available, applied); err != nil {
		return nil, fmt.Errorf("migration sequence validation failed: %w", err)
	}

	appliedSet := make(map[int]struct{}, len(applied))
	for _, a := range applied {
		v, _ := strconv.Atoi(a.Version)
		appliedSet[v] = struct{}{}
	}

	var pending []Migration
	for _, migration := range available {
		v, _ := strconv.Atoi(migration.Version)
		if _, ok := appliedSet[v]; !ok {
			pending = append(pending, migration)
		}
	}
	return pending, nil
}

// Status returns status information about migrations.
func (m *Manager) Status(ctx context.Context) (*Status, error) {
	pending, err := m.PendingMigrations(ctx)
	if err != nil {
		return nil, err
	}
	applied, err := m.executor.GetAppliedVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	status := &Status{
		PendingCount:      len(pending),
		AppliedMigrations: applied,
		PendingMigrations: pending,
	}
	maxVersion := -1
	for _, a := range applied {
		if v, err := strconv.Atoi(a.Version); err == nil && v > maxVersion {
			maxVersion = v
			status.CurrentVersion = a.Version
		}
	}
	return status, nil
}

// validateSequence ensures there are no gaps in migration version numbers, that
// every applied version still has a file and that applied files were not edited.
func validateSequence(available []Migration, applied []AppliedMigration) error {
	byVersion := make(map[int]Migration, len(available))
	for _, migration := range available {
		v, err := strconv.Atoi(migration.Version)
		if err != nil {
			return newMigrationError(migration.Version, migration.FilePath, "validate sequence", err)
		}
		byVersion[v] = migration
	}

	if len(available) > 0 {
		first, _ := strconv.Atoi(available[0].Version)
		last, _ := strconv.Atoi(available[len(available)-1].Version)
		for v := first; v <= last; v++ {
			if _, ok := byVersion[v]; !ok {
				return fmt.Errorf("%w: missing migration version %03d in sequence", ErrVersionConflict, v)
			}
		}
	}

	for _, a := range applied {
		v, err := strconv.Atoi(a.Version)
		if err != nil {
			return newDatabaseError(a.Version, "validate sequence", err)
		}
		migration, ok := byVersion[v]
		if !ok {
			return fmt.Errorf("%w: applied migration %03d not found in available migrations", ErrVersionConflict, v)
		}
		if a.Checksum != "" && a.Checksum != migration.Checksum {
			return newMigrationError(migration.Version, migration.FilePath, "verify checksum", ErrChecksumMismatch)
		}
	}
	return nil
}
