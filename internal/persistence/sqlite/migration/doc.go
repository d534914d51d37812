// Package migration applies versioned SQL migrations to a SQLite database.
//
// Migration files live in an fs.FS (usually an embed.FS) and follow the
// naming convention {version}_{description}.sql, e.g. "001_initial_schema.sql".
// Each file runs inside its own transaction and is recorded in the
// schema_migrations table so it is never applied twice.
//
// Example usage:
//
//	manager := NewManager(NewScanner(files, "migrations"), NewSQLiteExecutor(db), logger)
//	if err := manager.RunMigrations(ctx); err != nil {
//		return fmt.Errorf("migrate: %w", err)
//	}
package migration
