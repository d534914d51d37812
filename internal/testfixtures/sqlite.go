package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/souzalinux78/gestao-organista/internal/persistence/sqlite"
	"github.com/souzalinux78/gestao-organista/internal/persistence/sqlite/migration"
)

// SQLiteHarness provides migrated SQLite storage on a temporary file for
// integration-style tests.
type SQLiteHarness struct {
	Storage *sqlite.Storage

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// Repositories exposes the storage as seeding targets.
func (h *SQLiteHarness) Repositories() Repositories {
	return Repositories{
		Churches:  h.Storage.Churches,
		Services:  h.Storage.Services,
		Musicians: h.Storage.Musicians,
		Cycles:    h.Storage.Cycles,
	}
}

// NewSQLiteHarness constructs a SQLiteHarness using a temporary file that is
// migrated automatically. Callers may optionally invoke Close, but the helper
// will also register a cleanup callback with the provided testing.TB.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "organistas.db")
	ctx := context.Background()

	storage, err := sqlite.Open(ctx, migration.TempFileTestSQLiteConfig(path), Location())
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if _, err := storage.Migrate(ctx, nil); err != nil {
		_ = storage.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Storage: storage,
		cleanup: func() {
			_ = storage.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}
