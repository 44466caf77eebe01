package testutil

import (
	"testing"

	"kv-go/internal/database"
	"kv-go/internal/database/migrations"
	"kv-go/internal/kv"
)

// NewTestImportStore creates a new in-memory SQLite import history with the
// migrations applied. The store is automatically closed when the test
// completes.
func NewTestImportStore(t *testing.T) kv.ImportStore {
	t.Helper()

	sqlDB, err := database.OpenConnection(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	if err := migrations.MigrateUp(sqlDB); err != nil {
		sqlDB.Close()
		t.Fatalf("failed to apply migrations: %v", err)
	}

	store := database.NewSQLiteImportStoreFromDB(sqlDB)

	t.Cleanup(func() {
		store.Close()
	})

	return store
}
