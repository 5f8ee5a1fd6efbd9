package migratortest

import (
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/peterldowns/pgtestdb"

	"github.com/screwyprof/stakecheck/checker"
	"github.com/screwyprof/stakecheck/migrator"
	"github.com/screwyprof/stakecheck/pkg/pgxdb/pgxdbtest"
)

// CreateTestDatabase creates a test database with schema migrations applied.
// Returns the connection pool ready for use; it is closed when the test ends.
func CreateTestDatabase(t *testing.T, migrationsDir string) *pgxpool.Pool {
	t.Helper()

	return createTestDatabaseWithMigrator(t, migrator.NewSchemaMigrator(migrationsDir))
}

// CreateSeededTestDatabase creates a test database whose history already holds the snapshots,
// with latest pointing at the last one.
func CreateSeededTestDatabase(t *testing.T, migrationsDir string, snapshots ...checker.Snapshot) *pgxpool.Pool {
	t.Helper()

	return createTestDatabaseWithMigrator(t, migrator.NewSeededMigrator(migrationsDir, snapshots...))
}

// createTestDatabaseWithMigrator creates a test database using the provided migrator
func createTestDatabaseWithMigrator(t *testing.T, migratorInstance pgtestdb.Migrator) *pgxpool.Pool {
	t.Helper()

	dbConfig := pgtestdb.Custom(t, pgxdbtest.Config(), migratorInstance)

	return pgxdbtest.Connect(t, dbConfig.URL())
}
