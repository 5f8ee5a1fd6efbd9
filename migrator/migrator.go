// Package migrator applies the snapshot schema and provides pgtestdb migrators for tests
package migrator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/peterldowns/pgtestdb"
	"github.com/peterldowns/pgtestdb/migrators/sqlmigrator"
	migrate "github.com/rubenv/sql-migrate"

	"github.com/screwyprof/stakecheck/checker"
	"github.com/screwyprof/stakecheck/checker/store/pgxstore"
	"github.com/screwyprof/stakecheck/pkg/pgxdb"
)

const migrationsTable = "schema_migrations"

// repointLatestSQL only moves the pointer to a snapshot that exists
const repointLatestSQL = `
	INSERT INTO latest_snapshot (single_row, executed_at)
	SELECT TRUE, executed_at FROM snapshots WHERE executed_at = $1
	ON CONFLICT (single_row) DO UPDATE SET executed_at = EXCLUDED.executed_at`

var (
	ErrMigrationExecution = errors.New("migration execution failed")
	ErrRepointFailed      = errors.New("latest pointer update failed")
	ErrSeedFailed         = errors.New("seeding snapshots failed")
)

// SchemaMigrator is a pgtestdb migrator creating an empty schema
type SchemaMigrator struct {
	dir string
}

func NewSchemaMigrator(migrationsDir string) *SchemaMigrator {
	return &SchemaMigrator{dir: migrationsDir}
}

// Hash identifies the template database; it changes whenever a migration file does
func (m *SchemaMigrator) Hash() (string, error) {
	return m.hash("schema")
}

func (m *SchemaMigrator) Migrate(_ context.Context, db *sql.DB, _ pgtestdb.Config) error {
	return applyMigrations(db, m.dir)
}

func (m *SchemaMigrator) hash(kind string, extra ...string) (string, error) {
	files, err := sqlmigrator.New(m.source(), m.set()).Hash()
	if err != nil {
		return "", fmt.Errorf("hashing migrations in %s: %w", m.dir, err)
	}
	return strings.Join(append([]string{kind, files}, extra...), "_"), nil
}

func (m *SchemaMigrator) source() *migrate.FileMigrationSource {
	return &migrate.FileMigrationSource{Dir: m.dir}
}

func (m *SchemaMigrator) set() *migrate.MigrationSet {
	return &migrate.MigrationSet{TableName: migrationsTable}
}

// SeededMigrator is a pgtestdb migrator whose template already holds a snapshot history,
// saved through pgxstore in order so latest points at the last one
type SeededMigrator struct {
	SchemaMigrator
	snapshots []checker.Snapshot
}

func NewSeededMigrator(migrationsDir string, snapshots ...checker.Snapshot) *SeededMigrator {
	return &SeededMigrator{
		SchemaMigrator: SchemaMigrator{dir: migrationsDir},
		snapshots:      snapshots,
	}
}

// Hash includes every snapshot key, so different histories get different templates
func (m *SeededMigrator) Hash() (string, error) {
	keys := make([]string, len(m.snapshots))
	for i, s := range m.snapshots {
		keys[i] = s.ExecutedAt.UTC().Format(time.RFC3339Nano)
	}
	return m.hash("seeded", keys...)
}

func (m *SeededMigrator) Migrate(ctx context.Context, db *sql.DB, conf pgtestdb.Config) error {
	if err := applyMigrations(db, m.dir); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Seeding template database", slog.Int("snapshots", len(m.snapshots)))

	pool, err := pgxdb.NewConnection(ctx, conf.URL(), pgxdb.WithMaxConns(1))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSeedFailed, err)
	}
	store, closer := pgxstore.New(pool)
	defer closer()

	for _, s := range m.snapshots {
		if err := store.Save(ctx, s); err != nil {
			return fmt.Errorf("%w: %w", ErrSeedFailed, err)
		}
	}
	return nil
}

// ApplyMigrations runs every pending migration in migrationsDir against the pool
func ApplyMigrations(pool *pgxpool.Pool, migrationsDir string) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	return applyMigrations(db, migrationsDir)
}

// RepointLatest moves the latest pointer to an existing snapshot, so the next run
// diffs against it. Returns checker.ErrSnapshotNotFound if no snapshot has that time.
func RepointLatest(ctx context.Context, pool *pgxpool.Pool, executedAt time.Time) error {
	tag, err := pool.Exec(ctx, repointLatestSQL, executedAt)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRepointFailed, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %w", ErrRepointFailed, checker.ErrSnapshotNotFound)
	}
	return nil
}

func applyMigrations(db *sql.DB, migrationsDir string) error {
	m := SchemaMigrator{dir: migrationsDir}
	if _, err := m.set().Exec(db, "postgres", m.source(), migrate.Up); err != nil {
		return fmt.Errorf("%w: %w", ErrMigrationExecution, err)
	}
	return nil
}
