package pgxstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/screwyprof/stakecheck/checker"
	"github.com/screwyprof/stakecheck/checker/store/dbrow"
)

// Sentinel errors for store operations
var (
	ErrTransactionFailed = errors.New("transaction failed")
	ErrInsertFailed      = errors.New("snapshot insert failed")
	ErrPointerFailed     = errors.New("latest pointer update failed")
	ErrQueryFailed       = errors.New("snapshot query failed")
	ErrDecodeFailed      = errors.New("snapshot decode failed")
)

const (
	selectLatestSQL = `
		SELECT s.executed_at, s.body
		FROM latest_snapshot l
		JOIN snapshots s ON s.executed_at = l.executed_at`

	selectByTimeSQL = `
		SELECT executed_at, body
		FROM snapshots
		WHERE executed_at = $1`

	insertSnapshotSQL = `
		INSERT INTO snapshots (executed_at, body) VALUES ($1, $2)`

	upsertLatestSQL = `
		INSERT INTO latest_snapshot (single_row, executed_at) VALUES (TRUE, $1)
		ON CONFLICT (single_row) DO UPDATE SET executed_at = EXCLUDED.executed_at`
)

// Store implements checker.SnapshotStore using pgx
type Store struct {
	pool *pgxpool.Pool
}

// New creates a new PostgreSQL store with an existing connection pool
// Returns the store and a closer function
func New(pool *pgxpool.Pool) (*Store, func()) {
	store := &Store{pool: pool}
	closer := func() {
		pool.Close()
	}
	return store, closer
}

// LoadLatest returns the snapshot the latest pointer refers to.
// A missing pointer is the first-run signal, not an error.
func (s *Store) LoadLatest(ctx context.Context) (*checker.Snapshot, error) {
	snapshot, err := s.queryOne(ctx, selectLatestSQL)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return snapshot, err
}

// Load returns the snapshot stored under executedAt
func (s *Store) Load(ctx context.Context, executedAt time.Time) (*checker.Snapshot, error) {
	snapshot, err := s.queryOne(ctx, selectByTimeSQL, executedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, checker.ErrSnapshotNotFound
	}
	return snapshot, err
}

// Save inserts the snapshot body and moves the latest pointer to it in one transaction
func (s *Store) Save(ctx context.Context, snapshot checker.Snapshot) error {
	row, err := dbrow.FromSnapshot(snapshot)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransactionFailed, err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // No-op if commit succeeds

	if _, err = tx.Exec(ctx, insertSnapshotSQL, row.ExecutedAt, row.Body); err != nil {
		return fmt.Errorf("%w: %w", ErrInsertFailed, err)
	}

	if _, err = tx.Exec(ctx, upsertLatestSQL, row.ExecutedAt); err != nil {
		return fmt.Errorf("%w: %w", ErrPointerFailed, err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrTransactionFailed, err)
	}

	return nil
}

// queryOne runs a query expected to return at most one snapshot row.
// pgx.ErrNoRows is returned unwrapped so callers can decide what absence means.
func (s *Store) queryOne(ctx context.Context, sql string, args ...any) (*checker.Snapshot, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}

	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[dbrow.Snapshot])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}

	snapshot, err := row.ToSnapshot()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecodeFailed, err)
	}
	return snapshot, nil
}
