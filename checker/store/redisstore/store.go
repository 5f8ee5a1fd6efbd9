package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/screwyprof/stakecheck/checker"
	"github.com/screwyprof/stakecheck/checker/store/dbrow"
)

// Sentinel errors for store operations
var (
	ErrWriteFailed     = errors.New("redis write failed")
	ErrReadFailed      = errors.New("redis read failed")
	ErrDanglingPointer = errors.New("latest pointer refers to a missing snapshot")
	ErrInvalidPointer  = errors.New("latest pointer is not a timestamp")
	ErrDecodeFailed    = errors.New("snapshot decode failed")
)

// DefaultKeyPrefix namespaces every key written by the store
const DefaultKeyPrefix = "stakecheck:"

// Store implements checker.SnapshotStore on plain Redis string keys.
//
// Layout:
//
//	<prefix>snapshots:<RFC3339Nano executed_at>  snapshot JSON
//	<prefix>latest                               executed_at of the newest snapshot
type Store struct {
	client redis.UniversalClient
	prefix string
}

// New creates a Redis-backed store. An empty prefix selects DefaultKeyPrefix.
func New(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Store{client: client, prefix: prefix}
}

// LoadLatest follows the latest pointer; a missing pointer is the first-run signal
func (s *Store) LoadLatest(ctx context.Context) (*checker.Snapshot, error) {
	pointer, err := s.client.Get(ctx, s.latestKey()).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadFailed, err)
	}

	executedAt, err := time.Parse(time.RFC3339Nano, pointer)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPointer, pointer)
	}

	snapshot, err := s.Load(ctx, executedAt)
	if errors.Is(err, checker.ErrSnapshotNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrDanglingPointer, pointer)
	}
	return snapshot, err
}

// Load returns the snapshot stored under executedAt
func (s *Store) Load(ctx context.Context, executedAt time.Time) (*checker.Snapshot, error) {
	body, err := s.client.Get(ctx, s.snapshotKey(executedAt)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, checker.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadFailed, err)
	}

	snapshot, err := dbrow.Snapshot{ExecutedAt: executedAt, Body: body}.ToSnapshot()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecodeFailed, err)
	}
	return snapshot, nil
}

// Save writes the snapshot body, then moves the latest pointer.
// The pointer is left untouched if the body write fails.
func (s *Store) Save(ctx context.Context, snapshot checker.Snapshot) error {
	row, err := dbrow.FromSnapshot(snapshot)
	if err != nil {
		return err
	}

	if err := s.client.Set(ctx, s.snapshotKey(row.ExecutedAt), row.Body, 0).Err(); err != nil {
		return fmt.Errorf("%w: body: %w", ErrWriteFailed, err)
	}

	if err := s.client.Set(ctx, s.latestKey(), formatKeyTime(row.ExecutedAt), 0).Err(); err != nil {
		return fmt.Errorf("%w: pointer: %w", ErrWriteFailed, err)
	}

	return nil
}

func (s *Store) latestKey() string {
	return s.prefix + "latest"
}

func (s *Store) snapshotKey(executedAt time.Time) string {
	return s.prefix + "snapshots:" + formatKeyTime(executedAt)
}

func formatKeyTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
