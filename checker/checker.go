package checker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/screwyprof/stakecheck/pkg/stargate"
)

// Sentinel errors for failure cases
var (
	ErrFetchFailed      = errors.New("validator fetch failed")
	ErrLoadFailed       = errors.New("previous snapshot load failed")
	ErrSaveFailed       = errors.New("snapshot save failed")
	ErrNotifyFailed     = errors.New("notification failed")
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

// DefaultInterval is the time between scheduled runs
const DefaultInterval = time.Hour

// Fetcher fetches validators from the staking API
// -----------------------------------------------
type Fetcher interface {
	GetValidators(ctx context.Context, status string) ([]stargate.Validator, error)
}

// SnapshotStore persists snapshots keyed by their execution time
type SnapshotStore interface {
	// LoadLatest returns the most recently saved snapshot, or nil when there is none yet
	LoadLatest(ctx context.Context) (*Snapshot, error)
	// Save writes the snapshot body, then points latest at it
	Save(ctx context.Context, snapshot Snapshot) error
}

// Notifier delivers a computed snapshot to its audience
type Notifier interface {
	Send(ctx context.Context, snapshot Snapshot) error
}

// Clock abstracts time for production and testing
// ------------------------------------------------
type Clock interface {
	After(d time.Duration) <-chan time.Time
	Now() time.Time
}

// Event represents a service lifecycle event
// ------------------------------------------
type Event any

type SchedulerStarted struct {
	Interval time.Duration
	RunOnce  bool
}

type RunStarted struct {
	RunID     uuid.UUID
	StartedAt time.Time
}

type RunCompleted struct {
	RunID    uuid.UUID
	Snapshot Snapshot
	Duration time.Duration
}

type RunFailed struct {
	RunID uuid.UUID
	Err   error
}

type SchedulerShutdown struct {
	Reason error // ctx.Err() on cancellation, nil after a single run
}
