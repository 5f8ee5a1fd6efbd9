package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/screwyprof/stakecheck/checker"
	"github.com/screwyprof/stakecheck/checker/api"
	"github.com/screwyprof/stakecheck/checker/handler/bind"
	"github.com/screwyprof/stakecheck/pkg/httpkit"
)

const (
	GetLatestSnapshotRoute = http.MethodGet + " " + "/snapshots/latest"
	GetSnapshotRoute       = http.MethodGet + " " + "/snapshots/{" + bind.ExecutedAtParam + "}"
)

// Sentinel errors
var (
	ErrQueryFailed   = errors.New("failed to query snapshot")
	ErrNoSnapshotYet = errors.New("no snapshot has been saved yet")
)

// SnapshotFinder reads stored snapshots
type SnapshotFinder interface {
	LoadLatest(ctx context.Context) (*checker.Snapshot, error)
	Load(ctx context.Context, executedAt time.Time) (*checker.Snapshot, error)
}

type Snapshots struct {
	finder SnapshotFinder
}

func NewSnapshots(finder SnapshotFinder) *Snapshots {
	return &Snapshots{
		finder: finder,
	}
}

func (h *Snapshots) AddRoutes(m *http.ServeMux) {
	m.Handle(GetLatestSnapshotRoute, httpkit.HandlerFunc(h.GetLatest))
	m.Handle(GetSnapshotRoute, httpkit.HandlerFunc(h.GetByExecutedAt))
}

// GetLatest returns the snapshot the latest pointer refers to
func (h *Snapshots) GetLatest(w http.ResponseWriter, r *http.Request) http.HandlerFunc {
	snapshot, err := h.finder.LoadLatest(r.Context())
	if err != nil {
		return httpkit.Problem(api.Wrap(fmt.Errorf("%w: %w", ErrQueryFailed, err)))
	}
	if snapshot == nil {
		return httpkit.Problem(api.NotFound(ErrNoSnapshotYet))
	}

	return httpkit.Cached(httpkit.Revalidate, httpkit.JSON(snapshot))
}

// GetByExecutedAt returns the snapshot stored under the executed_at path value.
// Stored snapshots never change, so the response is cacheable.
func (h *Snapshots) GetByExecutedAt(w http.ResponseWriter, r *http.Request) http.HandlerFunc {
	executedAt, err := bind.ExecutedAt(r)
	if err != nil {
		return httpkit.Problem(api.BadRequest(err))
	}

	snapshot, err := h.finder.Load(r.Context(), executedAt)
	if errors.Is(err, checker.ErrSnapshotNotFound) {
		return httpkit.Problem(api.NotFound(fmt.Errorf("%w: %s", err, executedAt.Format(time.RFC3339Nano))))
	}
	if err != nil {
		return httpkit.Problem(api.Wrap(fmt.Errorf("%w: %w", ErrQueryFailed, err)))
	}

	return httpkit.Cached(httpkit.CacheForever, httpkit.JSON(snapshot))
}
