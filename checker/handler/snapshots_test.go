package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cosmossdk.io/math"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/screwyprof/stakecheck/checker"
	"github.com/screwyprof/stakecheck/checker/handler"
	"github.com/screwyprof/stakecheck/pkg/clock"
)

var executedAt = time.Date(2024, 3, 1, 12, 0, 0, 123456000, time.UTC)

func TestGetLatestSnapshot(t *testing.T) {
	t.Parallel()

	t.Run("it returns the latest snapshot", func(t *testing.T) {
		t.Parallel()

		// Arrange
		want := snapshotAt(t, executedAt)
		mux := routes(&fakeFinder{snapshots: []checker.Snapshot{want}})

		// Act
		rec := serve(mux, "/snapshots/latest")

		// Assert
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
		assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
		assertBodyIsSnapshot(t, rec, want)
	})

	t.Run("it responds not found before the first run", func(t *testing.T) {
		t.Parallel()

		// Arrange
		mux := routes(&fakeFinder{})

		// Act
		rec := serve(mux, "/snapshots/latest")

		// Assert
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"code": 404, "message": "no snapshot has been saved yet"}`, rec.Body.String())
	})

	t.Run("it hides store failures", func(t *testing.T) {
		t.Parallel()

		// Arrange
		mux := routes(&fakeFinder{err: errors.New("dial tcp 10.0.0.7:5432: connection refused")})

		// Act
		rec := serve(mux, "/snapshots/latest")

		// Assert
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"code": 500, "message": "Internal Server Error"}`, rec.Body.String())
	})
}

func TestGetSnapshotByExecutedAt(t *testing.T) {
	t.Parallel()

	t.Run("it returns the snapshot stored under the time", func(t *testing.T) {
		t.Parallel()

		// Arrange
		older := snapshotAt(t, executedAt)
		newer := snapshotAt(t, executedAt.Add(time.Hour))
		mux := routes(&fakeFinder{snapshots: []checker.Snapshot{older, newer}})

		// Act
		rec := serve(mux, "/snapshots/2024-03-01T12:00:00.123456Z")

		// Assert
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "public, max-age=31536000, immutable", rec.Header().Get("Cache-Control"))
		assertBodyIsSnapshot(t, rec, older)
	})

	t.Run("it accepts any offset for the same instant", func(t *testing.T) {
		t.Parallel()

		// Arrange
		want := snapshotAt(t, executedAt)
		mux := routes(&fakeFinder{snapshots: []checker.Snapshot{want}})

		// Act
		rec := serve(mux, "/snapshots/2024-03-01T14:00:00.123456+02:00")

		// Assert
		assert.Equal(t, http.StatusOK, rec.Code)
		assertBodyIsSnapshot(t, rec, want)
	})

	t.Run("it rejects a malformed time", func(t *testing.T) {
		t.Parallel()

		// Arrange
		mux := routes(&fakeFinder{})

		// Act
		rec := serve(mux, "/snapshots/yesterday")

		// Assert
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t,
			`{"code": 400, "message": "invalid executed_at parameter: \"yesterday\": executed_at must be an RFC 3339 timestamp"}`,
			rec.Body.String())
	})

	t.Run("it responds not found for an unknown time", func(t *testing.T) {
		t.Parallel()

		// Arrange
		mux := routes(&fakeFinder{snapshots: []checker.Snapshot{snapshotAt(t, executedAt)}})

		// Act
		rec := serve(mux, "/snapshots/2024-03-01T12:00:00Z")

		// Assert
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Empty(t, rec.Header().Get("Cache-Control"))
		assert.JSONEq(t, `{"code": 404, "message": "snapshot not found: 2024-03-01T12:00:00Z"}`, rec.Body.String())
	})
}

// Test helpers

func routes(finder handler.SnapshotFinder) *http.ServeMux {
	mux := http.NewServeMux()
	handler.NewSnapshots(finder).AddRoutes(mux)
	return mux
}

func serve(h http.Handler, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func snapshotAt(t *testing.T, at time.Time) checker.Snapshot {
	t.Helper()

	snapshot, err := checker.NewEngine(clock.NewManual(at)).Transform([]checker.RawValidator{
		{Moniker: "Kansa", Address: "cosmosvaloper1a", StatusCode: 2, RawTokens: math.NewInt(1250000123456)},
		{Moniker: "Naska", Address: "cosmosvaloper1b", StatusCode: 0, RawTokens: math.NewInt(5)},
	}, nil)
	require.NoError(t, err)

	return snapshot
}

func assertBodyIsSnapshot(t *testing.T, rec *httptest.ResponseRecorder, want checker.Snapshot) {
	t.Helper()

	var got checker.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("response body mismatch (-want +got):\n%s", diff)
	}
}

// fakeFinder serves snapshots from memory; the last one is latest
type fakeFinder struct {
	snapshots []checker.Snapshot
	err       error
}

func (f *fakeFinder) LoadLatest(context.Context) (*checker.Snapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.snapshots) == 0 {
		return nil, nil
	}
	latest := f.snapshots[len(f.snapshots)-1]
	return &latest, nil
}

func (f *fakeFinder) Load(_ context.Context, at time.Time) (*checker.Snapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, s := range f.snapshots {
		if s.ExecutedAt.Equal(at) {
			return &s, nil
		}
	}
	return nil, checker.ErrSnapshotNotFound
}
