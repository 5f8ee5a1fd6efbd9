// Package storetest holds fixtures and behaviour checks shared by snapshot store implementations
package storetest

import (
	"context"
	"testing"
	"time"

	"cosmossdk.io/math"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/screwyprof/stakecheck/checker"
	"github.com/screwyprof/stakecheck/pkg/clock"
)

// Store is a snapshot store that can also read any snapshot by its execution time
type Store interface {
	checker.SnapshotStore
	Load(ctx context.Context, executedAt time.Time) (*checker.Snapshot, error)
}

// Start is the execution time of the first snapshot in History
var Start = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// History returns three consecutive snapshots, each diffed against the one before.
// Execution times carry sub-second precision to catch lossy timestamp storage.
func History(t *testing.T) []checker.Snapshot {
	t.Helper()

	runs := [][]checker.RawValidator{
		{
			raw(t, "Kansa", "cosmosvaloper1a", 2, "1250000123456"),
			raw(t, "Naska", "cosmosvaloper1b", 1, "20000000"),
			raw(t, "Jailed", "cosmosvaloper1c", 0, "5"),
		},
		{
			raw(t, "Kansa", "cosmosvaloper1a", 2, "1250000123506"),
			raw(t, "Naska", "cosmosvaloper1b", 2, "1250000123506"),
			raw(t, "Whale", "cosmosvaloper1w", 2, "340282366920938463463374607431768211456"),
		},
		{
			raw(t, "Kansa", "cosmosvaloper1a", 1, "1000000"),
			raw(t, "Naska", "cosmosvaloper1b", 2, "1250000123507"),
			raw(t, "Whale", "cosmosvaloper1w", 2, "340282366920938463463374607431768211455"),
		},
	}

	var (
		history  []checker.Snapshot
		previous *checker.Snapshot
	)
	for i, validators := range runs {
		at := Start.Add(time.Duration(i)*time.Hour + 123456*time.Microsecond)
		snapshot, err := checker.NewEngine(clock.NewManual(at)).Transform(validators, previous)
		require.NoError(t, err)

		history = append(history, snapshot)
		previous = &history[len(history)-1]
	}

	return history
}

// RunContract checks the behaviour every snapshot store must share.
// newStore must return an empty store isolated from other calls.
func RunContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Helper()

	t.Run("it reports no previous snapshot before the first save", func(t *testing.T) {
		t.Parallel()

		// Arrange
		store := newStore(t)

		// Act
		latest, err := store.LoadLatest(t.Context())

		// Assert
		require.NoError(t, err)
		assert.Nil(t, latest)
	})

	t.Run("it reads back exactly what it saved", func(t *testing.T) {
		t.Parallel()

		// Arrange
		store := newStore(t)
		history := History(t)

		// Act
		for _, s := range history {
			require.NoError(t, store.Save(t.Context(), s))
		}
		latest, err := store.LoadLatest(t.Context())

		// Assert
		require.NoError(t, err)
		require.NotNil(t, latest)
		AssertSameSnapshot(t, history[len(history)-1], *latest)
	})

	t.Run("it keeps every saved snapshot addressable by execution time", func(t *testing.T) {
		t.Parallel()

		// Arrange
		store := newStore(t)
		history := History(t)
		for _, s := range history {
			require.NoError(t, store.Save(t.Context(), s))
		}

		for _, want := range history {
			// Act
			got, err := store.Load(t.Context(), want.ExecutedAt)

			// Assert
			require.NoError(t, err)
			AssertSameSnapshot(t, want, *got)
		}
	})

	t.Run("it reports unknown execution times as not found", func(t *testing.T) {
		t.Parallel()

		// Arrange
		store := newStore(t)
		history := History(t)
		require.NoError(t, store.Save(t.Context(), history[0]))

		// Act
		got, err := store.Load(t.Context(), history[0].ExecutedAt.Add(time.Microsecond))

		// Assert
		assert.ErrorIs(t, err, checker.ErrSnapshotNotFound)
		assert.Nil(t, got)
	})
}

// AssertSameSnapshot compares snapshots by value, treating equal decimals and instants as equal
func AssertSameSnapshot(t *testing.T, want, got checker.Snapshot) {
	t.Helper()

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func raw(t *testing.T, moniker, address string, status int, tokens string) checker.RawValidator {
	t.Helper()

	amount, ok := math.NewIntFromString(tokens)
	require.True(t, ok, "invalid token amount %q", tokens)

	return checker.RawValidator{
		Moniker:    moniker,
		Address:    address,
		StatusCode: status,
		RawTokens:  amount,
	}
}
