package checker_test

import (
	"testing"
	"time"

	"cosmossdk.io/math"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/screwyprof/stakecheck/checker"
	"github.com/screwyprof/stakecheck/pkg/clock"
)

var firstRunAt = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// TestEngineFirstRun tests ranking without history
func TestEngineFirstRun(t *testing.T) {
	t.Parallel()

	t.Run("it ranks bonded validators and leaves changes empty", func(t *testing.T) {
		t.Parallel()

		// Arrange
		engine := engineAt(firstRunAt)
		raw := []checker.RawValidator{
			rawValidator("A", "a1", 2, 100),
			rawValidator("B", "a2", 1, 20),
			rawValidator("C", "a3", 0, 5),
		}

		// Act
		snapshot, err := engine.Transform(raw, nil)

		// Assert
		require.NoError(t, err)
		require.Len(t, snapshot.Data, 3)

		assertResult(t, snapshot.Data[0], "a1", checker.StatusBonded, "0.0001", ptr(1))
		assertResult(t, snapshot.Data[1], "a2", checker.StatusUnbonding, "0.00002", nil)
		assertResult(t, snapshot.Data[2], "a3", checker.StatusUnbonded, "0.000005", nil)
		assertNoChanges(t, snapshot)

		assert.True(t, snapshot.FirstRun())
		assert.Nil(t, snapshot.PreviousExecutedAt)
		assert.Equal(t, firstRunAt, snapshot.ExecutedAt)
	})

	t.Run("it returns empty data for empty input", func(t *testing.T) {
		t.Parallel()

		// Arrange
		engine := engineAt(firstRunAt)

		// Act
		snapshot, err := engine.Transform(nil, nil)

		// Assert
		require.NoError(t, err)
		assert.NotNil(t, snapshot.Data)
		assert.Empty(t, snapshot.Data)
	})

	t.Run("it keeps input order for equal token amounts", func(t *testing.T) {
		t.Parallel()

		// Arrange
		engine := engineAt(firstRunAt)
		raw := []checker.RawValidator{
			rawValidator("first", "v1", 2, 50),
			rawValidator("bigger", "v2", 2, 70),
			rawValidator("second", "v3", 1, 50),
			rawValidator("third", "v4", 2, 50),
			rawValidator("fourth", "v5", 0, 50),
		}

		// Act
		snapshot, err := engine.Transform(raw, nil)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, []string{"v2", "v1", "v3", "v4", "v5"}, addresses(snapshot))
	})

	t.Run("it assigns dense ranks to bonded validators only", func(t *testing.T) {
		t.Parallel()

		// Arrange
		engine := engineAt(firstRunAt)
		raw := []checker.RawValidator{
			rawValidator("u1", "u1", 0, 900),
			rawValidator("b1", "b1", 2, 10),
			rawValidator("d1", "d1", 1, 500),
			rawValidator("b2", "b2", 2, 700),
			rawValidator("b3", "b3", 2, 300),
			rawValidator("d2", "d2", 1, 1),
		}

		// Act
		snapshot, err := engine.Transform(raw, nil)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, []string{"u1", "b2", "d1", "b3", "b1", "d2"}, addresses(snapshot))

		var ranks []int
		for _, r := range snapshot.Data {
			if r.Status != checker.StatusBonded {
				assert.Nil(t, r.Rank, "non-bonded %s must not be ranked", r.Address)
				continue
			}
			require.NotNil(t, r.Rank)
			ranks = append(ranks, *r.Rank)
		}
		assert.Equal(t, []int{1, 2, 3}, ranks)
		assert.Equal(t, 3, snapshot.Bonded())
	})

	t.Run("it treats missing tokens as zero", func(t *testing.T) {
		t.Parallel()

		// Arrange
		engine := engineAt(firstRunAt)
		raw := []checker.RawValidator{
			{Moniker: "empty", Address: "e1", StatusCode: 2},
			rawValidator("full", "f1", 2, 1),
		}

		// Act
		snapshot, err := engine.Transform(raw, nil)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, []string{"f1", "e1"}, addresses(snapshot))
		assert.True(t, snapshot.Data[1].DelegatedBalance.IsZero())
	})
}

// TestEngineAgainstPrevious tests deltas computed from the previous snapshot
func TestEngineAgainstPrevious(t *testing.T) {
	t.Parallel()

	t.Run("it computes exact balance change and rank change", func(t *testing.T) {
		t.Parallel()

		// Arrange
		previous := firstSnapshot(t)
		engine := engineAt(firstRunAt.Add(time.Hour))
		raw := []checker.RawValidator{
			rawValidator("A", "a1", 2, 150),
			rawValidator("B", "a2", 1, 20),
			rawValidator("C", "a3", 0, 5),
		}

		// Act
		snapshot, err := engine.Transform(raw, &previous)

		// Assert
		require.NoError(t, err)

		a := snapshot.Data[0]
		require.NotNil(t, a.DelegatedBalanceChange)
		assert.Equal(t, "0.00005", a.DelegatedBalanceChange.String())
		assert.True(t, a.DelegatedBalanceChange.Equal(decimal.RequireFromString("0.00005")))
		require.NotNil(t, a.RankChange)
		assert.Equal(t, 0, *a.RankChange)

		for _, r := range snapshot.Data[1:] {
			require.NotNil(t, r.DelegatedBalanceChange)
			assert.True(t, r.DelegatedBalanceChange.IsZero(), "%s balance unchanged", r.Address)
			assert.Nil(t, r.RankChange, "%s has no rank", r.Address)
		}

		require.NotNil(t, snapshot.PreviousExecutedAt)
		assert.Equal(t, previous.ExecutedAt, *snapshot.PreviousExecutedAt)
		assert.False(t, snapshot.FirstRun())
	})

	t.Run("it subtracts raw amounts before converting", func(t *testing.T) {
		t.Parallel()

		// Arrange
		engine := engineAt(firstRunAt)
		previous, err := engine.Transform([]checker.RawValidator{
			rawValidatorBig(t, "whale", "w1", 2, "99999999999999999999999999"),
			rawValidator("small", "s1", 2, 2_500_000),
		}, nil)
		require.NoError(t, err)

		next := engineAt(firstRunAt.Add(time.Minute))

		// Act
		snapshot, err := next.Transform([]checker.RawValidator{
			rawValidatorBig(t, "whale", "w1", 2, "100000000000000000000000001"),
			rawValidator("small", "s1", 2, 1_000_000),
		}, &previous)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "0.000002", snapshot.Data[0].DelegatedBalanceChange.String())
		assert.Equal(t, "-1.5", snapshot.Data[1].DelegatedBalanceChange.String())
	})

	t.Run("it reports rank movement as previous minus current", func(t *testing.T) {
		t.Parallel()

		// Arrange
		engine := engineAt(firstRunAt)
		previous, err := engine.Transform([]checker.RawValidator{
			rawValidator("x", "x", 2, 300),
			rawValidator("y", "y", 2, 200),
			rawValidator("z", "z", 2, 100),
		}, nil)
		require.NoError(t, err)

		next := engineAt(firstRunAt.Add(time.Minute))

		// Act
		snapshot, err := next.Transform([]checker.RawValidator{
			rawValidator("x", "x", 2, 300),
			rawValidator("y", "y", 2, 200),
			rawValidator("z", "z", 2, 400),
		}, &previous)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, []string{"z", "x", "y"}, addresses(snapshot))
		assert.Equal(t, 2, *snapshot.Data[0].RankChange)
		assert.Equal(t, -1, *snapshot.Data[1].RankChange)
		assert.Equal(t, -1, *snapshot.Data[2].RankChange)
	})

	t.Run("it leaves rank change empty when either rank is missing", func(t *testing.T) {
		t.Parallel()

		// Arrange
		engine := engineAt(firstRunAt)
		previous, err := engine.Transform([]checker.RawValidator{
			rawValidator("leaving", "l1", 2, 100),
			rawValidator("joining", "j1", 1, 50),
		}, nil)
		require.NoError(t, err)

		next := engineAt(firstRunAt.Add(time.Minute))

		// Act
		snapshot, err := next.Transform([]checker.RawValidator{
			rawValidator("leaving", "l1", 1, 100),
			rawValidator("joining", "j1", 2, 50),
		}, &previous)

		// Assert
		require.NoError(t, err)
		for _, r := range snapshot.Data {
			assert.Nil(t, r.RankChange, "%s", r.Address)
			require.NotNil(t, r.DelegatedBalanceChange)
		}
	})

	t.Run("it treats validators new since the previous run as first seen", func(t *testing.T) {
		t.Parallel()

		// Arrange
		previous := firstSnapshot(t)
		engine := engineAt(firstRunAt.Add(time.Hour))

		// Act
		snapshot, err := engine.Transform([]checker.RawValidator{
			rawValidator("A", "a1", 2, 100),
			rawValidator("N", "new", 2, 10),
		}, &previous)

		// Assert
		require.NoError(t, err)
		require.Len(t, snapshot.Data, 2, "validators missing from the current run are dropped")

		fresh := snapshot.Data[1]
		assert.Equal(t, "new", fresh.Address)
		assert.Nil(t, fresh.DelegatedBalanceChange)
		assert.Nil(t, fresh.RankChange)
	})

	t.Run("it stamps a strictly later time when the clock has not advanced", func(t *testing.T) {
		t.Parallel()

		// Arrange
		previous := firstSnapshot(t)
		engine := engineAt(firstRunAt.Add(-time.Second))

		// Act
		snapshot, err := engine.Transform(nil, &previous)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, previous.ExecutedAt.Add(time.Microsecond), snapshot.ExecutedAt)
	})

	t.Run("it truncates execution time to microseconds in UTC", func(t *testing.T) {
		t.Parallel()

		// Arrange
		local := time.FixedZone("CET", 3600)
		engine := engineAt(time.Date(2024, 3, 1, 13, 0, 0, 123456789, local))

		// Act
		snapshot, err := engine.Transform(nil, nil)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, time.UTC, snapshot.ExecutedAt.Location())
		assert.Equal(t, 123456000, snapshot.ExecutedAt.Nanosecond())
	})
}

// TestEngineRejectsUnknownStatus tests fail-fast classification
func TestEngineRejectsUnknownStatus(t *testing.T) {
	t.Parallel()

	// Arrange
	engine := engineAt(firstRunAt)
	raw := []checker.RawValidator{
		rawValidator("ok", "ok1", 2, 100),
		rawValidator("bad", "bad1", 3, 50),
		rawValidator("ok", "ok2", 0, 10),
	}

	// Act
	snapshot, err := engine.Transform(raw, nil)

	// Assert
	assert.ErrorIs(t, err, checker.ErrInvalidStatusCode)
	assert.ErrorContains(t, err, "bad1")
	assert.Empty(t, snapshot.Data, "no partial result on a malformed batch")
}

// Test helpers

func engineAt(now time.Time) *checker.Engine {
	return checker.NewEngine(clock.NewManual(now))
}

func firstSnapshot(t *testing.T) checker.Snapshot {
	t.Helper()

	snapshot, err := engineAt(firstRunAt).Transform([]checker.RawValidator{
		rawValidator("A", "a1", 2, 100),
		rawValidator("B", "a2", 1, 20),
		rawValidator("C", "a3", 0, 5),
	}, nil)
	require.NoError(t, err)

	return snapshot
}

func rawValidator(moniker, address string, status int, tokens int64) checker.RawValidator {
	return checker.RawValidator{
		Moniker:    moniker,
		Address:    address,
		StatusCode: status,
		RawTokens:  math.NewInt(tokens),
	}
}

func rawValidatorBig(t *testing.T, moniker, address string, status int, tokens string) checker.RawValidator {
	t.Helper()

	amount, ok := math.NewIntFromString(tokens)
	require.True(t, ok)

	return checker.RawValidator{
		Moniker:    moniker,
		Address:    address,
		StatusCode: status,
		RawTokens:  amount,
	}
}

func addresses(s checker.Snapshot) []string {
	out := make([]string, len(s.Data))
	for i, r := range s.Data {
		out[i] = r.Address
	}
	return out
}

func ptr[T any](v T) *T {
	return &v
}

func assertResult(t *testing.T, r checker.ValidatorResult, address string, status checker.Status, balance string, rank *int) {
	t.Helper()

	assert.Equal(t, address, r.Address)
	assert.Equal(t, status, r.Status)
	assert.Equal(t, balance, r.DelegatedBalance.String())
	assert.Equal(t, rank, r.Rank)
}

func assertNoChanges(t *testing.T, s checker.Snapshot) {
	t.Helper()

	for _, r := range s.Data {
		assert.Nil(t, r.DelegatedBalanceChange, "%s balance change", r.Address)
		assert.Nil(t, r.RankChange, "%s rank change", r.Address)
	}
}
